package bus

import (
	"tinygo.org/x/drivers"
)

// TinyGo adapts a TinyGo drivers.I2C (machine.I2C0, machine.I2C1) to Bus.
type TinyGo struct {
	i2c drivers.I2C
}

// NewTinyGo wraps i2c.
func NewTinyGo(i2c drivers.I2C) *TinyGo {
	return &TinyGo{i2c: i2c}
}

func (b *TinyGo) Write(addr uint8, w []byte) error {
	return wrap(OpWrite, addr, b.i2c.Tx(uint16(addr), w, nil))
}

func (b *TinyGo) Read(addr uint8, r []byte) error {
	return wrap(OpRead, addr, b.i2c.Tx(uint16(addr), nil, r))
}

func (b *TinyGo) WriteRead(addr uint8, w, r []byte) error {
	return wrap(OpWriteRead, addr, b.i2c.Tx(uint16(addr), w, r))
}
