//go:build !tinygo

package bus

import (
	"errors"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all" // Empty import needed to initialize embd library.
)

// ErrUnsupported is returned when an adapter cannot express a transaction shape.
var ErrUnsupported = errors.New("transaction not supported by adapter")

// Embd adapts an embd.I2CBus (Linux i2c-dev) to Bus.
type Embd struct {
	i2c embd.I2CBus
}

// NewEmbd wraps i2c.
func NewEmbd(i2c embd.I2CBus) *Embd {
	return &Embd{i2c: i2c}
}

// OpenEmbd initializes embd's I2C driver and opens the numbered bus.
func OpenEmbd(number byte) (*Embd, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, err
	}
	return NewEmbd(embd.NewI2CBus(number)), nil
}

func (b *Embd) Write(addr uint8, w []byte) error {
	return wrap(OpWrite, addr, b.i2c.WriteBytes(addr, w))
}

func (b *Embd) Read(addr uint8, r []byte) error {
	buf, err := b.i2c.ReadBytes(addr, len(r))
	if err != nil {
		return wrap(OpRead, addr, err)
	}
	copy(r, buf)
	return nil
}

// WriteRead supports the register form (a single register byte written),
// which embd issues as one I2C_RDWR ioctl with two messages.
func (b *Embd) WriteRead(addr uint8, w, r []byte) error {
	if len(w) != 1 {
		return wrap(OpWriteRead, addr, ErrUnsupported)
	}
	return wrap(OpWriteRead, addr, b.i2c.ReadFromReg(addr, w[0], r))
}

// Close releases the bus and embd's I2C driver.
func (b *Embd) Close() error {
	err := b.i2c.Close()
	if cerr := embd.CloseI2C(); err == nil {
		err = cerr
	}
	return err
}
