/*
Package bus provides addressed transactions on a register-oriented serial bus
such as I2C.

Every transaction is parameterized by a 7-bit device address. Implementations
must issue WriteRead as a single combined transaction (repeated start) so that
multi-register block reads are atomic snapshots.
*/
package bus

import (
	"fmt"
)

// Bus issues addressed transactions. All implementations return *Error on failure.
type Bus interface {
	// Write sends w to the device at addr.
	Write(addr uint8, w []byte) error
	// Read fills r from the device at addr.
	Read(addr uint8, r []byte) error
	// WriteRead sends w and then fills r in one combined transaction.
	WriteRead(addr uint8, w, r []byte) error
}

// Op names the kind of transaction that failed.
type Op string

const (
	OpWrite     Op = "write"
	OpRead      Op = "read"
	OpWriteRead Op = "write-read"
)

// Error is a failed bus transaction.
type Error struct {
	Op   Op
	Addr uint8
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bus %s 0x%02X: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op Op, addr uint8, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Op: op, Addr: addr, Err: err}
}

// ReadReg reads len(r) bytes starting at register reg.
func ReadReg(b Bus, addr, reg uint8, r []byte) error {
	return b.WriteRead(addr, []byte{reg}, r)
}

// ReadRegByte reads the single register reg.
func ReadRegByte(b Bus, addr, reg uint8) (byte, error) {
	var buf [1]byte
	if err := b.WriteRead(addr, []byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteReg writes value to register reg.
func WriteReg(b Bus, addr, reg, value uint8) error {
	return b.Write(addr, []byte{reg, value})
}
