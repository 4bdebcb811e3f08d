// Package bustest provides an in-memory bus.Bus for tests.
package bustest

import (
	"errors"
	"sync"

	"github.com/stratux/imuplayground/bus"
)

// ErrNack is returned for transactions addressed to a device that is not attached.
var ErrNack = errors.New("no acknowledge")

// Tx records one transaction issued on a Fake.
type Tx struct {
	Op   bus.Op
	Addr uint8
	W    []byte
	N    int // bytes requested
	Err  error
}

// Device is a flat 256-register file with an auto-incrementing pointer.
type Device struct {
	Regs [256]byte
	ptr  uint8
	// OnWrite, if set, runs after each register write.
	OnWrite func(reg, value byte)
}

func (d *Device) write(w []byte) {
	if len(w) == 0 {
		return
	}
	d.ptr = w[0]
	for _, v := range w[1:] {
		d.Regs[d.ptr] = v
		if d.OnWrite != nil {
			d.OnWrite(d.ptr, v)
		}
		d.ptr++
	}
}

func (d *Device) read(r []byte) {
	for i := range r {
		r[i] = d.Regs[d.ptr]
		d.ptr++
	}
}

type fault struct {
	op   bus.Op
	addr uint8
	err  error
}

// Fake is a scriptable bus. The zero value is not usable; call New.
type Fake struct {
	mu      sync.Mutex
	devices map[uint8]*Device
	faults  []fault
	log     []Tx
}

// New returns a Fake with no devices attached.
func New() *Fake {
	return &Fake{devices: make(map[uint8]*Device)}
}

// Attach adds a device at addr and returns its register file.
func (f *Fake) Attach(addr uint8) *Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &Device{}
	f.devices[addr] = d
	return d
}

// FailNext makes the next transaction matching op and addr fail with err.
func (f *Fake) FailNext(op bus.Op, addr uint8, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault{op: op, addr: addr, err: err})
}

// Log returns a copy of every transaction issued so far.
func (f *Fake) Log() []Tx {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Tx(nil), f.log...)
}

// Writes returns the logged write transactions addressed to addr.
func (f *Fake) Writes(addr uint8) []Tx {
	var out []Tx
	for _, tx := range f.Log() {
		if tx.Op == bus.OpWrite && tx.Addr == addr {
			out = append(out, tx)
		}
	}
	return out
}

// ClearLog forgets logged transactions.
func (f *Fake) ClearLog() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = nil
}

func (f *Fake) do(op bus.Op, addr uint8, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := Tx{Op: op, Addr: addr, W: append([]byte(nil), w...), N: len(r)}
	tx.Err = f.takeFault(op, addr)
	if tx.Err == nil {
		if d, ok := f.devices[addr]; ok {
			d.write(w)
			d.read(r)
		} else {
			tx.Err = ErrNack
		}
	}
	f.log = append(f.log, tx)
	if tx.Err != nil {
		return &bus.Error{Op: op, Addr: addr, Err: tx.Err}
	}
	return nil
}

func (f *Fake) takeFault(op bus.Op, addr uint8) error {
	for i, ft := range f.faults {
		if ft.op == op && ft.addr == addr {
			f.faults = append(f.faults[:i], f.faults[i+1:]...)
			return ft.err
		}
	}
	return nil
}

func (f *Fake) Write(addr uint8, w []byte) error {
	return f.do(bus.OpWrite, addr, w, nil)
}

func (f *Fake) Read(addr uint8, r []byte) error {
	return f.do(bus.OpRead, addr, nil, r)
}

func (f *Fake) WriteRead(addr uint8, w, r []byte) error {
	return f.do(bus.OpWriteRead, addr, w, r)
}
