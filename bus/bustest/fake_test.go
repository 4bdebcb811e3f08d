package bustest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stratux/imuplayground/bus"
)

func TestRegisterFile(t *testing.T) {
	f := New()
	d := f.Attach(0x68)
	d.Regs[0x2D] = 0x01
	d.Regs[0x2E] = 0x02

	if err := f.Write(0x68, []byte{0x06, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	if d.Regs[0x06] != 0x01 || d.Regs[0x07] != 0x00 {
		t.Errorf("write did not auto-increment: % X", d.Regs[0x06:0x08])
	}

	r := make([]byte, 2)
	if err := f.WriteRead(0x68, []byte{0x2D}, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0x01, 0x02}) {
		t.Errorf("got % X", r)
	}
}

func TestMissingDeviceNacks(t *testing.T) {
	f := New()
	err := f.Read(0x0C, make([]byte, 1))
	if !errors.Is(err, ErrNack) {
		t.Fatalf("got %v, want ErrNack", err)
	}
	var be *bus.Error
	if !errors.As(err, &be) || be.Addr != 0x0C {
		t.Errorf("not a bus.Error for 0x0C: %v", err)
	}
}

func TestFailNextIsOneShot(t *testing.T) {
	f := New()
	f.Attach(0x68)
	boom := errors.New("boom")
	f.FailNext(bus.OpWriteRead, 0x68, boom)

	if err := f.WriteRead(0x68, []byte{0}, make([]byte, 1)); !errors.Is(err, boom) {
		t.Fatalf("first: %v", err)
	}
	if err := f.WriteRead(0x68, []byte{0}, make([]byte, 1)); err != nil {
		t.Fatalf("second: %v", err)
	}
	log := f.Log()
	if len(log) != 2 || log[0].Err == nil || log[1].Err != nil {
		t.Errorf("log = %+v", log)
	}
}

func TestWritesFiltersByAddress(t *testing.T) {
	f := New()
	f.Attach(0x68)
	f.Attach(0x0C)
	_ = f.Write(0x68, []byte{0x7F, 0x00})
	_ = f.Write(0x0C, []byte{0x31, 0x08})
	_ = f.WriteRead(0x68, []byte{0x00}, make([]byte, 1))

	if w := f.Writes(0x68); len(w) != 1 || !bytes.Equal(w[0].W, []byte{0x7F, 0x00}) {
		t.Errorf("Writes(0x68) = %+v", w)
	}
	f.ClearLog()
	if len(f.Log()) != 0 {
		t.Error("ClearLog kept entries")
	}
}
