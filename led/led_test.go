//go:build !tinygo

package led

import (
	"testing"

	"github.com/kidoman/embd"
)

type fakePin struct {
	embd.DigitalPin
	writes []int
}

func (p *fakePin) Write(val int) error {
	p.writes = append(p.writes, val)
	return nil
}

func TestEmbdPinToggleAndOff(t *testing.T) {
	p := &fakePin{}
	l := &EmbdPin{pin: p}

	for _, step := range []func() error{l.Toggle, l.Toggle, l.Toggle, l.Off, l.Toggle} {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}
	want := []int{embd.High, embd.Low, embd.High, embd.Low, embd.High}
	if len(p.writes) != len(want) {
		t.Fatalf("writes = %v", p.writes)
	}
	for i := range want {
		if p.writes[i] != want[i] {
			t.Errorf("write %d = %d, want %d", i, p.writes[i], want[i])
		}
	}
}

func TestIndicatorImplementations(t *testing.T) {
	var _ Indicator = Nop{}
	var _ Indicator = (*EmbdPin)(nil)
	var _ Indicator = (*RPIOPin)(nil)
	if err := (Nop{}).Toggle(); err != nil {
		t.Error(err)
	}
}
