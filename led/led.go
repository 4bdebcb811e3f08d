// Package led drives the single status indicator.
package led

// Indicator is a two-state light.
type Indicator interface {
	Toggle() error
	Off() error
}

// Nop is an Indicator with no hardware behind it.
type Nop struct{}

func (Nop) Toggle() error { return nil }
func (Nop) Off() error    { return nil }
