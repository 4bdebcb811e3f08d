//go:build !tinygo

package led

import rpio "github.com/stianeikeland/go-rpio/v4"

// RPIOPin drives a GPIO through /dev/gpiomem with go-rpio.
type RPIOPin struct {
	pin rpio.Pin
}

// NewRPIOPin maps GPIO memory and configures BCM pin n as an output, off.
func NewRPIOPin(n int) (*RPIOPin, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	pin := rpio.Pin(n)
	pin.Output()
	pin.Low()
	return &RPIOPin{pin: pin}, nil
}

func (l *RPIOPin) Toggle() error {
	l.pin.Toggle()
	return nil
}

func (l *RPIOPin) Off() error {
	l.pin.Low()
	return nil
}

// Close unmaps GPIO memory.
func (l *RPIOPin) Close() error {
	return rpio.Close()
}
