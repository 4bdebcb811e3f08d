//go:build !tinygo

package led

import "github.com/kidoman/embd"

// EmbdPin drives a GPIO through embd's sysfs driver.
type EmbdPin struct {
	pin embd.DigitalPin
	on  bool
}

// NewEmbdPin opens key (a BCM number or board pin name) as an output, off.
func NewEmbdPin(key interface{}) (*EmbdPin, error) {
	if err := embd.InitGPIO(); err != nil {
		return nil, err
	}
	pin, err := embd.NewDigitalPin(key)
	if err != nil {
		return nil, err
	}
	if err := pin.SetDirection(embd.Out); err != nil {
		pin.Close()
		return nil, err
	}
	l := &EmbdPin{pin: pin}
	return l, l.Off()
}

func (l *EmbdPin) Toggle() error {
	l.on = !l.on
	return l.pin.Write(level(l.on))
}

func (l *EmbdPin) Off() error {
	l.on = false
	return l.pin.Write(embd.Low)
}

// Close releases the pin and embd's GPIO driver.
func (l *EmbdPin) Close() error {
	err := l.pin.Close()
	if cerr := embd.CloseGPIO(); err == nil {
		err = cerr
	}
	return err
}

func level(on bool) int {
	if on {
		return embd.High
	}
	return embd.Low
}
