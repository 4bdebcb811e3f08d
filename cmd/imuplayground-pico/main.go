//go:build tinygo

// imuplayground-pico is the RP2040 firmware: ICM-20948 on I2C1 (GP14 SDA,
// GP15 SCL), telemetry on the USB CDC serial port, heartbeat on the
// on-board LED.
package main

import (
	"context"
	"machine"
	"machine/usb"
	"time"

	"github.com/stratux/imuplayground/ahrs"
	"github.com/stratux/imuplayground/bus"
	"github.com/stratux/imuplayground/icm20948"
	"github.com/stratux/imuplayground/pipeline"
	"github.com/stratux/imuplayground/transport"
)

const (
	period = 100 * time.Millisecond
	beta   = 0.1
)

func init() {
	usb.VendorID = transport.DefaultVendorID
	usb.ProductID = transport.DefaultProductID
	usb.Manufacturer = transport.DefaultManufacturer
	usb.Product = transport.DefaultProduct
	usb.Serial = transport.DefaultSerial
}

// cdc is the subset of machine.USBCDC used here.
type cdc interface {
	Buffered() int
	ReadByte() (byte, error)
	Write([]byte) (int, error)
}

// usbSerial adapts the CDC endpoint to transport.Service.
type usbSerial struct {
	port cdc
}

func (u usbSerial) Poll() bool {
	return u.port.Buffered() > 0
}

func (u usbSerial) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && u.port.Buffered() > 0 {
		b, err := u.port.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	if n == 0 {
		return 0, transport.ErrWouldBlock
	}
	return n, nil
}

func (u usbSerial) Write(p []byte) (int, error) {
	n, err := u.port.Write(p)
	if err != nil || n < len(p) {
		return n, transport.ErrWouldBlock
	}
	return n, nil
}

type pinLED struct {
	pin machine.Pin
}

func (l pinLED) Toggle() error {
	l.pin.Set(!l.pin.Get())
	return nil
}

func (l pinLED) Off() error {
	l.pin.Low()
	return nil
}

// halt reports err forever. Initialization failures never reach the loop.
func halt(msg string, err error) {
	for {
		println(msg, err.Error())
		time.Sleep(time.Second)
	}
}

func main() {
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machine.LED.High()

	i2c := machine.I2C1
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.GPIO14,
		SCL:       machine.GPIO15,
	}); err != nil {
		halt("i2c:", err)
	}

	dev := icm20948.New(bus.NewTinyGo(i2c), icm20948.WithResetSettle(10*time.Millisecond))
	if err := dev.Initialize(); err != nil {
		halt("icm20948:", err)
	}
	machine.LED.Low()

	loop, err := pipeline.New(pipeline.Config{
		Sensor:    dev,
		Estimator: ahrs.NewMadgwick(period, beta),
		Transport: usbSerial{port: machine.Serial},
		Indicator: pinLED{pin: machine.LED},
		Period:    period,
	})
	if err != nil {
		halt("pipeline:", err)
	}
	loop.Run(context.Background())
}
