/*
Package icm20948 drives an InvenSense ICM-20948 9DoF sensor: the accelerometer
and gyroscope die at Address and the AK09916 magnetometer, reached directly at
MagAddress once the ICM-20948 I2C bypass is enabled.

The driver is synchronous. Every operation issues a fixed, short sequence of
bus transactions and returns bus errors unchanged; it never retries.
*/
package icm20948

import (
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/golang/geo/r3"
	"github.com/sirupsen/logrus"

	"github.com/stratux/imuplayground/bus"
)

// ErrIdentityMismatch matches every *IdentityError.
var ErrIdentityMismatch = errors.New("icm20948: identity mismatch")

// SubDevice selects one of the two dies in the package.
type SubDevice int

const (
	Inertial SubDevice = iota
	Magnetic
)

func (s SubDevice) String() string {
	switch s {
	case Inertial:
		return "ICM-20948"
	case Magnetic:
		return "AK09916"
	}
	return fmt.Sprintf("SubDevice(%d)", int(s))
}

// IdentityError reports an unexpected identity register value.
type IdentityError struct {
	Sub       SubDevice
	Got, Want uint16
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("icm20948: %s identity 0x%X, expected 0x%X", e.Sub, e.Got, e.Want)
}

func (e *IdentityError) Is(target error) bool {
	return target == ErrIdentityMismatch
}

// Option configures a Device.
type Option func(*Device)

// WithBypass controls whether Initialize enables the I2C bypass bridge.
// Without it the magnetometer is not addressable on the host bus.
func WithBypass(enable bool) Option {
	return func(d *Device) { d.bypass = enable }
}

// WithMagRate sets the magnetometer continuous-measurement rate in Hz.
func WithMagRate(hz int) Option {
	return func(d *Device) { d.magMode = magMode(hz) }
}

// WithResetSettle makes Initialize wait d after the soft reset, using the
// sleeper from WithSleep.
func WithResetSettle(settle time.Duration) Option {
	return func(d *Device) { d.resetSettle = settle }
}

// WithSleep replaces time.Sleep.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Device) { d.sleep = sleep }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Device) { d.log = l }
}

// Device is an ICM-20948 on a bus.
type Device struct {
	bus         bus.Bus
	bypass      bool
	magMode     byte
	resetSettle time.Duration
	sleep       func(time.Duration)
	log         logrus.FieldLogger
}

// New returns an uninitialized Device. The defaults enable bypass and
// a 100 Hz magnetometer rate, with no settle delay after reset.
func New(b bus.Bus, opts ...Option) *Device {
	discard := logrus.New()
	discard.Out = ioutil.Discard
	d := &Device{
		bus:     b,
		bypass:  true,
		magMode: magMode(DefaultMagRate),
		sleep:   time.Sleep,
		log:     discard,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Identify reads the identity register of sub. It has no side effects.
func (d *Device) Identify(sub SubDevice) (uint16, error) {
	switch sub {
	case Inertial:
		v, err := bus.ReadRegByte(d.bus, Address, ICMREG_WHO_AM_I)
		return uint16(v), err
	case Magnetic:
		var buf [2]byte
		if err := bus.ReadReg(d.bus, MagAddress, AK09916_WIA1, buf[:]); err != nil {
			return 0, err
		}
		return uint16(buf[0]) | uint16(buf[1])<<8, nil
	}
	return 0, fmt.Errorf("icm20948: unknown sub-device %d", int(sub))
}

func (d *Device) checkIdentity(sub SubDevice, want uint16) error {
	got, err := d.Identify(sub)
	if err != nil {
		return err
	}
	if got != want {
		return &IdentityError{Sub: sub, Got: got, Want: want}
	}
	d.log.WithFields(logrus.Fields{"sub_device": sub.String(), "id": fmt.Sprintf("0x%X", got)}).Debug("identity ok")
	return nil
}

// Initialize brings both dies from power-on to continuous sampling. It stops
// at the first failure; on an inertial identity mismatch nothing is written.
// The caller must not sample after a failed Initialize.
func (d *Device) Initialize() error {
	if err := d.checkIdentity(Inertial, WhoAmI); err != nil {
		return err
	}

	if err := d.setRegBank(0); err != nil {
		return err
	}

	if err := d.softReset(); err != nil {
		return err
	}
	if d.resetSettle > 0 {
		d.sleep(d.resetSettle)
	}

	// CLKSEL = 1 also clears SLEEP.
	if err := d.i2cWrite(Address, ICMREG_PWR_MGMT_1, BIT_CLKSEL_AUTO); err != nil {
		return err
	}

	if d.bypass {
		if err := d.i2cWrite(Address, ICMREG_USER_CTRL, BIT_I2C_MST_RST); err != nil {
			return err
		}
		if err := d.i2cWrite(Address, ICMREG_INT_PIN_CFG, BIT_BYPASS_EN); err != nil {
			return err
		}
		d.log.Debug("I2C bypass enabled")
	}

	if err := d.checkIdentity(Magnetic, MagWhoAmI); err != nil {
		return err
	}

	if err := d.i2cWrite(MagAddress, AK09916_CNTL2, d.magMode); err != nil {
		return err
	}
	d.log.WithField("mode", fmt.Sprintf("0x%02X", d.magMode)).Info("ICM20948 initialized")
	return nil
}

// ReadInertial fetches the accel+gyro block in one transaction and returns
// angular rate in rad/s and acceleration in g.
func (d *Device) ReadInertial() (rate, accel r3.Vector, err error) {
	var buf [InertialBlockLen]byte
	if err = bus.ReadReg(d.bus, Address, ICMREG_ACCEL_XOUT_H, buf[:]); err != nil {
		return
	}
	a, g := DecodeInertial(buf)
	rate, accel = ScaleInertial(a, g)
	return
}

// ReadMagnetic fetches the AK09916 block in one transaction. Values are raw LSB.
// Reading through ST2 also releases the data latch for the next measurement.
func (d *Device) ReadMagnetic() (r3.Vector, error) {
	var buf [MagBlockLen]byte
	if err := bus.ReadReg(d.bus, MagAddress, AK09916_ST1, buf[:]); err != nil {
		return r3.Vector{}, err
	}
	return DecodeMagnetic(buf).Vector(), nil
}

func (d *Device) setRegBank(bank byte) error {
	return d.i2cWrite(Address, ICMREG_BANK_SEL, BankSelect(bank))
}

func (d *Device) softReset() error {
	v, err := bus.ReadRegByte(d.bus, Address, ICMREG_PWR_MGMT_1)
	if err != nil {
		return err
	}
	return d.i2cWrite(Address, ICMREG_PWR_MGMT_1, v|BIT_H_RESET)
}

func (d *Device) i2cWrite(addr, register, value byte) error {
	err := bus.WriteReg(d.bus, addr, register, value)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"addr": fmt.Sprintf("0x%02X", addr),
			"reg":  fmt.Sprintf("0x%02X", register),
		}).WithError(err).Debug("register write failed")
	}
	return err
}
