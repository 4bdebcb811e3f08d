package icm20948

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stratux/imuplayground/bus"
	"github.com/stratux/imuplayground/bus/bustest"
)

const eps = 1e-9

// newChip returns a fake bus with both dies attached and reporting valid identities.
func newChip() (*bustest.Fake, *bustest.Device, *bustest.Device) {
	f := bustest.New()
	imu := f.Attach(Address)
	imu.Regs[ICMREG_WHO_AM_I] = WhoAmI
	imu.Regs[ICMREG_PWR_MGMT_1] = 0x41 // power-on: SLEEP | CLKSEL=1
	mag := f.Attach(MagAddress)
	mag.Regs[AK09916_WIA1] = 0x48
	mag.Regs[AK09916_WIA2] = 0x09
	return f, imu, mag
}

func TestIdentify(t *testing.T) {
	f, _, _ := newChip()
	d := New(f)

	id, err := d.Identify(Inertial)
	if err != nil || id != WhoAmI {
		t.Errorf("Identify(Inertial) = 0x%X, %v", id, err)
	}
	id, err = d.Identify(Magnetic)
	if err != nil || id != MagWhoAmI {
		t.Errorf("Identify(Magnetic) = 0x%X, %v", id, err)
	}
	if w := f.Writes(Address); len(w) != 0 {
		t.Errorf("Identify wrote to the device: %+v", w)
	}
}

func TestInitializeSequence(t *testing.T) {
	f, imu, mag := newChip()
	var slept time.Duration
	d := New(f, WithResetSettle(100*time.Millisecond), WithSleep(func(d time.Duration) { slept += d }))

	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if slept != 100*time.Millisecond {
		t.Errorf("settle = %v", slept)
	}

	want := []struct {
		addr uint8
		w    []byte
	}{
		{Address, []byte{ICMREG_BANK_SEL, 0x00}},
		{Address, []byte{ICMREG_PWR_MGMT_1, 0x41 | BIT_H_RESET}},
		{Address, []byte{ICMREG_PWR_MGMT_1, BIT_CLKSEL_AUTO}},
		{Address, []byte{ICMREG_USER_CTRL, BIT_I2C_MST_RST}},
		{Address, []byte{ICMREG_INT_PIN_CFG, BIT_BYPASS_EN}},
		{MagAddress, []byte{AK09916_CNTL2, AK09916_MODE_CONT4}},
	}
	var got []bustest.Tx
	for _, tx := range f.Log() {
		if tx.Op == bus.OpWrite {
			got = append(got, tx)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %d writes, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Addr != want[i].addr || !bytes.Equal(got[i].W, want[i].w) {
			t.Errorf("write %d: 0x%02X % X, want 0x%02X % X", i, got[i].Addr, got[i].W, want[i].addr, want[i].w)
		}
	}
	if imu.Regs[ICMREG_PWR_MGMT_1] != BIT_CLKSEL_AUTO {
		t.Errorf("PWR_MGMT_1 = 0x%02X", imu.Regs[ICMREG_PWR_MGMT_1])
	}
	if mag.Regs[AK09916_CNTL2] != AK09916_MODE_CONT4 {
		t.Errorf("CNTL2 = 0x%02X", mag.Regs[AK09916_CNTL2])
	}
}

func TestInitializeIdentityMismatchWritesNothing(t *testing.T) {
	f, imu, _ := newChip()
	imu.Regs[ICMREG_WHO_AM_I] = 0x71 // an MPU-9250

	err := New(f).Initialize()
	if !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("got %v, want ErrIdentityMismatch", err)
	}
	var ie *IdentityError
	if !errors.As(err, &ie) || ie.Sub != Inertial || ie.Got != 0x71 || ie.Want != WhoAmI {
		t.Errorf("IdentityError = %+v", ie)
	}
	for _, tx := range f.Log() {
		if tx.Op == bus.OpWrite {
			t.Errorf("unexpected write after mismatch: %+v", tx)
		}
	}
}

func TestInitializeMagIdentityMismatch(t *testing.T) {
	f, _, mag := newChip()
	mag.Regs[AK09916_WIA2] = 0x0A

	err := New(f).Initialize()
	var ie *IdentityError
	if !errors.As(err, &ie) || ie.Sub != Magnetic || ie.Got != 0x0A48 {
		t.Fatalf("got %v", err)
	}
	if w := f.Writes(MagAddress); len(w) != 0 {
		t.Errorf("magnetometer configured despite mismatch: %+v", w)
	}
}

func TestInitializePropagatesBusError(t *testing.T) {
	f, _, _ := newChip()
	boom := errors.New("arbitration lost")
	f.FailNext(bus.OpWrite, Address, boom)

	err := New(f).Initialize()
	var be *bus.Error
	if !errors.As(err, &be) || !errors.Is(err, boom) {
		t.Fatalf("got %v, want the bus error unchanged", err)
	}
	if n := len(f.Log()); n != 2 {
		t.Errorf("driver kept going or retried: %d transactions", n)
	}
}

func TestInitializeWithoutBypassCannotReachMag(t *testing.T) {
	f := bustest.New()
	imu := f.Attach(Address)
	imu.Regs[ICMREG_WHO_AM_I] = WhoAmI

	err := New(f, WithBypass(false)).Initialize()
	if !errors.Is(err, bustest.ErrNack) {
		t.Fatalf("got %v", err)
	}
	for _, tx := range f.Writes(Address) {
		if tx.W[0] == ICMREG_INT_PIN_CFG {
			t.Error("bypass enabled although disabled by option")
		}
	}
}

func TestMagMode(t *testing.T) {
	for _, c := range []struct {
		hz   int
		mode byte
	}{
		{1, AK09916_MODE_CONT1},
		{10, AK09916_MODE_CONT1},
		{20, AK09916_MODE_CONT2},
		{50, AK09916_MODE_CONT3},
		{100, AK09916_MODE_CONT4},
		{1000, AK09916_MODE_CONT4},
	} {
		if got := magMode(c.hz); got != c.mode {
			t.Errorf("magMode(%d) = 0x%02X, want 0x%02X", c.hz, got, c.mode)
		}
	}
}

func TestReadInertial(t *testing.T) {
	f, imu, _ := newChip()
	copy(imu.Regs[ICMREG_ACCEL_XOUT_H:], []byte{
		0x40, 0x00, // ax = 16384 -> 1 g
		0xC0, 0x00, // ay = -16384 -> -1 g
		0x00, 0x00,
		0x00, 0x83, // gx = 131 -> 1 deg/s
		0xFF, 0x7D, // gy = -131
		0x00, 0x00,
	})

	rate, acc, err := New(f).ReadInertial()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(acc.X-1) > eps || math.Abs(acc.Y+1) > eps || acc.Z != 0 {
		t.Errorf("accel = %v", acc)
	}
	deg := math.Pi / 180
	if math.Abs(rate.X-deg) > eps || math.Abs(rate.Y+deg) > eps || rate.Z != 0 {
		t.Errorf("rate = %v", rate)
	}

	log := f.Log()
	last := log[len(log)-1]
	if len(log) != 1 || last.Op != bus.OpWriteRead || last.N != InertialBlockLen {
		t.Errorf("not a single block transaction: %+v", log)
	}
}

func TestReadMagnetic(t *testing.T) {
	f, _, mag := newChip()
	copy(mag.Regs[AK09916_ST1:], []byte{0x01, 0x10, 0x00, 0xF0, 0xFF, 0x00, 0x01, 0x55, 0x10})

	m, err := New(f).ReadMagnetic()
	if err != nil {
		t.Fatal(err)
	}
	if m.X != 16 || m.Y != -16 || m.Z != 256 {
		t.Errorf("mag = %v", m)
	}
}

func TestReadErrorsAreUnchanged(t *testing.T) {
	f, _, _ := newChip()
	boom := errors.New("nack")
	f.FailNext(bus.OpWriteRead, MagAddress, boom)

	_, err := New(f).ReadMagnetic()
	var be *bus.Error
	if !errors.As(err, &be) || be.Addr != MagAddress || !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}
