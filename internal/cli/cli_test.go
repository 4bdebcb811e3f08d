package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	"github.com/stratux/imuplayground/ahrs"
	"github.com/stratux/imuplayground/internal/config"
	"github.com/stratux/imuplayground/led"
)

func TestNewEstimatorUsesLoopPeriod(t *testing.T) {
	opt := config.NewIMUPlaygroundOpt()
	opt.Loop.Period = 20 * time.Millisecond

	est, err := newEstimator(&opt)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := est.(*ahrs.Madgwick)
	if !ok {
		t.Fatalf("estimator = %T", est)
	}
	if m.SamplePeriod() != 20*time.Millisecond {
		t.Errorf("sample period = %v", m.SamplePeriod())
	}

	opt.Filter.Algorithm = config.AlgorithmMahony
	est, err = newEstimator(&opt)
	if err != nil {
		t.Fatal(err)
	}
	if h, ok := est.(*ahrs.Mahony); !ok || h.SamplePeriod() != 20*time.Millisecond {
		t.Errorf("estimator = %T", est)
	}

	opt.Filter.Algorithm = "ekf"
	if _, err := newEstimator(&opt); err == nil {
		t.Error("unknown algorithm accepted")
	}
}

func TestNewAlignment(t *testing.T) {
	opt := config.NewIMUPlaygroundOpt()
	a, m, err := newAlignment(&opt)
	if err != nil || a != nil || m != nil {
		t.Fatalf("default alignment = %v %v %v", a, m, err)
	}

	opt.Alignment = []float64{1, 0, 0, 0, -1, 0, 0, 0, -1}
	a, m, err = newAlignment(&opt)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Apply(r3.Vector{X: 1, Y: 1, Z: 1}); got != (r3.Vector{X: 1, Y: -1, Z: -1}) {
		t.Errorf("accel alignment = %v", got)
	}
	if m == nil {
		t.Error("magnetometer alignment missing")
	}

	opt.Alignment = []float64{1, 1, 0, 0, 1, 0, 0, 0, 1}
	if _, _, err := newAlignment(&opt); err == nil {
		t.Error("shear accepted")
	}
}

func TestNewIndicatorNone(t *testing.T) {
	ind, err := newIndicator(config.LEDOpt{Driver: config.LEDNone})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ind.(led.Nop); !ok {
		t.Errorf("indicator = %T", ind)
	}
	if _, err := newIndicator(config.LEDOpt{Driver: "pwm"}); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestOpenBusRejectsUnknownDriver(t *testing.T) {
	if _, err := openBus(config.BusOpt{Driver: "spi"}); err == nil {
		t.Error("unknown bus driver accepted")
	}
}

func TestMonitor(t *testing.T) {
	in := strings.Join([]string{
		".5,1,0,0,0,0,0,0,0", // partial frame from mid-stream attach
		"0,0,1,120,-33,400,10,350,270",
		"garbage",
		"0.5,-0.25,1,1,2,3,0,0,90",
		"0,0,1,0,0,0,0,0,0",
	}, "\r\n") + "\r\n"

	var out bytes.Buffer
	n, err := monitor(strings.NewReader(in), &out, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("frames = %d, want 2", n)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q", out.String())
	}
	if !strings.Contains(lines[0], "yaw 270.00") || !strings.Contains(lines[1], "yaw  90.00") {
		t.Errorf("output = %q", out.String())
	}
}

func TestMonitorEmptyStream(t *testing.T) {
	n, err := monitor(strings.NewReader(""), &bytes.Buffer{}, 0)
	if err != nil || n != 0 {
		t.Errorf("monitor = %d, %v", n, err)
	}
}

func TestServiceUsage(t *testing.T) {
	s := &Service{}
	out, err := s.Manage("restart")
	if err != nil || !strings.HasPrefix(out, "Usage:") {
		t.Errorf("Manage = %q, %v", out, err)
	}
}
