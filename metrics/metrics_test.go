package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Tick()
	c.Tick()
	c.TickFailed("inertial")
	c.FrameSent()
	c.FrameDropped()
	c.FrameDropped()
	c.InboundBytes(64)
	c.InboundBytes(3)
	c.TransportError()
	c.Attitude(1, 2, 359)

	for name, m := range map[string]struct {
		got, want float64
	}{
		"ticks":     {testutil.ToFloat64(c.ticks), 2},
		"inertial":  {testutil.ToFloat64(c.failures.WithLabelValues("inertial")), 1},
		"sent":      {testutil.ToFloat64(c.frames.WithLabelValues("sent")), 1},
		"dropped":   {testutil.ToFloat64(c.frames.WithLabelValues("dropped")), 2},
		"inbound":   {testutil.ToFloat64(c.inbound), 67},
		"transport": {testutil.ToFloat64(c.transportErrors), 1},
		"yaw":       {testutil.ToFloat64(c.attitude.WithLabelValues("yaw")), 359},
	} {
		if m.got != m.want {
			t.Errorf("%s = %v, want %v", name, m.got, m.want)
		}
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(mfs) != 6 {
		t.Errorf("gathered %d families", len(mfs))
	}
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("second New on the same registry did not panic")
		}
	}()
	New(reg)
}
