/*
Package pipeline runs the single-threaded sampling loop: a periodic gate
triggers a sample tick (read, fuse, encode, send) and every iteration services
the transport, whether or not a tick fired.

All hardware is owned by the Config handle passed to New. No call made by the
loop blocks; the only pacing is the Gate.
*/
package pipeline

import (
	"context"
	"io/ioutil"
	"math"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stratux/imuplayground/ahrs"
	"github.com/stratux/imuplayground/led"
	"github.com/stratux/imuplayground/telemetry"
	"github.com/stratux/imuplayground/transport"
)

// DefaultStatsEvery is how many ticks pass between sample log lines.
const DefaultStatsEvery = 20

// Sensor is the sampling surface of the device driver.
type Sensor interface {
	ReadInertial() (rate, accel r3.Vector, err error)
	ReadMagnetic() (r3.Vector, error)
}

// Metrics receives loop events. metrics.Collector implements it.
type Metrics interface {
	Tick()
	TickFailed(stage string)
	FrameSent()
	FrameDropped()
	InboundBytes(n int)
	TransportError()
	Attitude(roll, pitch, yaw float64)
}

// Config is the hardware handle set and tuning for one Loop.
type Config struct {
	Sensor    Sensor
	Estimator ahrs.Estimator
	Transport transport.Service
	Indicator led.Indicator

	// Period paces sample ticks. It must equal the estimator's sample period.
	Period time.Duration
	// Idle, when positive, is slept between iterations by Run.
	Idle time.Duration
	// StatsEvery ticks a sample line is logged at info level.
	StatsEvery int

	// Alignment and MagAlignment rotate sensor axes into the body frame.
	Alignment    *Alignment
	MagAlignment *Alignment

	Now     func() time.Time
	Log     logrus.FieldLogger
	Metrics Metrics
}

type periodic interface {
	SamplePeriod() time.Duration
}

// Loop is the scheduling loop. It is not safe for concurrent use.
type Loop struct {
	cfg     Config
	gate    *Gate
	enc     telemetry.Encoder
	inbound [64]byte
	n       int

	ticks, frames, dropped, failed uint64
}

// New validates c and arms the gate at c.Now().
func New(c Config) (*Loop, error) {
	switch {
	case c.Sensor == nil:
		return nil, errors.New("pipeline: no sensor")
	case c.Estimator == nil:
		return nil, errors.New("pipeline: no estimator")
	case c.Transport == nil:
		return nil, errors.New("pipeline: no transport")
	case c.Period <= 0:
		return nil, errors.Errorf("pipeline: invalid period %v", c.Period)
	}
	if p, ok := c.Estimator.(periodic); ok {
		if d := p.SamplePeriod() - c.Period; d > time.Microsecond || d < -time.Microsecond {
			return nil, errors.Errorf("pipeline: estimator sample period %v does not match loop period %v",
				p.SamplePeriod(), c.Period)
		}
	}
	if c.Indicator == nil {
		c.Indicator = led.Nop{}
	}
	if c.StatsEvery <= 0 {
		c.StatsEvery = DefaultStatsEvery
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		c.Log = l
	}
	if c.Metrics == nil {
		c.Metrics = nopMetrics{}
	}
	return &Loop{cfg: c, gate: NewGate(c.Period, c.Now())}, nil
}

// Tick samples, fuses and publishes one frame. A read or filter failure
// abandons the tick before the estimator or the transport is touched, and
// is returned for the caller to log. A refused write is not an error: the
// frame is dropped and the indicator switched off.
func (l *Loop) Tick() error {
	l.ticks++
	l.cfg.Metrics.Tick()

	mag, err := l.cfg.Sensor.ReadMagnetic()
	if err != nil {
		return l.fail("magnetic", errors.Wrap(err, "read magnetic"))
	}
	rate, accel, err := l.cfg.Sensor.ReadInertial()
	if err != nil {
		return l.fail("inertial", errors.Wrap(err, "read inertial"))
	}
	rate, accel = l.cfg.Alignment.Apply(rate), l.cfg.Alignment.Apply(accel)
	mag = l.cfg.MagAlignment.Apply(mag)

	if l.n++; l.n >= l.cfg.StatsEvery {
		l.n = 0
		l.logStats(accel, mag)
	}

	q, err := l.cfg.Estimator.Update(rate, accel, mag)
	if err != nil {
		return l.fail("filter", errors.Wrap(err, "update estimator"))
	}

	line := l.enc.Encode(accel, mag, q)
	if _, err := l.cfg.Transport.Write(line); err != nil {
		l.dropped++
		l.cfg.Metrics.FrameDropped()
		if !errors.Is(err, transport.ErrWouldBlock) {
			l.cfg.Log.WithError(err).Debug("frame write failed")
		}
		if err := l.cfg.Indicator.Off(); err != nil {
			l.cfg.Log.WithError(err).Debug("indicator")
		}
		return nil
	}
	l.frames++
	l.cfg.Metrics.FrameSent()
	if err := l.cfg.Indicator.Toggle(); err != nil {
		l.cfg.Log.WithError(err).Debug("indicator")
	}
	roll, pitch, yaw := ahrs.Euler(q)
	l.cfg.Metrics.Attitude(deg(roll), deg(pitch), deg(yaw))
	return nil
}

func (l *Loop) fail(stage string, err error) error {
	l.failed++
	l.cfg.Metrics.TickFailed(stage)
	return err
}

// Service polls the transport and drains one buffer of inbound bytes, which
// are discarded. Transport errors are returned for logging only.
func (l *Loop) Service() error {
	if !l.cfg.Transport.Poll() {
		return nil
	}
	n, err := l.cfg.Transport.Read(l.inbound[:])
	switch {
	case err == nil:
		l.cfg.Metrics.InboundBytes(n)
		return nil
	case errors.Is(err, transport.ErrWouldBlock):
		return nil
	default:
		l.cfg.Metrics.TransportError()
		return errors.Wrap(err, "serial read")
	}
}

// Step runs one loop iteration: a tick if the gate is due, then transport
// service. Errors are logged and dropped.
func (l *Loop) Step() {
	if l.gate.Due(l.cfg.Now()) {
		if err := l.Tick(); err != nil {
			l.cfg.Log.WithError(err).WithField("tick", l.ticks).Warn("tick abandoned")
		}
	}
	if err := l.Service(); err != nil {
		l.cfg.Log.WithError(err).Error("transport error")
	}
}

// Run steps until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.cfg.Log.WithField("period", l.cfg.Period).Info("sampling loop started")
	for {
		select {
		case <-ctx.Done():
			l.cfg.Log.WithFields(logrus.Fields{
				"ticks":   l.ticks,
				"frames":  l.frames,
				"dropped": l.dropped,
				"failed":  l.failed,
			}).Info("sampling loop stopped")
			return ctx.Err()
		default:
		}
		l.Step()
		if l.cfg.Idle > 0 {
			time.Sleep(l.cfg.Idle)
		} else {
			runtime.Gosched()
		}
	}
}

// Stats returns tick and frame counters.
func (l *Loop) Stats() (ticks, frames, dropped, failed uint64) {
	return l.ticks, l.frames, l.dropped, l.failed
}

func (l *Loop) logStats(accel, mag r3.Vector) {
	l.cfg.Log.WithFields(logrus.Fields{
		"acc":     accel.String(),
		"mag":     mag.String(),
		"ticks":   humanize.Comma(int64(l.ticks)),
		"frames":  humanize.Comma(int64(l.frames)),
		"dropped": humanize.Comma(int64(l.dropped)),
	}).Info("sample")
}

func deg(rad float64) float64 {
	return telemetry.NormalizeDegrees(rad * 180 / math.Pi)
}

type nopMetrics struct{}

func (nopMetrics) Tick()                    {}
func (nopMetrics) TickFailed(string)        {}
func (nopMetrics) FrameSent()               {}
func (nopMetrics) FrameDropped()            {}
func (nopMetrics) InboundBytes(int)         {}
func (nopMetrics) TransportError()          {}
func (nopMetrics) Attitude(_, _, _ float64) {}
