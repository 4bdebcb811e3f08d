// Package metrics exports loop counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "imuplayground"

// Collector implements pipeline.Metrics.
type Collector struct {
	ticks           prometheus.Counter
	failures        *prometheus.CounterVec
	frames          *prometheus.CounterVec
	inbound         prometheus.Counter
	transportErrors prometheus.Counter
	attitude        *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Sample ticks started.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_failures_total",
			Help:      "Ticks abandoned, by failing stage.",
		}, []string{"stage"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Telemetry frames, by transport outcome.",
		}, []string{"result"}),
		inbound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_bytes_total",
			Help:      "Host bytes drained and discarded.",
		}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Errors reported by the transport while servicing it.",
		}),
		attitude: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attitude_degrees",
			Help:      "Last transmitted Euler angle.",
		}, []string{"axis"}),
	}
	reg.MustRegister(c.ticks, c.failures, c.frames, c.inbound, c.transportErrors, c.attitude)
	return c
}

func (c *Collector) Tick()                   { c.ticks.Inc() }
func (c *Collector) TickFailed(stage string) { c.failures.WithLabelValues(stage).Inc() }
func (c *Collector) FrameSent()              { c.frames.WithLabelValues("sent").Inc() }
func (c *Collector) FrameDropped()           { c.frames.WithLabelValues("dropped").Inc() }
func (c *Collector) InboundBytes(n int)      { c.inbound.Add(float64(n)) }
func (c *Collector) TransportError()         { c.transportErrors.Inc() }

// Attitude records the angles of the last frame, in degrees.
func (c *Collector) Attitude(roll, pitch, yaw float64) {
	c.attitude.WithLabelValues("roll").Set(roll)
	c.attitude.WithLabelValues("pitch").Set(pitch)
	c.attitude.WithLabelValues("yaw").Set(yaw)
}

// Serve exposes g at /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
