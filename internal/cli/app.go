package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stratux/imuplayground/ahrs"
	"github.com/stratux/imuplayground/bus"
	"github.com/stratux/imuplayground/diag"
	"github.com/stratux/imuplayground/icm20948"
	"github.com/stratux/imuplayground/internal/config"
	"github.com/stratux/imuplayground/led"
	"github.com/stratux/imuplayground/metrics"
	"github.com/stratux/imuplayground/pipeline"
	"github.com/stratux/imuplayground/transport"
)

type MainApp interface {
	PrepareRun() (MainApp, error)
	Run(ctx context.Context) error
	GetOpt() *config.IMUPlaygroundOpt
	SetOpt(*config.IMUPlaygroundOpt)
}

type mainApp struct {
	name string
	cmd  *cobra.Command
	args []string
	opt  *config.IMUPlaygroundOpt
}

func NewMainApp(cmd *cobra.Command, args []string) MainApp {
	return &mainApp{
		cmd:  cmd,
		args: args,
	}
}

func (a *mainApp) GetOpt() *config.IMUPlaygroundOpt { return a.opt }

func (a *mainApp) SetOpt(opt *config.IMUPlaygroundOpt) { a.opt = opt }

func (a *mainApp) PrepareRun() (MainApp, error) {
	desc := config.NewIMUPlaygroundDesc()
	if err := desc.Parse(a.cmd); err != nil {
		return nil, err
	}
	diag.Setup(os.Stderr, desc.Opt.Debug)
	desc.PostParse()
	a.opt = &desc.Opt
	a.name = config.DefaultAppName
	return a, nil
}

// Run brings the hardware up and runs the sampling loop until ctx is done.
// Any error before the loop starts is fatal to the caller.
func (a *mainApp) Run(ctx context.Context) error {
	opt := a.opt
	log.Infoln("bus:", opt.Bus.Driver, opt.Bus.Number)
	log.Infoln("loop.period:", opt.Loop.Period)
	log.Infoln("filter:", opt.Filter.Algorithm)
	log.Infoln("transport.port:", opt.Transport.Port)
	log.Infoln("debug:", opt.Debug)

	if opt.Diag.Websocket != "" {
		h := diag.NewHook(opt.Diag.Websocket, diag.DefaultQueue)
		log.AddHook(h)
		defer h.Close()
	}

	if o := opt.Transport.Gadget; o.Configure {
		g, err := configureGadget(o)
		if err != nil {
			return errors.Wrap(err, "configure USB gadget")
		}
		defer func() {
			if err := g.Remove(o.Root); err != nil {
				log.WithError(err).Warn("removing USB gadget")
			}
		}()
	}

	b, err := openBus(opt.Bus)
	if err != nil {
		return errors.Wrap(err, "open bus")
	}
	defer b.Close()

	dev := icm20948.New(b,
		icm20948.WithBypass(opt.Device.Bypass),
		icm20948.WithMagRate(opt.Device.MagRateHz),
		icm20948.WithResetSettle(opt.Device.ResetSettle),
		icm20948.WithLogger(log.WithField("component", "icm20948")),
	)
	if err := dev.Initialize(); err != nil {
		return errors.Wrap(err, "initialize ICM-20948")
	}

	est, err := newEstimator(opt)
	if err != nil {
		return err
	}
	align, magAlign, err := newAlignment(opt)
	if err != nil {
		return err
	}

	port, err := transport.OpenPort(transport.Config{
		Name:        opt.Transport.Port,
		Baud:        opt.Transport.Baud,
		ReadTimeout: opt.Transport.ReadTimeout,
	})
	if err != nil {
		return errors.Wrapf(err, "open %s", opt.Transport.Port)
	}
	defer port.Close()

	ind, err := newIndicator(opt.LED)
	if err != nil {
		return errors.Wrap(err, "open indicator")
	}
	if c, ok := ind.(io.Closer); ok {
		defer c.Close()
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if opt.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, opt.Metrics.Listen, reg); err != nil {
				log.WithError(err).Error("metrics endpoint stopped")
			}
		}()
	}

	loop, err := pipeline.New(pipeline.Config{
		Sensor:       dev,
		Estimator:    est,
		Transport:    port,
		Indicator:    ind,
		Period:       opt.Loop.Period,
		Idle:         opt.Loop.Idle,
		StatsEvery:   opt.Loop.StatsEvery,
		Alignment:    align,
		MagAlignment: magAlign,
		Log:          log.WithField("component", "pipeline"),
		Metrics:      m,
	})
	if err != nil {
		return err
	}
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type closingBus interface {
	bus.Bus
	Close() error
}

func openBus(o config.BusOpt) (closingBus, error) {
	switch o.Driver {
	case "embd":
		b, err := bus.OpenEmbd(byte(o.Number))
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, errors.Errorf("unsupported bus.driver %q", o.Driver)
	}
}

// newEstimator builds the configured filter. Its sample period is the loop
// period so the two cannot drift apart.
func newEstimator(opt *config.IMUPlaygroundOpt) (ahrs.Estimator, error) {
	switch opt.Filter.Algorithm {
	case config.AlgorithmMadgwick:
		return ahrs.NewMadgwick(opt.Loop.Period, opt.Filter.Beta), nil
	case config.AlgorithmMahony:
		return ahrs.NewMahony(opt.Loop.Period, opt.Filter.Kp, opt.Filter.Ki), nil
	default:
		return nil, errors.Errorf("unknown filter.algorithm %q", opt.Filter.Algorithm)
	}
}

// newAlignment applies the configured rotation to both sensors.
func newAlignment(opt *config.IMUPlaygroundOpt) (accel, mag *pipeline.Alignment, err error) {
	m, ok := opt.AlignmentMatrix()
	if !ok {
		return nil, nil, nil
	}
	a, err := pipeline.NewAlignment(m)
	if err != nil {
		return nil, nil, err
	}
	return a, a, nil
}

func newIndicator(o config.LEDOpt) (led.Indicator, error) {
	switch o.Driver {
	case config.LEDNone, "":
		return led.Nop{}, nil
	case config.LEDEmbd:
		p, err := led.NewEmbdPin(o.Pin)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.LEDRPIO:
		p, err := led.NewRPIOPin(o.Pin)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.Errorf("unknown led.driver %q", o.Driver)
	}
}

func configureGadget(o config.GadgetOpt) (transport.Gadget, error) {
	g := transport.DefaultGadget()
	g.Name = o.Name
	g.UDC = o.UDC
	if g.UDC == "" {
		udc, err := transport.FirstUDC()
		if err != nil {
			return g, err
		}
		g.UDC = udc
	}
	log.WithFields(log.Fields{"gadget": g.Name, "udc": g.UDC}).Info("configuring USB gadget")
	return g, g.Configure(o.Root)
}
