package config

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const DefaultAppName = "imuplayground"
const DefaultConfigName = "config"
const DefaultConfigEnv = "IMUPLAYGROUND_CONFIG"

var userHomeDir, _ = os.UserHomeDir()
var DefaultConfig = path.Join(userHomeDir, ".config/"+DefaultAppName+"/"+DefaultConfigName+".yaml")
var DefaultConfigSearchPath0 = path.Join(userHomeDir, ".config", DefaultAppName)

const DefaultConfigSearchPath1 = "/etc/" + DefaultAppName
const DefaultConfigSearchPath2 = "./"
const DefaultConfigSearchPath3 = "/config"

const (
	DefaultBusDriver     = "embd"
	DefaultBusNumber     = 1
	DefaultMagRateHz     = 100
	DefaultResetSettle   = 10 * time.Millisecond
	DefaultAlgorithm     = AlgorithmMadgwick
	DefaultBeta          = 0.1
	DefaultKp            = 1.0
	DefaultKi            = 0.0
	DefaultPeriod        = 100 * time.Millisecond
	DefaultStatsEvery    = 20
	DefaultPort          = "/dev/ttyGS0"
	DefaultBaud          = 115200
	DefaultReadTimeout   = 100 * time.Millisecond
	DefaultLEDDriver     = LEDNone
	DefaultLEDPin        = 25
	DefaultMetricsListen = ""
	DefaultDiagWebsocket = ""
	DefaultGadgetName    = "imuplayground"
	DefaultGadgetRoot    = "/sys/kernel/config/usb_gadget"
	AlgorithmMadgwick    = "madgwick"
	AlgorithmMahony      = "mahony"
	LEDNone              = "none"
	LEDEmbd              = "embd"
	LEDRPIO              = "rpio"
)

type BusOpt struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Number int    `yaml:"number" mapstructure:"number"`
}

type DeviceOpt struct {
	Bypass      bool          `yaml:"bypass" mapstructure:"bypass"`
	ResetSettle time.Duration `yaml:"reset_settle" mapstructure:"reset_settle"`
	MagRateHz   int           `yaml:"mag_rate_hz" mapstructure:"mag_rate_hz"`
}

type FilterOpt struct {
	Algorithm string  `yaml:"algorithm" mapstructure:"algorithm"`
	Beta      float64 `yaml:"beta" mapstructure:"beta"`
	Kp        float64 `yaml:"kp" mapstructure:"kp"`
	Ki        float64 `yaml:"ki" mapstructure:"ki"`
}

type LoopOpt struct {
	Period     time.Duration `yaml:"period" mapstructure:"period"`
	StatsEvery int           `yaml:"stats_every" mapstructure:"stats_every"`
	Idle       time.Duration `yaml:"idle" mapstructure:"idle"`
}

type GadgetOpt struct {
	Configure bool   `yaml:"configure" mapstructure:"configure"`
	Root      string `yaml:"root" mapstructure:"root"`
	Name      string `yaml:"name" mapstructure:"name"`
	UDC       string `yaml:"udc" mapstructure:"udc"`
}

type TransportOpt struct {
	Port        string        `yaml:"port" mapstructure:"port"`
	Baud        int           `yaml:"baud" mapstructure:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	Gadget      GadgetOpt     `yaml:"gadget" mapstructure:"gadget"`
}

type LEDOpt struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Pin    int    `yaml:"pin" mapstructure:"pin"`
}

type MetricsOpt struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

type DiagOpt struct {
	Websocket string `yaml:"websocket" mapstructure:"websocket"`
}

type IMUPlaygroundOpt struct {
	Bus       BusOpt       `yaml:"bus" mapstructure:"bus"`
	Device    DeviceOpt    `yaml:"device" mapstructure:"device"`
	Filter    FilterOpt    `yaml:"filter" mapstructure:"filter"`
	Loop      LoopOpt      `yaml:"loop" mapstructure:"loop"`
	Transport TransportOpt `yaml:"transport" mapstructure:"transport"`
	LED       LEDOpt       `yaml:"led" mapstructure:"led"`
	Alignment []float64    `yaml:"alignment,omitempty" mapstructure:"alignment"` // row-major 3x3
	Metrics   MetricsOpt   `yaml:"metrics" mapstructure:"metrics"`
	Diag      DiagOpt      `yaml:"diag" mapstructure:"diag"`
	Debug     bool         `yaml:"debug" mapstructure:"debug"`
}

type IMUPlaygroundDesc struct {
	Opt   IMUPlaygroundOpt
	Viper *viper.Viper
}

func NewIMUPlaygroundDesc() IMUPlaygroundDesc {
	return IMUPlaygroundDesc{
		Opt:   NewIMUPlaygroundOpt(),
		Viper: nil,
	}
}

func NewIMUPlaygroundOpt() IMUPlaygroundOpt {
	return IMUPlaygroundOpt{
		Bus: BusOpt{
			Driver: DefaultBusDriver,
			Number: DefaultBusNumber,
		},
		Device: DeviceOpt{
			Bypass:      true,
			ResetSettle: DefaultResetSettle,
			MagRateHz:   DefaultMagRateHz,
		},
		Filter: FilterOpt{
			Algorithm: DefaultAlgorithm,
			Beta:      DefaultBeta,
			Kp:        DefaultKp,
			Ki:        DefaultKi,
		},
		Loop: LoopOpt{
			Period:     DefaultPeriod,
			StatsEvery: DefaultStatsEvery,
		},
		Transport: TransportOpt{
			Port:        DefaultPort,
			Baud:        DefaultBaud,
			ReadTimeout: DefaultReadTimeout,
			Gadget: GadgetOpt{
				Root: DefaultGadgetRoot,
				Name: DefaultGadgetName,
			},
		},
		LED: LEDOpt{
			Driver: DefaultLEDDriver,
			Pin:    DefaultLEDPin,
		},
		Metrics: MetricsOpt{Listen: DefaultMetricsListen},
		Diag:    DiagOpt{Websocket: DefaultDiagWebsocket},
		Debug:   false,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bus.driver", DefaultBusDriver)
	v.SetDefault("bus.number", DefaultBusNumber)
	v.SetDefault("device.bypass", true)
	v.SetDefault("device.reset_settle", DefaultResetSettle)
	v.SetDefault("device.mag_rate_hz", DefaultMagRateHz)
	v.SetDefault("filter.algorithm", DefaultAlgorithm)
	v.SetDefault("filter.beta", DefaultBeta)
	v.SetDefault("filter.kp", DefaultKp)
	v.SetDefault("filter.ki", DefaultKi)
	v.SetDefault("loop.period", DefaultPeriod)
	v.SetDefault("loop.stats_every", DefaultStatsEvery)
	v.SetDefault("loop.idle", time.Duration(0))
	v.SetDefault("transport.port", DefaultPort)
	v.SetDefault("transport.baud", DefaultBaud)
	v.SetDefault("transport.read_timeout", DefaultReadTimeout)
	v.SetDefault("transport.gadget.configure", false)
	v.SetDefault("transport.gadget.root", DefaultGadgetRoot)
	v.SetDefault("transport.gadget.name", DefaultGadgetName)
	v.SetDefault("transport.gadget.udc", "")
	v.SetDefault("led.driver", DefaultLEDDriver)
	v.SetDefault("led.pin", DefaultLEDPin)
	v.SetDefault("metrics.listen", DefaultMetricsListen)
	v.SetDefault("diag.websocket", DefaultDiagWebsocket)
	v.SetDefault("debug", false)
}

func (o *IMUPlaygroundDesc) Parse(cmd *cobra.Command) error {
	vipCfg := viper.New()
	setDefaults(vipCfg)

	if configFileCmd, err := cmd.Flags().GetString("config"); err == nil && configFileCmd != "" {
		vipCfg.SetConfigFile(configFileCmd)
	} else {
		configFileEnv := os.Getenv(DefaultConfigEnv)
		if configFileEnv != "" {
			vipCfg.SetConfigFile(configFileEnv)
		} else {
			vipCfg.SetConfigName(DefaultConfigName)
			vipCfg.SetConfigType("yaml")
			vipCfg.AddConfigPath(DefaultConfigSearchPath0)
			vipCfg.AddConfigPath(DefaultConfigSearchPath1)
			vipCfg.AddConfigPath(DefaultConfigSearchPath2)
			vipCfg.AddConfigPath(DefaultConfigSearchPath3)
		}
	}

	vipCfg.SetEnvPrefix(DefaultAppName)
	vipCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vipCfg.AutomaticEnv()

	_ = vipCfg.BindPFlag("transport.port", cmd.Flags().Lookup("port"))
	_ = vipCfg.BindPFlag("loop.period", cmd.Flags().Lookup("period"))
	_ = vipCfg.BindPFlag("debug", cmd.Flags().Lookup("debug"))

	// If a config file is found, read it in.
	if err := vipCfg.ReadInConfig(); err == nil {
		log.Debugln("using config file:", vipCfg.ConfigFileUsed())
	} else {
		log.Warnln(err)
	}

	if err := vipCfg.Unmarshal(&o.Opt); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}

	o.Viper = vipCfg
	return o.Opt.Validate()
}

func (o *IMUPlaygroundDesc) PostParse() {
	if o.Opt.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// Validate rejects option sets the device cannot run with.
func (o IMUPlaygroundOpt) Validate() error {
	if o.Loop.Period <= 0 {
		return errors.Errorf("loop.period must be positive, got %v", o.Loop.Period)
	}
	switch o.Filter.Algorithm {
	case AlgorithmMadgwick, AlgorithmMahony:
	default:
		return errors.Errorf("unknown filter.algorithm %q", o.Filter.Algorithm)
	}
	switch o.Device.MagRateHz {
	case 10, 20, 50, 100:
	default:
		return errors.Errorf("device.mag_rate_hz must be 10, 20, 50 or 100, got %d", o.Device.MagRateHz)
	}
	switch o.LED.Driver {
	case LEDNone, LEDEmbd, LEDRPIO:
	default:
		return errors.Errorf("unknown led.driver %q", o.LED.Driver)
	}
	if n := len(o.Alignment); n != 0 && n != 9 {
		return errors.Errorf("alignment needs 9 values, got %d", n)
	}
	return nil
}

// AlignmentMatrix returns the configured alignment and whether one is set.
func (o IMUPlaygroundOpt) AlignmentMatrix() (m [9]float64, ok bool) {
	if len(o.Alignment) != 9 {
		return m, false
	}
	copy(m[:], o.Alignment)
	return m, true
}

func (o *IMUPlaygroundDesc) SaveConfig() error {
	if o.Viper == nil {
		return errors.New("viper is nil")
	}
	return writeYAML(o.Viper.ConfigFileUsed(), o.Opt)
}

func writeYAML(outputPath string, opt interface{}) error {
	buffer, err := yaml.Marshal(opt)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w := bufio.NewWriter(f)
	if _, err = w.Write(buffer); err != nil {
		return err
	}
	return w.Flush()
}

func askForConfirmationDefaultYes(s string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [Y/n]: ", s)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes" || response == ""
}

// DumpOption writes opt as YAML to outputPath, creating its directory and
// asking before an existing file is replaced unless overwrite is set.
func DumpOption(opt interface{}, outputPath string, overwrite bool) error {
	parentPath := path.Dir(outputPath)
	if err := os.MkdirAll(parentPath, 0700); err != nil {
		return errors.Wrapf(err, "cannot create directory %s", parentPath)
	}
	if !overwrite {
		if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
			if !askForConfirmationDefaultYes("configuration " + outputPath + " already exist, overwrite?") {
				log.Infoln("abort")
				return nil
			}
		}
	}
	log.Infoln("writing default configuration to", outputPath)
	return writeYAML(outputPath, opt)
}

// InitCfg prepares a configuration template for the application.
func InitCfg(cmd *cobra.Command, _ []string) error {
	printFlag, _ := cmd.Flags().GetBool("print")
	outputPath, _ := cmd.Flags().GetString("output")
	overwriteFlag, _ := cmd.Flags().GetBool("yes")

	desc := NewIMUPlaygroundDesc()
	if err := desc.Parse(cmd); err != nil {
		log.Errorln(err)
		return err
	}

	if printFlag {
		configBuffer, _ := yaml.Marshal(desc.Opt)
		fmt.Println(string(configBuffer))
		return nil
	}
	return DumpOption(desc.Opt, outputPath, overwriteFlag)
}
