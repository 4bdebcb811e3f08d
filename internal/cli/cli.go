package cli

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stratux/imuplayground/internal/config"
)

var RootCmd = &cobra.Command{
	Use:   "imuplayground",
	Short: "ICM-20948 orientation telemetry over USB serial",
	Long:  "ICM-20948 acquisition, fusion and telemetry pipeline",
}

func ServeCmdRunE(cmd *cobra.Command, args []string) error {
	app, err := NewMainApp(cmd, args).PrepareRun()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	return app.Run(ctx)
}

func ServeCmdFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "default configuration path")
	cmd.Flags().StringP("port", "p", config.DefaultPort, "serial device the telemetry is written to")
	cmd.Flags().Duration("period", config.DefaultPeriod, "sampling period")
	cmd.Flags().Bool("debug", false, "toggle debug logging")
}

var ServeCmd = &cobra.Command{
	Use: "serve",
	SuggestFor: []string{
		"ru", "ser",
	},
	Short: "serve samples the ICM-20948 and streams telemetry using predefined configs.",
	Long: `serve samples the ICM-20948 and streams telemetry using predefined configs, by the following order:
1. path specified in --config flag
2. path defined IMUPLAYGROUND_CONFIG environment variable
3. default location $HOME/.config/imuplayground/config.yaml, /etc/imuplayground/config.yaml, current directory
The parameters in the configuration file will be overwritten by the following order:
1. command line arguments
2. environment variables
`,
	Example: `  imuplayground serve --config=/path/to/config
  imuplayground serve --port /dev/ttyGS0 --period 50ms`,
	RunE: ServeCmdRunE,
}

func InitCmdFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "configuration to start from")
	cmd.Flags().Bool("print", false, "print config to stdout")
	cmd.Flags().BoolP("yes", "y", false, "overwrite")
	cmd.Flags().StringP("output", "o", config.DefaultConfig, "specify output directory")
}

var InitCmd = &cobra.Command{
	Use: "init",
	SuggestFor: []string{
		"ini", "in",
	},
	Short: "init create a configuration template",
	Long: `init create a configuration template.
If --print flag is present, the configuration will be printed to stdout.
If --output / -o flag is present, the configuration will be saved to the path specified
Otherwise init will output configuration file to $HOME/.config/imuplayground/config.yaml
If --yes / -y flag is present, the configuration will be overwrite without confirmation
`,
	Example: `  imuplayground init --print
  imuplayground init --output /path/to/config.yaml
  imuplayground init -o /path/to/config.yaml -y`,
	RunE: config.InitCfg,
}

func MonitorCmdFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("port", "p", "", "host side serial device, found by USB ID when empty")
	cmd.Flags().IntP("baud", "b", config.DefaultBaud, "baud rate")
	cmd.Flags().IntP("count", "n", 0, "stop after n frames, 0 runs until interrupted")
	cmd.Flags().Bool("debug", false, "toggle debug logging")
}

var MonitorCmd = &cobra.Command{
	Use: "monitor",
	SuggestFor: []string{
		"mon", "watch",
	},
	Short: "monitor prints telemetry frames received from a device",
	Long: `monitor opens the host side of the USB serial link and prints each frame.
Without --port the device is looked up by its USB vendor and product ID.
The port buffers are flushed and the first line after opening is discarded,
it may be a partial frame.
`,
	Example: `  imuplayground monitor
  imuplayground monitor -p /dev/ttyACM0
  imuplayground monitor -p /dev/ttyACM0 -n 100`,
	RunE: MonitorCmdRunE,
}

var ServiceCmd = &cobra.Command{
	Use:       "service install | remove | start | stop | status",
	Short:     "service manages the imuplayground system daemon",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"install", "remove", "start", "stop", "status"},
	Example: `  imuplayground service install
  imuplayground service status`,
	RunE: ServiceCmdRunE,
}

func getRootCmd() *cobra.Command {
	ServeCmdFlags(ServeCmd)
	RootCmd.AddCommand(ServeCmd)

	InitCmdFlags(InitCmd)
	RootCmd.AddCommand(InitCmd)

	MonitorCmdFlags(MonitorCmd)
	RootCmd.AddCommand(MonitorCmd)

	RootCmd.AddCommand(ServiceCmd)

	return RootCmd
}

func Execute() {
	rootCmd := getRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}
