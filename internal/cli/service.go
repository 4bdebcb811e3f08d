package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/takama/daemon"
)

const (
	serviceName        = "imuplayground"
	serviceDescription = "ICM-20948 orientation telemetry"
)

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage runs one daemon command.
func (service *Service) Manage(command string) (string, error) {
	usage := "Usage: " + serviceName + " service install | remove | start | stop | status"
	switch command {
	case "install":
		return service.Install("serve")
	case "remove":
		return service.Remove()
	case "start":
		return service.Start()
	case "stop":
		return service.Stop()
	case "status":
		return service.Status()
	default:
		return usage, nil
	}
}

func ServiceCmdRunE(cmd *cobra.Command, args []string) error {
	srv, err := daemon.New(serviceName, serviceDescription, daemon.SystemDaemon)
	if err != nil {
		return err
	}
	service := &Service{srv}
	status, err := service.Manage(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", status, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), status)
	return nil
}
