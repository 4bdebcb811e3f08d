package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tarm/serial"

	"github.com/stratux/imuplayground/diag"
	"github.com/stratux/imuplayground/telemetry"
	"github.com/stratux/imuplayground/transport"
)

const monitorReportEvery = 100

func MonitorCmdRunE(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetString("port")
	baud, _ := cmd.Flags().GetInt("baud")
	count, _ := cmd.Flags().GetInt("count")
	debug, _ := cmd.Flags().GetBool("debug")
	diag.Setup(os.Stderr, debug)

	if port == "" {
		found, err := transport.FindPort(transport.SysfsRoot, transport.DefaultVendorID, transport.DefaultProductID)
		if err != nil {
			return errors.Wrap(err, "find device")
		}
		port = found
	}

	// No read timeout: tarm/serial reports a timeout as io.EOF, which would
	// end the stream.
	s, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return errors.Wrapf(err, "open %s", port)
	}
	defer s.Close()
	// Drop whatever queued up before we attached.
	if err := s.Flush(); err != nil {
		return errors.Wrapf(err, "flush %s", port)
	}

	log.WithFields(log.Fields{"port": port, "baud": baud}).Info("monitoring telemetry")
	_, err = monitor(s, os.Stdout, count)
	return err
}

// monitor prints frames from r until it ends or count frames were shown.
// Malformed lines are skipped.
func monitor(r io.Reader, w io.Writer, count int) (int, error) {
	var (
		rd     = telemetry.NewReader(r)
		n, bad int
		start  = time.Now()
	)
	for count <= 0 || n < count {
		f, err := rd.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, telemetry.ErrMalformed) {
			bad++
			log.WithError(err).Debug("skipping line")
			continue
		}
		if err != nil {
			return n, err
		}
		n++
		fmt.Fprintf(w, "acc %6.3f %6.3f %6.3f  mag %7.1f %7.1f %7.1f  roll %6.2f pitch %6.2f yaw %6.2f\n",
			f.Accel.X, f.Accel.Y, f.Accel.Z, f.Mag.X, f.Mag.Y, f.Mag.Z, f.Roll, f.Pitch, f.Yaw)
		if n%monitorReportEvery == 0 {
			log.Infof("%s frames since %s, %s malformed", humanize.Comma(int64(n)),
				humanize.Time(start), humanize.Comma(int64(bad)))
		}
	}
	return n, nil
}
