//go:build !tinygo

// magnetometer-test initializes the ICM-20948 in bypass mode and prints the
// AK09916 field next to the inertial readings once per interval.
package main

import (
	"math"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stratux/imuplayground/bus"
	"github.com/stratux/imuplayground/diag"
	"github.com/stratux/imuplayground/icm20948"
)

func main() {
	cmd := &cobra.Command{
		Use:   "magnetometer-test",
		Short: "standalone AK09916 readout through the ICM-20948 bypass",
		RunE:  run,
	}
	cmd.Flags().Uint8("bus", 1, "I2C bus number")
	cmd.Flags().Int("rate", icm20948.DefaultMagRate, "magnetometer continuous mode rate, Hz")
	cmd.Flags().Duration("interval", time.Second, "time between readouts")
	cmd.Flags().Int("count", 0, "stop after n readouts, 0 runs until interrupted")
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	number, _ := cmd.Flags().GetUint8("bus")
	rate, _ := cmd.Flags().GetInt("rate")
	interval, _ := cmd.Flags().GetDuration("interval")
	count, _ := cmd.Flags().GetInt("count")
	diag.Setup(os.Stderr, false)

	log.Println("===========================================")
	log.Println("ICM20948 Magnetometer Standalone Test")
	log.Println("===========================================")
	log.Printf("Initializing ICM20948 on I2C bus %d, mag rate %d Hz", number, rate)

	b, err := bus.OpenEmbd(number)
	if err != nil {
		return err
	}
	defer b.Close()

	dev := icm20948.New(b,
		icm20948.WithMagRate(rate),
		icm20948.WithResetSettle(10*time.Millisecond),
		icm20948.WithLogger(log.StandardLogger()),
	)
	if err := dev.Initialize(); err != nil {
		log.Fatalf("FATAL: Failed to initialize ICM20948: %v", err)
	}
	log.Println("ICM20948 initialized successfully!")
	log.Println("Press Ctrl+C to exit")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 1; count <= 0 || i <= count; i++ {
		<-ticker.C
		readout(dev, i, log.StandardLogger())
	}
	return nil
}

// readout logs one magnetometer and inertial reading. It reports whether
// the field was non-zero.
func readout(dev *icm20948.Device, n int, l log.FieldLogger) bool {
	mag, err := dev.ReadMagnetic()
	if err != nil {
		l.Printf("[%04d] ERROR reading magnetometer: %v", n, err)
		return false
	}
	rate, acc, err := dev.ReadInertial()
	if err != nil {
		l.Printf("[%04d] ERROR reading inertial: %v", n, err)
		return false
	}
	l.Printf("[%04d] Gyro: X=%7.2f Y=%7.2f Z=%7.2f °/s | Accel: X=%6.3f Y=%6.3f Z=%6.3f g",
		n, deg(rate.X), deg(rate.Y), deg(rate.Z), acc.X, acc.Y, acc.Z)
	l.Printf("[%04d] **MAG: X=%7.0f Y=%7.0f Z=%7.0f LSB**", n, mag.X, mag.Y, mag.Z)
	if mag.X == 0 && mag.Y == 0 && mag.Z == 0 {
		l.Warnf("[%04d] Magnetometer returns all zeros!", n)
		return false
	}
	return true
}

func deg(rad float64) float64 {
	return rad * 180 / math.Pi
}
