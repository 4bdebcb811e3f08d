//go:build !tinygo

// icm20948-probe walks an ICM-20948 through the bypass bring-up one register
// at a time, dumping the register banks between steps, then reads the
// AK09916 identity and a few inertial samples.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stratux/imuplayground/bus"
	"github.com/stratux/imuplayground/diag"
	"github.com/stratux/imuplayground/icm20948"
)

const rule = "================================================================================"

type prober struct {
	b     bus.Bus
	w     io.Writer
	sleep func(time.Duration)
	bank  int
}

func newProber(b bus.Bus, w io.Writer, sleep func(time.Duration)) *prober {
	return &prober{b: b, w: w, sleep: sleep, bank: -1}
}

func (p *prober) step(title string) {
	fmt.Fprintf(p.w, "\n%s\n%s\n%s\n", rule, title, rule)
}

func (p *prober) setBank(bank int) error {
	if p.bank == bank {
		return nil
	}
	old := "None"
	if p.bank >= 0 {
		old = fmt.Sprint(p.bank)
	}
	fmt.Fprintf(p.w, "  [BANK] Switching from Bank %s to Bank %d\n", old, bank)
	if err := bus.WriteReg(p.b, icm20948.Address, icm20948.ICMREG_BANK_SEL, icm20948.BankSelect(byte(bank))); err != nil {
		return err
	}
	p.bank = bank
	p.sleep(time.Millisecond)
	return nil
}

func (p *prober) readReg(reg byte) (byte, error) {
	return bus.ReadRegByte(p.b, icm20948.Address, reg)
}

// writeAndVerify writes reg and reads it back. Self-clearing bits such as
// H_RESET legitimately read back different.
func (p *prober) writeAndVerify(reg, value byte, name string) error {
	if err := bus.WriteReg(p.b, icm20948.Address, reg, value); err != nil {
		return err
	}
	p.sleep(5 * time.Millisecond)
	readback, err := p.readReg(reg)
	if err != nil {
		return err
	}
	mark := "✓"
	if readback != value {
		mark = "✗"
	}
	fmt.Fprintf(p.w, "  [WRITE] %s (0x%02X) = 0x%02X %s (readback: 0x%02X)\n", name, reg, value, mark, readback)
	return nil
}

func (p *prober) dump(bank int, regs []namedReg) error {
	if err := p.setBank(bank); err != nil {
		return err
	}
	fmt.Fprintf(p.w, "  [DUMP] Bank %d:\n", bank)
	for _, r := range regs {
		v, err := p.readReg(r.reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.w, "    %-13s (0x%02X) = 0x%02X%s\n", r.name, r.reg, v, decode(bank, r.reg, v))
	}
	return nil
}

type namedReg struct {
	name string
	reg  byte
}

var bank0 = []namedReg{
	{"WHO_AM_I", icm20948.ICMREG_WHO_AM_I},
	{"PWR_MGMT_1", icm20948.ICMREG_PWR_MGMT_1},
	{"PWR_MGMT_2", icm20948.ICMREG_PWR_MGMT_2},
	{"USER_CTRL", icm20948.ICMREG_USER_CTRL},
	{"INT_PIN_CFG", icm20948.ICMREG_INT_PIN_CFG},
}

var bank2 = []namedReg{
	{"GYRO_CONFIG_1", icm20948.ICMREG_GYRO_CONFIG_1},
	{"ACCEL_CONFIG", icm20948.ICMREG_ACCEL_CONFIG},
}

func decode(bank int, reg, v byte) string {
	if bank != 0 {
		return ""
	}
	var bits []string
	switch reg {
	case icm20948.ICMREG_PWR_MGMT_1:
		if v&icm20948.BIT_SLEEP != 0 {
			bits = append(bits, "SLEEP")
		}
		if v&0x07 == icm20948.BIT_CLKSEL_AUTO {
			bits = append(bits, "CLKSEL_AUTO")
		}
	case icm20948.ICMREG_USER_CTRL:
		if v&0x20 != 0 {
			bits = append(bits, "I2C_MST_EN")
		}
	case icm20948.ICMREG_INT_PIN_CFG:
		if v&icm20948.BIT_BYPASS_EN != 0 {
			bits = append(bits, "BYPASS")
		}
	default:
		return ""
	}
	if len(bits) == 0 {
		return " [NONE]"
	}
	return " [" + strings.Join(bits, " | ") + "]"
}

func (p *prober) run(samples int) error {
	p.step("STEP 1: Identify ICM20948")
	if err := p.dump(0, bank0); err != nil {
		return err
	}
	who, err := p.readReg(icm20948.ICMREG_WHO_AM_I)
	if err != nil {
		return err
	}
	if who != icm20948.WhoAmI {
		return &icm20948.IdentityError{Sub: icm20948.Inertial, Got: uint16(who), Want: icm20948.WhoAmI}
	}

	p.step("STEP 2: Reset and wake ICM20948")
	if err := p.writeAndVerify(icm20948.ICMREG_PWR_MGMT_1, icm20948.BIT_H_RESET, "PWR_MGMT_1 (RESET)"); err != nil {
		return err
	}
	p.sleep(100 * time.Millisecond)
	if err := p.writeAndVerify(icm20948.ICMREG_PWR_MGMT_1, icm20948.BIT_CLKSEL_AUTO, "PWR_MGMT_1 (WAKE + AUTO CLOCK)"); err != nil {
		return err
	}
	p.sleep(10 * time.Millisecond)
	if err := p.writeAndVerify(icm20948.ICMREG_PWR_MGMT_2, 0x00, "PWR_MGMT_2 (ALL SENSORS ON)"); err != nil {
		return err
	}
	if err := p.dump(2, bank2); err != nil {
		return err
	}

	p.step("STEP 3: Enable I2C bypass")
	if err := p.setBank(0); err != nil {
		return err
	}
	if err := p.writeAndVerify(icm20948.ICMREG_USER_CTRL, icm20948.BIT_I2C_MST_RST, "USER_CTRL (I2C_MST_RST)"); err != nil {
		return err
	}
	if err := p.writeAndVerify(icm20948.ICMREG_INT_PIN_CFG, icm20948.BIT_BYPASS_EN, "INT_PIN_CFG (BYPASS ON)"); err != nil {
		return err
	}
	p.sleep(10 * time.Millisecond)
	if err := p.dump(0, bank0); err != nil {
		return err
	}

	p.step("STEP 4: Identify AK09916 through the bypass")
	var wia [2]byte
	if err := bus.ReadReg(p.b, icm20948.MagAddress, icm20948.AK09916_WIA1, wia[:]); err != nil {
		fmt.Fprintf(p.w, "  ✗ FAILED! %v\n", err)
		return err
	}
	id := uint16(wia[1])<<8 | uint16(wia[0])
	if id != icm20948.MagWhoAmI {
		fmt.Fprintf(p.w, "  ✗ FAILED! WIA = 0x%04X (expect 0x%04X)\n", id, icm20948.MagWhoAmI)
		return &icm20948.IdentityError{Sub: icm20948.Magnetic, Got: id, Want: icm20948.MagWhoAmI}
	}
	fmt.Fprintf(p.w, "  ✓ AK09916 WIA = 0x%04X (CORRECT!)\n", id)

	p.step("STEP 5: Inertial samples")
	for i := 0; i < samples; i++ {
		var block [icm20948.InertialBlockLen]byte
		if err := bus.ReadReg(p.b, icm20948.Address, icm20948.ICMREG_ACCEL_XOUT_H, block[:]); err != nil {
			return err
		}
		rate, acc := icm20948.ScaleInertial(icm20948.DecodeInertial(block))
		fmt.Fprintf(p.w, "  [%02d] accel %6.3f %6.3f %6.3f g  rate %7.3f %7.3f %7.3f rad/s\n",
			i+1, acc.X, acc.Y, acc.Z, rate.X, rate.Y, rate.Z)
		p.sleep(100 * time.Millisecond)
	}

	p.step("PROBE COMPLETE - bypass is working!")
	return nil
}

func main() {
	cmd := &cobra.Command{
		Use:   "icm20948-probe",
		Short: "register level bring-up of an ICM-20948 on Linux i2c-dev",
		RunE: func(cmd *cobra.Command, _ []string) error {
			number, _ := cmd.Flags().GetUint8("bus")
			samples, _ := cmd.Flags().GetInt("samples")
			diag.Setup(os.Stderr, true)

			b, err := bus.OpenEmbd(number)
			if err != nil {
				return err
			}
			defer b.Close()
			return newProber(b, os.Stdout, time.Sleep).run(samples)
		},
	}
	cmd.Flags().Uint8("bus", 1, "I2C bus number")
	cmd.Flags().Int("samples", 5, "inertial samples to print")
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
