package icm20948

// Bus addresses.
const (
	Address    = 0x68 // ICM-20948, AD0 low
	MagAddress = 0x0C // AK09916 behind the bypass bridge
)

// Identity constants.
const (
	WhoAmI    = 0xEA   // ICM-20948 WHO_AM_I
	MagWhoAmI = 0x0948 // AK09916 WIA2:WIA1
)

// ICM-20948 user bank 0.
const (
	ICMREG_WHO_AM_I     = 0x00
	ICMREG_USER_CTRL    = 0x03
	ICMREG_LP_CONFIG    = 0x05
	ICMREG_PWR_MGMT_1   = 0x06
	ICMREG_PWR_MGMT_2   = 0x07
	ICMREG_INT_PIN_CFG  = 0x0F
	ICMREG_ACCEL_XOUT_H = 0x2D // start of the accel+gyro block
	ICMREG_GYRO_XOUT_H  = 0x33
	ICMREG_BANK_SEL     = 0x7F
)

// ICM-20948 user bank 2.
const (
	ICMREG_GYRO_CONFIG_1 = 0x01
	ICMREG_ACCEL_CONFIG  = 0x14
)

// BankSelect is the BANK_SEL value for user bank n.
func BankSelect(n byte) byte {
	return (n << 4) & 0x30
}

// Register bits.
const (
	BIT_H_RESET     = 0x80
	BIT_CLKSEL_AUTO = 0x01
	BIT_I2C_MST_RST = 0x02
	BIT_BYPASS_EN   = 0x02
	BIT_SLEEP       = 0x40
)

// AK09916 registers.
const (
	AK09916_WIA1  = 0x00
	AK09916_WIA2  = 0x01
	AK09916_ST1   = 0x10
	AK09916_HXL   = 0x11
	AK09916_ST2   = 0x18
	AK09916_CNTL2 = 0x31
	AK09916_CNTL3 = 0x32
)

// AK09916 CNTL2 modes.
const (
	AK09916_MODE_POWERDOWN = 0x00
	AK09916_MODE_SINGLE    = 0x01
	AK09916_MODE_CONT1     = 0x02 // 10 Hz
	AK09916_MODE_CONT2     = 0x04 // 20 Hz
	AK09916_MODE_CONT3     = 0x06 // 50 Hz
	AK09916_MODE_CONT4     = 0x08 // 100 Hz
)

// Raw block sizes.
const (
	InertialBlockLen = 12 // accel xyz then gyro xyz, big-endian
	MagBlockLen      = 9  // ST1, xyz little-endian, TMPS, ST2
)

// Fixed full-scale factors (power-on defaults: ±2 g, ±250 deg/s).
const (
	AccelLSBPerG   = 16384.0
	GyroLSBPerDegS = 131.0
)

// DefaultMagRate is the magnetometer continuous-measurement rate, Hz.
const DefaultMagRate = 100

// magMode picks the slowest continuous mode that keeps up with rate Hz.
func magMode(rate int) byte {
	switch {
	case rate > 50:
		return AK09916_MODE_CONT4
	case rate > 20:
		return AK09916_MODE_CONT3
	case rate > 10:
		return AK09916_MODE_CONT2
	default:
		return AK09916_MODE_CONT1
	}
}
