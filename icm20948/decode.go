package icm20948

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
)

// Raw3 holds the three signed lanes of one physical quantity.
type Raw3 [3]int16

// DecodeInertial splits the accel+gyro block. Lanes are big-endian.
func DecodeInertial(b [InertialBlockLen]byte) (accel, gyro Raw3) {
	for i := 0; i < 3; i++ {
		accel[i] = int16(binary.BigEndian.Uint16(b[2*i:]))
		gyro[i] = int16(binary.BigEndian.Uint16(b[6+2*i:]))
	}
	return
}

// DecodeMagnetic extracts the field lanes from the AK09916 block,
// skipping the ST1 prefix, the TMPS padding byte and ST2. Lanes are little-endian.
func DecodeMagnetic(b [MagBlockLen]byte) (mag Raw3) {
	for i := 0; i < 3; i++ {
		mag[i] = int16(binary.LittleEndian.Uint16(b[1+2*i:]))
	}
	return
}

// ScaleInertial converts raw lanes to radians/second and gravities.
func ScaleInertial(accel, gyro Raw3) (rate, acc r3.Vector) {
	k := math.Pi / 180 / GyroLSBPerDegS
	rate = r3.Vector{X: float64(gyro[0]) * k, Y: float64(gyro[1]) * k, Z: float64(gyro[2]) * k}
	acc = r3.Vector{
		X: float64(accel[0]) / AccelLSBPerG,
		Y: float64(accel[1]) / AccelLSBPerG,
		Z: float64(accel[2]) / AccelLSBPerG,
	}
	return
}

// Vector converts raw lanes unchanged. The magnetic field stays in LSB.
func (r Raw3) Vector() r3.Vector {
	return r3.Vector{X: float64(r[0]), Y: float64(r[1]), Z: float64(r[2])}
}
