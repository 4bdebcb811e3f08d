/*
Package telemetry formats fused samples as text lines and parses them back.

A line carries nine comma-separated decimal fields terminated by CR LF:

	acc_x,acc_y,acc_z,mag_x,mag_y,mag_z,roll,pitch,yaw

Acceleration is in g, the magnetic field in raw sensor LSB, and the Euler
angles in degrees reduced into [0, 360).
*/
package telemetry

import (
	"math"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/westphae/quaternion"

	"github.com/stratux/imuplayground/ahrs"
)

// MaxLineLength bounds an encoded line.
const MaxLineLength = 256

// MaxMagnitude bounds the acceleration and magnetic field components Encode
// accepts. Raw 16-bit lanes and their rotations stay far below it.
const MaxMagnitude = 1e20

// Magnitudes below flushBelow are written as 0, which bounds the number of
// leading zeros in a field.
const flushBelow = 1e-9

// Encoder formats lines into a fixed buffer. The returned slice is only
// valid until the next call to Encode.
type Encoder struct {
	buf [MaxLineLength]byte
}

// Encode formats one frame. Components of accel and mag must be smaller
// than MaxMagnitude in magnitude, longer lines make Encode panic.
func (e *Encoder) Encode(accel, mag r3.Vector, q quaternion.Quaternion) []byte {
	roll, pitch, yaw := ahrs.Euler(q)
	b := e.buf[:0]
	for i, v := range [9]float32{
		float32(accel.X), float32(accel.Y), float32(accel.Z),
		float32(mag.X), float32(mag.Y), float32(mag.Z),
		degrees(roll), degrees(pitch), degrees(yaw),
	} {
		if i > 0 {
			b = append(b, ',')
		}
		if v > -flushBelow && v < flushBelow {
			v = 0
		}
		b = strconv.AppendFloat(b, float64(v), 'f', -1, 32)
	}
	b = append(b, '\r', '\n')
	if len(b) > MaxLineLength {
		panic("telemetry: encoded line exceeds MaxLineLength")
	}
	return b
}

// NormalizeDegrees reduces a into [0, 360).
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a == 0 {
		return 0 // drops the sign of -0
	}
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// degrees converts radians and normalizes, keeping the range after
// rounding to float32.
func degrees(rad float64) float32 {
	d := float32(NormalizeDegrees(rad * 180 / math.Pi))
	if d >= 360 {
		d = 0
	}
	return d
}
