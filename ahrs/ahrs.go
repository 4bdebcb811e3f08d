/*
Package ahrs fuses angular rate, acceleration and magnetic field samples
into an orientation quaternion.

Estimators run at a fixed sample period given at construction. Feeding them at
any other rate degrades the estimate without any error being reported, so the
period must be taken from the same setting that paces the sampling loop.
*/
package ahrs

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
	"github.com/westphae/quaternion"
)

// ErrDegenerateSample is returned when a sample cannot be normalized:
// zero or non-finite acceleration or magnetic field, or non-finite rate.
var ErrDegenerateSample = errors.New("ahrs: degenerate sample")

// Estimator is a fixed-rate vector-triad fusion filter.
// Update leaves the state untouched when it returns an error.
type Estimator interface {
	// Update consumes one sample (rad/s, any accel unit, any field unit) and
	// returns the new unit orientation.
	Update(rate, accel, mag r3.Vector) (quaternion.Quaternion, error)
	// Quaternion returns the current orientation.
	Quaternion() quaternion.Quaternion
}

// Identity is the starting orientation of every estimator.
var Identity = quaternion.Quaternion{W: 1}

func finite(v r3.Vector) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// normalized validates a sample and returns unit accel and field directions.
func normalized(rate, accel, mag r3.Vector) (a, m r3.Vector, err error) {
	if !finite(rate) || !finite(accel) || !finite(mag) {
		return a, m, ErrDegenerateSample
	}
	an, mn := accel.Norm(), mag.Norm()
	if an == 0 || mn == 0 || math.IsInf(an, 0) || math.IsInf(mn, 0) {
		return a, m, ErrDegenerateSample
	}
	return accel.Mul(1 / an), mag.Mul(1 / mn), nil
}

func scale(q quaternion.Quaternion, k float64) quaternion.Quaternion {
	return quaternion.Quaternion{W: q.W * k, X: q.X * k, Y: q.Y * k, Z: q.Z * k}
}

// rateQuaternion is the pure quaternion (0, ω).
func rateQuaternion(rate r3.Vector) quaternion.Quaternion {
	return quaternion.Quaternion{X: rate.X, Y: rate.Y, Z: rate.Z}
}

// Euler decomposes q into roll, pitch and yaw in radians, such that the
// rotation is R = Rz(yaw)·Ry(pitch)·Rx(roll). At gimbal lock yaw is 0.
func Euler(q quaternion.Quaternion) (roll, pitch, yaw float64) {
	q = q.Unit()
	w, x, y, z := q.W, q.X, q.Y, q.Z

	r20 := 2 * (x*z - w*y)
	const lock = 1 - 1e-12
	switch {
	case math.Abs(r20) < lock:
		roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
		pitch = -math.Asin(r20)
		yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	case r20 <= -lock:
		r01 := 2 * (x*y - w*z)
		r02 := 2 * (x*z + w*y)
		pitch = math.Pi / 2
		roll = math.Atan2(r01, r02)
	default:
		r01 := 2 * (x*y - w*z)
		r02 := 2 * (x*z + w*y)
		pitch = -math.Pi / 2
		roll = -math.Atan2(r01, -r02)
	}
	return
}
