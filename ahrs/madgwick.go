package ahrs

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/westphae/quaternion"
)

// Madgwick is the gradient-descent MARG filter of S. Madgwick (2010).
type Madgwick struct {
	q    quaternion.Quaternion
	dt   float64
	beta float64
}

// NewMadgwick returns a filter starting at Identity. beta is the gradient
// step gain; 0.1 suits a 10 Hz loop.
func NewMadgwick(samplePeriod time.Duration, beta float64) *Madgwick {
	return &Madgwick{q: Identity, dt: samplePeriod.Seconds(), beta: beta}
}

// SamplePeriod returns the period the filter integrates over.
func (f *Madgwick) SamplePeriod() time.Duration {
	return time.Duration(f.dt * float64(time.Second))
}

func (f *Madgwick) Quaternion() quaternion.Quaternion {
	return f.q
}

func (f *Madgwick) Update(rate, accel, mag r3.Vector) (quaternion.Quaternion, error) {
	a, m, err := normalized(rate, accel, mag)
	if err != nil {
		return f.q, err
	}
	q0, q1, q2, q3 := f.q.W, f.q.X, f.q.Y, f.q.Z
	ax, ay, az := a.X, a.Y, a.Z
	mx, my, mz := m.X, m.Y, m.Z

	// Auxiliary variables to avoid repeated arithmetic
	_2q0mx := 2 * q0 * mx
	_2q0my := 2 * q0 * my
	_2q0mz := 2 * q0 * mz
	_2q1mx := 2 * q1 * mx
	_2q0 := 2 * q0
	_2q1 := 2 * q1
	_2q2 := 2 * q2
	_2q3 := 2 * q3
	_2q0q2 := 2 * q0 * q2
	_2q2q3 := 2 * q2 * q3
	q0q0 := q0 * q0
	q0q1 := q0 * q1
	q0q2 := q0 * q2
	q0q3 := q0 * q3
	q1q1 := q1 * q1
	q1q2 := q1 * q2
	q1q3 := q1 * q3
	q2q2 := q2 * q2
	q2q3 := q2 * q3
	q3q3 := q3 * q3

	// Reference direction of Earth's magnetic field
	hx := mx*q0q0 - _2q0my*q3 + _2q0mz*q2 + mx*q1q1 + _2q1*my*q2 + _2q1*mz*q3 - mx*q2q2 - mx*q3q3
	hy := _2q0mx*q3 + my*q0q0 - _2q0mz*q1 + _2q1mx*q2 - my*q1q1 + my*q2q2 + _2q2*mz*q3 - my*q3q3
	hz := -_2q0mx*q2 + _2q0my*q1 + mz*q0q0 + _2q1mx*q3 - mz*q1q1 + _2q2*my*q3 - mz*q2q2 + mz*q3q3
	_2bx := 2 * math.Sqrt(hx*hx+hy*hy)
	_2bz := 2 * hz
	_4bx := 2 * _2bx
	_4bz := 2 * _2bz

	// Objective function residuals
	fax := 2*q1q3 - _2q0q2 - ax
	fay := 2*q0q1 + _2q2q3 - ay
	faz := 1 - 2*q1q1 - 2*q2q2 - az
	fmx := _2bx*(0.5-q2q2-q3q3) + _2bz*(q1q3-q0q2) - mx
	fmy := _2bx*(q1q2-q0q3) + _2bz*(q0q1+q2q3) - my
	fmz := _2bx*(q0q2+q1q3) + _2bz*(0.5-q1q1-q2q2) - mz

	// Gradient decent algorithm corrective step
	step := quaternion.Quaternion{
		W: -_2q2*fax + _2q1*fay - _2bz*q2*fmx + (-_2bx*q3+_2bz*q1)*fmy + _2bx*q2*fmz,
		X: _2q3*fax + _2q0*fay - 2*_2q1*faz + _2bz*q3*fmx + (_2bx*q2+_2bz*q0)*fmy + (_2bx*q3-_4bz*q1)*fmz,
		Y: -_2q0*fax + _2q3*fay - 2*_2q2*faz + (-_4bx*q2-_2bz*q0)*fmx + (_2bx*q1+_2bz*q3)*fmy + (_2bx*q0-_4bz*q2)*fmz,
		Z: _2q1*fax + _2q2*fay + (-_4bx*q3+_2bz*q1)*fmx + (-_2bx*q0+_2bz*q2)*fmy + _2bx*q1*fmz,
	}

	// Rate of change of quaternion from gyroscope
	qDot := scale(quaternion.Prod(f.q, rateQuaternion(rate)), 0.5)
	if n := step.Norm(); n > 0 {
		qDot = quaternion.Sum(qDot, scale(step, -f.beta/n))
	}

	q := quaternion.Sum(f.q, scale(qDot, f.dt)).Unit()
	if math.IsNaN(q.W) || math.IsNaN(q.X) || math.IsNaN(q.Y) || math.IsNaN(q.Z) {
		return f.q, ErrDegenerateSample
	}
	f.q = q
	return f.q, nil
}
