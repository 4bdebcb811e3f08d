package ahrs

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/westphae/quaternion"
)

// Mahony is the explicit complementary filter of R. Mahony et al. (2008):
// a PI controller on the cross product between measured and predicted
// gravity and field directions corrects the gyro rate.
type Mahony struct {
	q        quaternion.Quaternion
	dt       float64
	kp, ki   float64
	integral r3.Vector
}

// NewMahony returns a filter starting at Identity.
func NewMahony(samplePeriod time.Duration, kp, ki float64) *Mahony {
	return &Mahony{q: Identity, dt: samplePeriod.Seconds(), kp: kp, ki: ki}
}

// SamplePeriod returns the period the filter integrates over.
func (f *Mahony) SamplePeriod() time.Duration {
	return time.Duration(f.dt * float64(time.Second))
}

func (f *Mahony) Quaternion() quaternion.Quaternion {
	return f.q
}

func (f *Mahony) Update(rate, accel, mag r3.Vector) (quaternion.Quaternion, error) {
	a, m, err := normalized(rate, accel, mag)
	if err != nil {
		return f.q, err
	}
	q0, q1, q2, q3 := f.q.W, f.q.X, f.q.Y, f.q.Z

	// Reference direction of Earth's magnetic field
	hx := 2*m.X*(0.5-q2*q2-q3*q3) + 2*m.Y*(q1*q2-q0*q3) + 2*m.Z*(q1*q3+q0*q2)
	hy := 2*m.X*(q1*q2+q0*q3) + 2*m.Y*(0.5-q1*q1-q3*q3) + 2*m.Z*(q2*q3-q0*q1)
	bx := math.Sqrt(hx*hx + hy*hy)
	bz := 2*m.X*(q1*q3-q0*q2) + 2*m.Y*(q2*q3+q0*q1) + 2*m.Z*(0.5-q1*q1-q2*q2)

	// Estimated direction of gravity and magnetic field
	v := r3.Vector{X: 2 * (q1*q3 - q0*q2), Y: 2 * (q0*q1 + q2*q3), Z: q0*q0 - q1*q1 - q2*q2 + q3*q3}
	w := r3.Vector{
		X: 2*bx*(0.5-q2*q2-q3*q3) + 2*bz*(q1*q3-q0*q2),
		Y: 2*bx*(q1*q2-q0*q3) + 2*bz*(q0*q1+q2*q3),
		Z: 2*bx*(q0*q2+q1*q3) + 2*bz*(0.5-q1*q1-q2*q2),
	}

	e := a.Cross(v).Add(m.Cross(w))
	integral := f.integral
	if f.ki > 0 {
		integral = integral.Add(e.Mul(f.ki * f.dt))
	}
	corrected := rate.Add(integral).Add(e.Mul(f.kp))

	qDot := scale(quaternion.Prod(f.q, rateQuaternion(corrected)), 0.5)
	q := quaternion.Sum(f.q, scale(qDot, f.dt)).Unit()
	if math.IsNaN(q.W) || math.IsNaN(q.X) || math.IsNaN(q.Y) || math.IsNaN(q.Z) {
		return f.q, ErrDegenerateSample
	}
	f.q, f.integral = q, integral
	return f.q, nil
}
