package pipeline

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/skelterjohn/go.matrix"
)

// Alignment rotates sensor-frame vectors into the body frame.
type Alignment struct {
	m *matrix.DenseMatrix
}

// NewAlignment builds an alignment from a row-major 3x3 rotation matrix.
// The matrix must be orthonormal.
func NewAlignment(rowMajor [9]float64) (*Alignment, error) {
	m := matrix.MakeDenseMatrix(rowMajor[:], 3, 3)
	mmt := matrix.Product(m, m.Transpose())
	eye := matrix.Eye(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(mmt.Get(i, j)-eye.Get(i, j)) > 1e-6 {
				return nil, fmt.Errorf("alignment matrix is not orthonormal: %v", rowMajor)
			}
		}
	}
	return &Alignment{m: m}, nil
}

// Apply rotates v. A nil Alignment is the identity.
func (a *Alignment) Apply(v r3.Vector) r3.Vector {
	if a == nil {
		return v
	}
	p := matrix.Product(a.m, matrix.MakeDenseMatrix([]float64{v.X, v.Y, v.Z}, 3, 1))
	return r3.Vector{X: p.Get(0, 0), Y: p.Get(1, 0), Z: p.Get(2, 0)}
}
