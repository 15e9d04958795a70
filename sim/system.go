package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// System defines a noise-free linear model of a plant using
// traditional matrices of modern control theory.
//
// It contains the System (A) and Observation/Output (C) matrices.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Observation/Output Matrix C
	C *mat.Dense
}

func newSystem(A, C mat.Matrix) (System, error) {
	if isNil(A) || isNil(C) {
		return System{}, fmt.Errorf("system and output matrices must be defined for a model")
	}

	ra, ca := A.Dims()
	if ra != ca {
		return System{}, fmt.Errorf("invalid system matrix dimensions: [%d x %d]", ra, ca)
	}

	_, cc := C.Dims()
	if cc != ra {
		return System{}, fmt.Errorf("invalid output matrix dimensions: [%d x %d]", ra, cc)
	}

	return System{A: mat.DenseCopyOf(A), C: mat.DenseCopyOf(C)}, nil
}

// SystemDims returns internal state length (nx) and
// external/observable/output state length (ny).
func (s System) SystemDims() (nx, ny int) {
	nx, _ = s.A.Dims()
	ny, _ = s.C.Dims()

	return nx, ny
}

// SystemMatrix returns state propagation matrix `A`.
func (s System) SystemMatrix() mat.Matrix {
	return mat.DenseCopyOf(s.A)
}

// OutputMatrix returns observation matrix `C`
func (s System) OutputMatrix() mat.Matrix {
	return mat.DenseCopyOf(s.C)
}

// Step returns the noise-free next internal state A*x.
func (s System) Step(x mat.Vector) (*mat.VecDense, error) {
	nx, _ := s.SystemDims()
	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(s.A, x)

	return out, nil
}

// Output returns the noise-free external/observable state C*x.
func (s System) Output(x mat.Vector) (*mat.VecDense, error) {
	nx, ny := s.SystemDims()
	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := mat.NewVecDense(ny, nil)
	out.MulVec(s.C, x)

	return out, nil
}

// isNil reports whether m is nil or a nil matrix pointer
func isNil(m mat.Matrix) bool {
	switch v := m.(type) {
	case nil:
		return true
	case *mat.Dense:
		return v == nil
	case *mat.SymDense:
		return v == nil
	case *mat.DiagDense:
		return v == nil
	case *mat.VecDense:
		return v == nil
	}

	return false
}
