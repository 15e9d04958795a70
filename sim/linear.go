package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/noise"
	"gonum.org/v1/gonum/mat"
)

// Linear is a linear discrete-time stochastic system:
//
//	x[k+1] = A*x[k] + w[k]
//	y[k]   = C*x[k] + v[k]
//
// Its state and output are Gaussian given a Gaussian initial condition
// so its linearization coefficients are exact.
type Linear struct {
	System
	// q is state noise
	q filter.Noise
	// r is output noise
	r filter.Noise
	// qCov and rCov are noise covariances
	qCov *mat.SymDense
	rCov *mat.SymDense
}

// NewLinear creates new linear task and returns it.
// nil q or r are replaced with zero noise of matching size.
// It returns error if the matrices or noise have invalid dimensions.
func NewLinear(A, C mat.Matrix, q, r filter.Noise) (*Linear, error) {
	sys, err := newSystem(A, C)
	if err != nil {
		return nil, err
	}

	nx, ny := sys.SystemDims()
	if q == nil {
		if q, err = noise.NewZero(nx); err != nil {
			return nil, err
		}
	}

	if r == nil {
		if r, err = noise.NewZero(ny); err != nil {
			return nil, err
		}
	}

	qCov, err := noiseCov(q, nx)
	if err != nil {
		return nil, fmt.Errorf("state noise: %w", err)
	}

	rCov, err := noiseCov(r, ny)
	if err != nil {
		return nil, fmt.Errorf("output noise: %w", err)
	}

	return &Linear{
		System: sys,
		q:      q,
		r:      r,
		qCov:   qCov,
		rCov:   rCov,
	}, nil
}

// Dims returns state and output dimensions
func (l *Linear) Dims() (nx, ny int) {
	return l.SystemDims()
}

// StateNoise returns state noise
func (l *Linear) StateNoise() filter.Noise {
	return l.q
}

// OutputNoise returns output noise
func (l *Linear) OutputNoise() filter.Noise {
	return l.r
}

// Propagate returns the next internal state A*x + w.
func (l *Linear) Propagate(t, dt float64, x mat.Vector) (mat.Vector, error) {
	out, err := l.Step(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filter.ErrModel, err)
	}
	out.AddVec(out, l.q.Sample())

	return out, nil
}

// Observe returns the system output C*x + v.
func (l *Linear) Observe(t float64, x mat.Vector) (mat.Vector, error) {
	out, err := l.Output(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filter.ErrModel, err)
	}
	out.AddVec(out, l.r.Sample())

	return out, nil
}

// Tau returns the conditional mean A*u of the next state.
func (l *Linear) Tau(t, dt float64, u mat.Vector, T mat.Symmetric) (mat.Vector, error) {
	out, err := l.Step(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filter.ErrModel, err)
	}

	return out, nil
}

// Theta returns the conditional covariance A*T*A^T + Q of the next state.
func (l *Linear) Theta(t, dt float64, u mat.Vector, T mat.Symmetric) (mat.Symmetric, error) {
	nx, _ := l.SystemDims()
	if T.SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid covariance dimension: %d", filter.ErrModel, T.SymmetricDim())
	}

	return sandwich(l.A, T, l.qCov), nil
}

// H returns the output mean C*lambda.
func (l *Linear) H(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Vector, error) {
	out, err := l.Output(lambda)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filter.ErrModel, err)
	}

	return out, nil
}

// G returns the output matrix C.
func (l *Linear) G(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Matrix, error) {
	return l.OutputMatrix(), nil
}

// F returns the output covariance C*Psi*C^T + R.
func (l *Linear) F(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Symmetric, error) {
	nx, _ := l.SystemDims()
	if psi.SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid covariance dimension: %d", filter.ErrModel, psi.SymmetricDim())
	}

	return sandwich(l.C, psi, l.rCov), nil
}

// String implements the Stringer interface.
func (l *Linear) String() string {
	return fmt.Sprintf(`Linear{
A=%v
C=%v
Q=%v
R=%v
}`, mat.Formatted(l.A, mat.Prefix("  ")), mat.Formatted(l.C, mat.Prefix("  ")),
		mat.Formatted(l.qCov, mat.Prefix("  ")), mat.Formatted(l.rCov, mat.Prefix("  ")))
}
