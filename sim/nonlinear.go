package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/matrix"
	"github.com/milosgajdos/go-fos/noise"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// TransitionFunc returns the noise-free state x propagated from time t by dt.
type TransitionFunc func(t, dt float64, x []float64) ([]float64, error)

// OutputFunc returns the noise-free output of state x at time t.
type OutputFunc func(t float64, x []float64) ([]float64, error)

// Nonlinear is a nonlinear discrete-time stochastic system with additive noise:
//
//	x[k+1] = f(t, dt, x[k]) + w[k]
//	y[k]   = g(t, x[k]) + v[k]
//
// Its linearization coefficients are computed by statistical linearization
// around the anchor vector using finite-difference Jacobians of f and g.
type Nonlinear struct {
	nx, ny int
	f      TransitionFunc
	g      OutputFunc
	// q is state noise
	q filter.Noise
	// r is output noise
	r filter.Noise
	// qCov and rCov are noise covariances
	qCov *mat.SymDense
	rCov *mat.SymDense
	// settings are Jacobian settings
	settings *fd.JacobianSettings
}

// NewNonlinear creates new nonlinear task with state dimension nx and output
// dimension ny and returns it. nil q or r are replaced with zero noise.
// It returns error if either of f or g is nil, dimensions are not positive
// or noise dimensions do not match.
func NewNonlinear(nx, ny int, f TransitionFunc, g OutputFunc, q, r filter.Noise) (*Nonlinear, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid dimensions: [%d x %d]", nx, ny)
	}

	if f == nil || g == nil {
		return nil, fmt.Errorf("transition and output functions must be defined")
	}

	var err error
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

	return &Nonlinear{
		nx:   nx,
		ny:   ny,
		f:    f,
		g:    g,
		q:    q,
		r:    r,
		qCov: qCov,
		rCov: rCov,
		settings: &fd.JacobianSettings{
			Formula: fd.Central,
		},
	}, nil
}

// Dims returns state and output dimensions
func (n *Nonlinear) Dims() (nx, ny int) {
	return n.nx, n.ny
}

// StateNoise returns state noise
func (n *Nonlinear) StateNoise() filter.Noise {
	return n.q
}

// OutputNoise returns output noise
func (n *Nonlinear) OutputNoise() filter.Noise {
	return n.r
}

// transition evaluates f and checks its result.
func (n *Nonlinear) transition(t, dt float64, x mat.Vector) (*mat.VecDense, error) {
	if x.Len() != n.nx {
		return nil, fmt.Errorf("%w: invalid state vector length: %d", filter.ErrModel, x.Len())
	}

	out, err := n.f(t, dt, vecData(x))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filter.ErrModel, err)
	}

	return checkVec(out, n.nx)
}

// output evaluates g and checks its result.
func (n *Nonlinear) output(t float64, x mat.Vector) (*mat.VecDense, error) {
	if x.Len() != n.nx {
		return nil, fmt.Errorf("%w: invalid state vector length: %d", filter.ErrModel, x.Len())
	}

	out, err := n.g(t, vecData(x))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filter.ErrModel, err)
	}

	return checkVec(out, n.ny)
}

// Propagate returns the next internal state f(t, dt, x) + w.
func (n *Nonlinear) Propagate(t, dt float64, x mat.Vector) (mat.Vector, error) {
	out, err := n.transition(t, dt, x)
	if err != nil {
		return nil, err
	}
	out.AddVec(out, n.q.Sample())

	return out, nil
}

// Observe returns the system output g(t, x) + v.
func (n *Nonlinear) Observe(t float64, x mat.Vector) (mat.Vector, error) {
	out, err := n.output(t, x)
	if err != nil {
		return nil, err
	}
	out.AddVec(out, n.r.Sample())

	return out, nil
}

// Tau returns the conditional mean f(t, dt, u) of the next state.
func (n *Nonlinear) Tau(t, dt float64, u mat.Vector, T mat.Symmetric) (mat.Vector, error) {
	return n.transition(t, dt, u)
}

// Theta returns the conditional covariance J*T*J^T + Q of the next state
// where J is the Jacobian of f at u.
func (n *Nonlinear) Theta(t, dt float64, u mat.Vector, T mat.Symmetric) (mat.Symmetric, error) {
	if T.SymmetricDim() != n.nx {
		return nil, fmt.Errorf("%w: invalid covariance dimension: %d", filter.ErrModel, T.SymmetricDim())
	}

	J, err := n.jacobian(n.nx, u, func(x []float64) ([]float64, error) {
		return n.f(t, dt, x)
	})
	if err != nil {
		return nil, err
	}

	return sandwich(J, T, n.qCov), nil
}

// H returns the output mean g(t, lambda).
func (n *Nonlinear) H(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Vector, error) {
	return n.output(t, lambda)
}

// G returns the Jacobian of g at lambda.
func (n *Nonlinear) G(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Matrix, error) {
	return n.jacobian(n.ny, lambda, func(x []float64) ([]float64, error) {
		return n.g(t, x)
	})
}

// F returns the output covariance G*Psi*G^T + R.
func (n *Nonlinear) F(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Symmetric, error) {
	if psi.SymmetricDim() != n.nx {
		return nil, fmt.Errorf("%w: invalid covariance dimension: %d", filter.ErrModel, psi.SymmetricDim())
	}

	G, err := n.G(t, lambda, psi)
	if err != nil {
		return nil, err
	}

	return sandwich(G, psi, n.rCov), nil
}

// jacobian returns the m x nx Jacobian of fn at x.
func (n *Nonlinear) jacobian(m int, x mat.Vector, fn func([]float64) ([]float64, error)) (*mat.Dense, error) {
	if x.Len() != n.nx {
		return nil, fmt.Errorf("%w: invalid state vector length: %d", filter.ErrModel, x.Len())
	}

	var fnErr error
	J := mat.NewDense(m, n.nx, nil)
	fd.Jacobian(J, func(y, x []float64) {
		out, err := fn(x)
		if err == nil && len(out) != len(y) {
			err = fmt.Errorf("invalid output length: %d, expected: %d", len(out), len(y))
		}

		if err != nil {
			if fnErr == nil {
				fnErr = err
			}
			return
		}
		copy(y, out)
	}, vecData(x), n.settings)

	if fnErr != nil {
		return nil, fmt.Errorf("%w: jacobian: %v", filter.ErrModel, fnErr)
	}

	if !matrix.IsFinite(J) {
		return nil, fmt.Errorf("%w: jacobian contains non-finite elements", filter.ErrModel)
	}

	return J, nil
}

// vecData returns a copy of the elements of v.
func vecData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}

	return data
}

// checkVec wraps data into a vector of length n checking its elements are finite.
func checkVec(data []float64, n int) (*mat.VecDense, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%w: invalid vector length: %d, expected: %d", filter.ErrModel, len(data), n)
	}

	v := mat.NewVecDense(n, data)
	if !matrix.IsFinite(v) {
		return nil, fmt.Errorf("%w: non-finite values: %v", filter.ErrModel, data)
	}

	return v, nil
}
