package sim

import (
	"errors"
	"fmt"
	"math"
	"testing"

	filter "github.com/milosgajdos/go-fos"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// pendulum-like transition and quadratic output
func transition(t, dt float64, x []float64) ([]float64, error) {
	return []float64{x[0] + dt*x[1], x[1] - dt*math.Sin(x[0])}, nil
}

func output(t float64, x []float64) ([]float64, error) {
	return []float64{x[0] * x[0]}, nil
}

func TestNewNonlinear(t *testing.T) {
	assert := assert.New(t)

	n, err := NewNonlinear(2, 1, transition, output, q, r)
	assert.NoError(err)
	assert.NotNil(n)

	var _ filter.Task = n

	nx, ny := n.Dims()
	assert.Equal(2, nx)
	assert.Equal(1, ny)

	for _, test := range []struct {
		nx, ny int
		f      TransitionFunc
		g      OutputFunc
	}{
		{0, 1, transition, output},
		{2, 0, transition, output},
		{2, 1, nil, output},
		{2, 1, transition, nil},
		// noise dimension mismatch
		{3, 1, transition, output},
	} {
		n, err := NewNonlinear(test.nx, test.ny, test.f, test.g, q, r)
		assert.Nil(n)
		assert.Error(err)
	}
}

func TestNonlinearCoefficients(t *testing.T) {
	assert := assert.New(t)

	n, err := NewNonlinear(2, 1, transition, output, q, r)
	assert.NoError(err)

	u := mat.NewVecDense(2, []float64{0.5, 1})
	T := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	dt := 0.1

	lambda, err := n.Tau(0, dt, u, T)
	assert.NoError(err)
	assert.InDelta(0.6, lambda.AtVec(0), 1e-12)
	assert.InDelta(1-dt*math.Sin(0.5), lambda.AtVec(1), 1e-12)

	// J = [1 dt; -dt*cos(x0) 1]
	J := mat.NewDense(2, 2, []float64{1, dt, -dt * math.Cos(0.5), 1})
	JJ := &mat.Dense{}
	JJ.Mul(J, J.T())

	psi, err := n.Theta(0, dt, u, T)
	assert.NoError(err)
	assert.InDelta(JJ.At(0, 0)+0.01, psi.At(0, 0), 1e-6)
	assert.InDelta(JJ.At(0, 1), psi.At(0, 1), 1e-6)
	assert.InDelta(JJ.At(1, 1)+0.01, psi.At(1, 1), 1e-6)

	h, err := n.H(0, lambda, psi)
	assert.NoError(err)
	assert.InDelta(0.36, h.AtVec(0), 1e-12)

	// G = [2*x0 0]
	G, err := n.G(0, lambda, psi)
	assert.NoError(err)
	assert.InDelta(1.2, G.At(0, 0), 1e-6)
	assert.InDelta(0.0, G.At(0, 1), 1e-6)

	F, err := n.F(0, lambda, psi)
	assert.NoError(err)
	assert.InDelta(1.2*1.2*psi.At(0, 0)+0.25, F.At(0, 0), 1e-5)
}

func TestNonlinearLinearAgreement(t *testing.T) {
	assert := assert.New(t)

	l, err := NewLinear(A, C, q, r)
	assert.NoError(err)

	n, err := NewNonlinear(2, 1,
		func(t, dt float64, x []float64) ([]float64, error) {
			return []float64{x[0] + 0.1*x[1], x[1]}, nil
		},
		func(t float64, x []float64) ([]float64, error) {
			return []float64{x[0]}, nil
		}, q, r)
	assert.NoError(err)

	u := mat.NewVecDense(2, []float64{3, -1})
	T := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})

	lpsi, err := l.Theta(0, 1, u, T)
	assert.NoError(err)
	npsi, err := n.Theta(0, 1, u, T)
	assert.NoError(err)
	assert.True(mat.EqualApprox(lpsi, npsi, 1e-6))

	lF, err := l.F(0, u, T)
	assert.NoError(err)
	nF, err := n.F(0, u, T)
	assert.NoError(err)
	assert.True(mat.EqualApprox(lF, nF, 1e-6))
}

func TestNonlinearErrors(t *testing.T) {
	assert := assert.New(t)

	failing := func(t, dt float64, x []float64) ([]float64, error) {
		if x[0] > 1 {
			return nil, fmt.Errorf("out of domain: %g", x[0])
		}
		return []float64{x[0], x[1]}, nil
	}

	nan := func(t float64, x []float64) ([]float64, error) {
		return []float64{math.NaN()}, nil
	}

	n, err := NewNonlinear(2, 1, failing, nan, nil, nil)
	assert.NoError(err)

	T := mat.NewSymDense(2, nil)

	_, err = n.Propagate(0, 1, mat.NewVecDense(2, []float64{2, 0}))
	assert.True(errors.Is(err, filter.ErrModel))

	_, err = n.Theta(0, 1, mat.NewVecDense(2, []float64{2, 0}), T)
	assert.True(errors.Is(err, filter.ErrModel))

	_, err = n.Observe(0, mat.NewVecDense(2, nil))
	assert.True(errors.Is(err, filter.ErrModel))

	_, err = n.G(0, mat.NewVecDense(2, nil), T)
	assert.True(errors.Is(err, filter.ErrModel))

	_, err = n.Tau(0, 1, mat.NewVecDense(3, nil), T)
	assert.True(errors.Is(err, filter.ErrModel))

	// zero noise propagation is deterministic
	x, err := n.Propagate(0, 1, mat.NewVecDense(2, []float64{0.5, 1}))
	assert.NoError(err)
	assert.Equal(0.5, x.AtVec(0))
}
