package sim

import (
	"errors"
	"testing"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/noise"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewLinear(t *testing.T) {
	assert := assert.New(t)

	l, err := NewLinear(A, C, q, r)
	assert.NoError(err)
	assert.NotNil(l)

	var _ filter.LinearTask = l

	nx, ny := l.Dims()
	assert.Equal(2, nx)
	assert.Equal(1, ny)
	assert.Equal(q, l.StateNoise())
	assert.Equal(r, l.OutputNoise())

	// nil noise is zero noise
	l, err = NewLinear(A, C, nil, nil)
	assert.NoError(err)
	assert.Equal(0.0, l.StateNoise().Cov().At(1, 1))
	assert.Equal(1, l.OutputNoise().Cov().SymmetricDim())

	// noise dimension mismatch
	l, err = NewLinear(A, C, r, r)
	assert.Nil(l)
	assert.Error(err)

	l, err = NewLinear(A, C, q, q)
	assert.Nil(l)
	assert.Error(err)
}

func TestLinearPropagateObserve(t *testing.T) {
	assert := assert.New(t)

	l, err := NewLinear(A, C, nil, nil)
	assert.NoError(err)

	x := mat.NewVecDense(2, []float64{1, 2})
	next, err := l.Propagate(0, 1, x)
	assert.NoError(err)
	assert.InDelta(1.2, next.AtVec(0), 1e-12)
	assert.InDelta(2.0, next.AtVec(1), 1e-12)

	y, err := l.Observe(0, x)
	assert.NoError(err)
	assert.InDelta(1.0, y.AtVec(0), 1e-12)

	_, err = l.Propagate(0, 1, mat.NewVecDense(1, nil))
	assert.True(errors.Is(err, filter.ErrModel))

	_, err = l.Observe(0, mat.NewVecDense(3, nil))
	assert.True(errors.Is(err, filter.ErrModel))
}

func TestLinearCoefficients(t *testing.T) {
	assert := assert.New(t)

	l, err := NewLinear(A, C, q, r)
	assert.NoError(err)

	u := mat.NewVecDense(2, []float64{1, 2})
	T := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	lambda, err := l.Tau(0, 1, u, T)
	assert.NoError(err)
	assert.InDelta(1.2, lambda.AtVec(0), 1e-12)

	// A*T*A^T + Q
	psi, err := l.Theta(0, 1, u, T)
	assert.NoError(err)
	assert.InDelta(1.01+0.01, psi.At(0, 0), 1e-12)
	assert.InDelta(0.1, psi.At(0, 1), 1e-12)
	assert.InDelta(1.01, psi.At(1, 1), 1e-12)

	h, err := l.H(1, lambda, psi)
	assert.NoError(err)
	assert.InDelta(1.2, h.AtVec(0), 1e-12)

	G, err := l.G(1, lambda, psi)
	assert.NoError(err)
	assert.True(mat.Equal(C, G))

	// C*Psi*C^T + R
	F, err := l.F(1, lambda, psi)
	assert.NoError(err)
	assert.InDelta(1.02+0.25, F.At(0, 0), 1e-12)

	_, err = l.Theta(0, 1, u, mat.NewSymDense(3, nil))
	assert.True(errors.Is(err, filter.ErrModel))
	_, err = l.F(0, lambda, mat.NewSymDense(1, nil))
	assert.True(errors.Is(err, filter.ErrModel))
}

func TestLinearNoise(t *testing.T) {
	assert := assert.New(t)

	w, err := noise.NewGaussianWithSeed([]float64{0}, mat.NewSymDense(1, []float64{1}), 7)
	assert.NoError(err)

	l, err := NewLinear(mat.NewDense(1, 1, []float64{0}), mat.NewDense(1, 1, []float64{1}), w, nil)
	assert.NoError(err)

	x := mat.NewVecDense(1, []float64{5})
	first, err := l.Propagate(0, 1, x)
	assert.NoError(err)

	// zero system matrix leaves only the noise sample
	w.Reset()
	sample := w.Sample()
	assert.InDelta(sample.AtVec(0), first.AtVec(0), 1e-12)
}

func TestToDiscrete(t *testing.T) {
	assert := assert.New(t)

	// double integrator
	Ac := mat.NewDense(2, 2, []float64{0, 1, 0, 0})
	ct, err := NewContinuous(Ac, C)
	assert.NoError(err)

	l, err := ct.ToDiscrete(0.5, nil, nil)
	assert.NoError(err)

	// exp(A*Ts) = I + A*Ts for nilpotent A
	expected := mat.NewDense(2, 2, []float64{1, 0.5, 0, 1})
	assert.True(mat.EqualApprox(expected, l.SystemMatrix(), 1e-12))
	assert.True(mat.Equal(C, l.OutputMatrix()))

	_, err = ct.ToDiscrete(0, nil, nil)
	assert.Error(err)

	_, err = NewContinuous(nil, C)
	assert.Error(err)

	_, err = NewContinuous(A, nil)
	assert.Error(err)
}

func TestNilSystemMatrices(t *testing.T) {
	assert := assert.New(t)

	var nilDense *mat.Dense
	l, err := NewLinear(nilDense, mat.NewDense(1, 1, []float64{1}), nil, nil)
	assert.Nil(l)
	assert.Error(err)

	l, err = NewLinear(mat.NewDense(1, 1, []float64{1}), nilDense, nil, nil)
	assert.Nil(l)
	assert.Error(err)

	var nilDiag *mat.DiagDense
	l, err = NewLinear(nilDiag, mat.NewDense(1, 1, []float64{1}), nil, nil)
	assert.Nil(l)
	assert.Error(err)
}
