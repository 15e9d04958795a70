package estimate

import (
	"errors"
	"math"
	"testing"

	filter "github.com/milosgajdos/go-fos"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewBase(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	b, err := NewBase(state)
	assert.NotNil(b)
	assert.NoError(err)
	assert.Equal(2, b.Dim())
	assert.Equal(0.0, mat.Trace(b.Cov()))

	b, err = NewBase(nil)
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrDimension))

	b, err = NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)

	b, err = NewBaseWithCov(state, mat.NewSymDense(1, []float64{1.0}))
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrDimension))

	b, err = NewBaseWithCov(mat.NewVecDense(2, []float64{math.NaN(), 0}), cov)
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrNumeric))
}

func TestValCov(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 2.0, 2.0, 4.0})

	b, err := NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)

	v := b.Val()
	for i := 0; i < state.Len(); i++ {
		assert.Equal(state.AtVec(i), v.AtVec(i))
	}

	// returned values are copies
	v.(*mat.VecDense).SetVec(0, 100)
	assert.Equal(1.0, b.Val().AtVec(0))
	state.SetVec(1, 100)
	assert.Equal(2.0, b.Val().AtVec(1))

	assert.True(mat.Equal(cov, b.Cov()))
}

func TestStdDev(t *testing.T) {
	assert := assert.New(t)

	b, err := NewBaseWithCov(mat.NewVecDense(3, nil), mat.NewSymDense(3, []float64{
		4, 0, 0,
		0, 9, 0,
		0, 0, -1e-18,
	}))
	assert.NoError(err)
	assert.Equal([]float64{2, 3, 0}, b.StdDev().RawVector().Data)
}
