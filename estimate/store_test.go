package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

type initCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

func (c initCond) State() mat.Vector  { return c.state }
func (c initCond) Cov() mat.Symmetric { return c.cov }

func newRecord(nx int, val float64) Record {
	v := make([]float64, nx)
	for i := range v {
		v[i] = val
	}

	return Record{
		MeanX: mat.NewVecDense(nx, v),
		VarX:  mat.NewSymDense(nx, nil),
		MeanZ: mat.NewVecDense(nx, v),
		MeanE: mat.NewVecDense(nx, nil),
		VarE:  mat.NewSymDense(nx, nil),
	}
}

func TestNewStore(t *testing.T) {
	assert := assert.New(t)

	ic := initCond{
		state: mat.NewVecDense(2, []float64{1, 2}),
		cov:   mat.NewSymDense(2, []float64{1, 0, 0, 2}),
	}

	s, err := NewStore(0, 0.5, 1, ic)
	assert.Nil(s)
	assert.Error(err)

	s, err = NewStore(0, 0, 10, ic)
	assert.Nil(s)
	assert.Error(err)

	bad := initCond{state: mat.NewVecDense(3, nil), cov: ic.cov}
	s, err = NewStore(0, 0.5, 10, bad)
	assert.Nil(s)
	assert.Error(err)

	s, err = NewStore(1, 0.5, 10, ic)
	assert.NoError(err)
	assert.NotNil(s)
	assert.Equal(1, s.Len())
	assert.Equal(10, s.Steps())
	assert.Equal(2, s.Dim())
	assert.Equal(0.5, s.Step())
	assert.Equal(5.5, s.Time(9))

	rec, err := s.At(0)
	assert.NoError(err)
	assert.Equal(1.0, rec.Time)
	assert.Equal([]float64{1, 2}, rec.MeanX.RawVector().Data)
	assert.Equal([]float64{1, 2}, rec.MeanZ.RawVector().Data)
	assert.Equal([]float64{0, 0}, rec.MeanE.RawVector().Data)
	assert.Equal(2.0, rec.VarX.At(1, 1))
	assert.Equal(2.0, rec.VarE.At(1, 1))

	est, err := rec.State()
	assert.NoError(err)
	assert.Equal(2.0, est.Val().AtVec(1))

	est, err = rec.Error()
	assert.NoError(err)
	assert.Equal(1.0, est.Cov().At(0, 0))
}

func TestStoreSet(t *testing.T) {
	assert := assert.New(t)

	ic := initCond{
		state: mat.NewVecDense(1, []float64{0}),
		cov:   mat.NewSymDense(1, []float64{1}),
	}

	s, err := NewStore(0, 1, 3, ic)
	assert.NoError(err)

	// record 0 is never overwritten
	assert.Error(s.Set(0, newRecord(1, 5)))
	// out of order
	assert.Error(s.Set(2, newRecord(1, 5)))
	// invalid dimensions
	assert.Error(s.Set(1, newRecord(2, 5)))
	assert.Error(s.Set(1, Record{}))

	assert.NoError(s.Set(1, newRecord(1, 5)))
	assert.Equal(2, s.Len())
	assert.NoError(s.Set(2, newRecord(1, 6)))
	assert.Equal(3, s.Len())
	// store is full
	assert.Error(s.Set(3, newRecord(1, 7)))

	rec, err := s.At(2)
	assert.NoError(err)
	assert.Equal(2.0, rec.Time)
	assert.Equal(6.0, rec.MeanX.AtVec(0))

	_, err = s.At(3)
	assert.Error(err)
	_, err = s.At(-1)
	assert.Error(err)

	assert.Equal([]float64{0, 1, 2}, s.Times())

	// At returns copies
	rec.MeanX.SetVec(0, 100)
	rec, _ = s.At(2)
	assert.Equal(6.0, rec.MeanX.AtVec(0))

	rec0, _ := s.At(0)
	assert.Equal(0.0, rec0.MeanX.AtVec(0))
}

func TestStoreTruncate(t *testing.T) {
	assert := assert.New(t)

	ic := initCond{
		state: mat.NewVecDense(1, []float64{0}),
		cov:   mat.NewSymDense(1, []float64{1}),
	}

	s, err := NewStore(0, 1, 4, ic)
	assert.NoError(err)
	assert.NoError(s.Set(1, newRecord(1, 1)))
	assert.NoError(s.Set(2, newRecord(1, 2)))

	s.Truncate(2)
	assert.Equal(2, s.Len())
	_, err = s.At(2)
	assert.Error(err)

	// truncation never drops the initial condition
	s.Truncate(0)
	assert.Equal(1, s.Len())
	_, err = s.At(0)
	assert.NoError(err)

	// truncating beyond Len is a no-op
	s.Truncate(3)
	assert.Equal(1, s.Len())

	assert.NoError(s.Set(1, newRecord(1, 3)))
	assert.Equal(2, s.Len())
}
