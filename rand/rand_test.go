package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.0, 0.0, 0.0, 1.0}
	covTest := mat.NewSymDense(2, data)
	covR, _ := covTest.Dims()

	// n must be bigger than 1
	nTest := -3
	res, err := WithCovN(covTest, nTest, nil)
	assert.Error(err)
	assert.Nil(res)

	nTest = 1
	res, err = WithCovN(covTest, nTest, nil)
	assert.NoError(err)
	assert.NotNil(res)

	// 2 samples
	nTest = 2
	res, err = WithCovN(covTest, nTest, NewSource(1))
	assert.NoError(err)
	assert.NotNil(res)
	r, c := res.Dims()
	assert.Equal(r, covR)
	assert.Equal(c, nTest)
}

func TestWithCovNSeed(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})

	a, err := WithCovN(cov, 10, NewSource(42))
	assert.NoError(err)
	b, err := WithCovN(cov, 10, NewSource(42))
	assert.NoError(err)
	assert.True(mat.Equal(a, b))

	c, err := WithCovN(cov, 10, NewSource(43))
	assert.NoError(err)
	assert.False(mat.Equal(a, c))
}

func TestWithMeanCovN(t *testing.T) {
	assert := assert.New(t)

	mean := mat.NewVecDense(2, []float64{10, -5})
	cov := mat.NewSymDense(2, []float64{4, 1, 1, 1})

	res, err := WithMeanCovN(mat.NewVecDense(3, nil), cov, 10, nil)
	assert.Nil(res)
	assert.Error(err)

	n := 20000
	res, err = WithMeanCovN(mean, cov, n, NewSource(7))
	assert.NoError(err)
	_, c := res.Dims()
	assert.Equal(n, c)

	sampleCov := mat.NewSymDense(2, nil)
	stat.CovarianceMatrix(sampleCov, res.T(), nil)
	assert.InDelta(10.0, stat.Mean(res.RawRowView(0), nil), 0.1)
	assert.InDelta(-5.0, stat.Mean(res.RawRowView(1), nil), 0.1)
	assert.InDelta(4.0, sampleCov.At(0, 0), 0.2)
	assert.InDelta(1.0, sampleCov.At(0, 1), 0.1)
	assert.InDelta(1.0, sampleCov.At(1, 1), 0.1)

	// singular covariance is fine
	res, err = WithMeanCovN(mean, mat.NewSymDense(2, nil), 5, nil)
	assert.NoError(err)
	assert.Equal(10.0, res.At(0, 4))
}
