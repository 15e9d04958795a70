package rand

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// NewSource returns a new source of pseudo-random numbers seeded with seed.
// Zero seed returns a source seeded with the current time.
func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return rand.NewSource(seed)
}

// WithCovN draws n random samples from a zero-mean Normal (aka Gaussian) distribution with covariance cov.
// The samples are drawn from src; nil src draws from a time seeded source.
// It returns matrix which contains the randomly generated samples stored in its columns.
// It fails with error if n is non-positive or if SVD factorization of cov fails.
func WithCovN(cov mat.Symmetric, n int, src rand.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	// Use SVD instead of Cholesky as Cholesky can be numerically unstable if cov is (almost) singular
	var svd mat.SVD
	ok := svd.Factorize(cov, mat.SVDFull)
	if !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	diag := mat.NewDiagDense(len(vals), vals)
	U.Mul(U, diag)

	if src == nil {
		src = NewSource(0)
	}
	rnd := rand.New(src)

	rows, _ := cov.Dims()
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = rnd.NormFloat64()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(U, samples)

	return samples, nil
}

// WithMeanCovN draws n random samples from a Normal distribution with the given mean and covariance.
// It returns matrix which contains the samples stored in its columns.
// It fails with error if mean and cov dimensions do not match or WithCovN fails.
func WithMeanCovN(mean mat.Vector, cov mat.Symmetric, n int, src rand.Source) (*mat.Dense, error) {
	if mean.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid dimensions. Mean: %d, Cov: %d x %d", mean.Len(), cov.SymmetricDim(), cov.SymmetricDim())
	}

	samples, err := WithCovN(cov, n, src)
	if err != nil {
		return nil, err
	}

	rows, cols := samples.Dims()
	// center samples around mean
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			samples.Set(r, c, samples.At(r, c)+mean.AtVec(r))
		}
	}

	return samples, nil
}
