// Package matrix provides ensemble statistics and block algebra helpers.
// Ensembles are stored in *mat.Dense matrices with one sample per column.
package matrix

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fos"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RowSums returns a slice containing m row sums.
// It panics if m is nil.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// Mean returns the sample mean of the ensemble x.
// It panics if x is nil.
func Mean(x *mat.Dense) *mat.VecDense {
	_, n := x.Dims()
	sum := RowSums(x)
	floats.Scale(1/float64(n), sum)

	return mat.NewVecDense(len(sum), sum)
}

// Cov returns the unbiased sample covariance of the ensemble x.
// x must hold at least two samples.
func Cov(x *mat.Dense) *mat.SymDense {
	rows, _ := x.Dims()
	cov := mat.NewSymDense(rows, nil)
	// stat expects observations in rows
	stat.CovarianceMatrix(cov, x.T(), nil)

	return cov
}

// CrossCov returns the unbiased sample cross-covariance Cov(x, y) of two
// index-aligned ensembles. The result has as many rows as x and as many columns as y.
// It panics if x and y hold different number of samples.
func CrossCov(x, y *mat.Dense) *mat.Dense {
	_, n := x.Dims()
	if _, ny := y.Dims(); ny != n {
		panic(mat.ErrShape)
	}

	xc := center(x)
	yc := center(y)

	cov := &mat.Dense{}
	cov.Mul(xc, yc.T())
	cov.Scale(1/float64(n-1), cov)

	return cov
}

// center returns a copy of x with its sample mean subtracted from every column.
func center(x *mat.Dense) *mat.Dense {
	c := mat.DenseCopyOf(x)
	rows, _ := c.Dims()
	mean := Mean(x)
	for i := 0; i < rows; i++ {
		floats.AddConst(-mean.AtVec(i), c.RawRowView(i))
	}

	return c
}

// Symmetrize returns the symmetric part (a + a^T)/2 of the square matrix a.
// It panics if a is not square.
func Symmetrize(a mat.Matrix) *mat.SymDense {
	r, c := a.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}

	return s
}

// IsFinite reports whether all elements of a are finite.
func IsFinite(a mat.Matrix) bool {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}

// DefaultTol returns the default singular value cut-off for an r x c matrix
// whose largest singular value is smax.
func DefaultTol(r, c int, smax float64) float64 {
	return float64(max(r, c)) * smax * eps
}

const eps = 0x1p-52

// Pinv returns the Moore-Penrose pseudo-inverse of a.
// Singular values not greater than tol are treated as zero; non-positive tol
// selects DefaultTol. Pinv is defined for matrices of any shape and rank.
// It fails with filter.ErrNumeric if a contains non-finite elements
// or its SVD factorization fails.
func Pinv(a mat.Matrix, tol float64) (*mat.Dense, error) {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("%w: empty matrix [%d x %d]", filter.ErrDimension, r, c)
	}

	if !IsFinite(a) {
		return nil, fmt.Errorf("%w: matrix contains non-finite elements", filter.ErrNumeric)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD factorization failed", filter.ErrNumeric)
	}

	vals := svd.Values(nil)
	if tol <= 0 {
		tol = DefaultTol(r, c, vals[0])
	}

	inv := make([]float64, len(vals))
	for i, s := range vals {
		if s > tol {
			inv[i] = 1 / s
		}
	}

	u, v := &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)

	// a+ = V * S+ * U^T
	vs := &mat.Dense{}
	vs.Mul(v, mat.NewDiagDense(len(inv), inv))

	p := mat.NewDense(c, r, nil)
	p.Mul(vs, u.T())

	return p, nil
}
