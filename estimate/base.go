package estimate

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Base is an estimate of a random vector given by its mean and covariance
type Base struct {
	// val is estimated value
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBase returns estimate with value val and zero covariance.
func NewBase(val mat.Vector) (*Base, error) {
	if val == nil || val.Len() == 0 {
		return nil, fmt.Errorf("%w: empty estimate value", filter.ErrDimension)
	}

	return NewBaseWithCov(val, mat.NewSymDense(val.Len(), nil))
}

// NewBaseWithCov returns estimate with value val and covariance cov.
// It returns error if the dimensions of val and cov disagree or
// either of them holds non-finite values.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	if val == nil || cov == nil {
		return nil, fmt.Errorf("%w: estimate value and covariance must be defined", filter.ErrDimension)
	}

	n := cov.SymmetricDim()
	if val.Len() != n {
		return nil, fmt.Errorf("%w: estimate value %d, covariance %d x %d", filter.ErrDimension, val.Len(), n, n)
	}

	if !matrix.IsFinite(val) || !matrix.IsFinite(cov) {
		return nil, fmt.Errorf("%w: non-finite estimate", filter.ErrNumeric)
	}

	c := mat.NewSymDense(n, nil)
	c.CopySym(cov)

	return &Base{
		val: mat.VecDenseCopyOf(val),
		cov: c,
	}, nil
}

// Dim returns estimate dimension
func (b *Base) Dim() int {
	return b.val.Len()
}

// Val returns a copy of the estimated value
func (b *Base) Val() mat.Vector {
	return mat.VecDenseCopyOf(b.val)
}

// Cov returns a copy of the estimated covariance
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}

// StdDev returns standard deviations of the estimate components.
// Negative variances left by round-off are reported as zero.
func (b *Base) StdDev() *mat.VecDense {
	n := b.cov.SymmetricDim()
	sd := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sd.SetVec(i, math.Sqrt(math.Max(b.cov.At(i, i), 0)))
	}

	return sd
}
