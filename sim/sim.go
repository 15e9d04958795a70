// Package sim provides tasks i.e. stochastic dynamical systems
// for filters of optimal structure, and plotting of filter results.
package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fos"
	"gonum.org/v1/gonum/mat"
)

// InitCond implements filter.InitCond
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CloneFromVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}

// noiseCov returns covariance of noise n checking it has size dims.
func noiseCov(n filter.Noise, size int) (*mat.SymDense, error) {
	cov := n.Cov()
	if cov.SymmetricDim() != size {
		return nil, fmt.Errorf("invalid noise dimension: %d, expected: %d", cov.SymmetricDim(), size)
	}

	c := mat.NewSymDense(size, nil)
	c.CopySym(cov)

	return c, nil
}

// sandwich returns a*s*a^T + add as a symmetric matrix.
func sandwich(a mat.Matrix, s mat.Symmetric, add mat.Symmetric) *mat.SymDense {
	r, _ := a.Dims()

	as := &mat.Dense{}
	as.Mul(a, s)
	asa := &mat.Dense{}
	asa.Mul(as, a.T())

	out := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			out.SetSym(i, j, 0.5*(asa.At(i, j)+asa.At(j, i))+add.At(i, j))
		}
	}

	return out
}
