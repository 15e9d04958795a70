package kf

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/sim"
	"gonum.org/v1/gonum/mat"
)

// Covariances returns the posterior KF covariances of task at steps 0..steps-1
// starting from initial condition ic. The measurement at step 0 is assimilated
// without a prediction.
// The covariance recursion does not depend on measurement values.
func Covariances(task filter.LinearTask, ic filter.InitCond, steps int) ([]mat.Symmetric, error) {
	if steps < 1 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	f, err := New(task, ic)
	if err != nil {
		return nil, err
	}

	_, ny := task.Dims()
	y := mat.NewVecDense(ny, nil)
	x := ic.State()

	covs := make([]mat.Symmetric, steps)
	for k := 0; k < steps; k++ {
		if k > 0 {
			pred, err := f.Predict(x)
			if err != nil {
				return nil, err
			}
			x = pred.Val()
		}

		est, err := f.Update(x, y)
		if err != nil {
			return nil, err
		}
		x = est.Val()
		covs[k] = f.Cov()
	}

	return covs, nil
}

// SteadyState iterates the Riccati recursion of task until the posterior
// covariance changes by less than tol and returns it.
// It returns error if the recursion does not converge in maxIter iterations.
func SteadyState(task filter.LinearTask, tol float64, maxIter int) (mat.Symmetric, error) {
	nx, _ := task.Dims()

	// any positive definite start converges for a detectable, stabilizable task
	eye := mat.NewSymDense(nx, nil)
	for i := 0; i < nx; i++ {
		eye.SetSym(i, i, 1.0)
	}

	f, err := New(task, sim.NewInitCond(mat.NewVecDense(nx, nil), eye))
	if err != nil {
		return nil, err
	}

	_, ny := task.Dims()
	x := mat.NewVecDense(nx, nil)
	y := mat.NewVecDense(ny, nil)

	prev := f.Cov()
	for i := 0; i < maxIter; i++ {
		if _, err := f.Run(x, y); err != nil {
			return nil, err
		}

		cur := f.Cov()
		if maxAbsDiff(prev, cur) < tol {
			return cur, nil
		}
		prev = cur
	}

	return nil, fmt.Errorf("riccati recursion did not converge in %d iterations", maxIter)
}

func maxAbsDiff(a, b mat.Symmetric) float64 {
	var d float64
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d = math.Max(d, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}

	return d
}
