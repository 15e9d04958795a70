package kf

import (
	"fmt"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/estimate"
	"github.com/milosgajdos/go-fos/matrix"
	mx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// task is KF linear task
	task filter.LinearTask
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// p is the KF covariance matrix
	p *mat.SymDense
	// pNext is the KF predicted covariance matrix
	pNext *mat.SymDense
	// inn is innovation vector
	inn *mat.VecDense
	// k is Kalman gain
	k *mat.Dense
}

// New creates new KF and returns it.
// It accepts the following parameters:
//   - task:   linear stochastic task
//   - init:   initial condition of the filter
//
// The predicted covariance is initialized to the initial condition covariance
// so the first measurement can be assimilated with Update before any Predict.
// It returns error if either of the following conditions is met:
//   - invalid task is given: task dimensions must be positive integers
//   - task matrices or noise do not match the task dimensions
//   - initial condition does not match the task dimensions
func New(task filter.LinearTask, init filter.InitCond) (*KF, error) {
	// size of the state and output vectors
	nx, ny := task.Dims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid task dimensions: [%d x %d]", nx, ny)
	}

	q, r := task.StateNoise(), task.OutputNoise()
	if q == nil || q.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid state noise")
	}

	if r == nil || r.Cov().SymmetricDim() != ny {
		return nil, fmt.Errorf("invalid output noise")
	}

	rows, cols := task.SystemMatrix().Dims()
	if rows != nx || cols != nx {
		return nil, fmt.Errorf("invalid propagation matrix dimensions: [%d x %d]", rows, cols)
	}

	rows, cols = task.OutputMatrix().Dims()
	if rows != ny || cols != nx {
		return nil, fmt.Errorf("invalid observation matrix dimensions: [%d x %d]", rows, cols)
	}

	if init.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid initial covariance dimension: %d", init.Cov().SymmetricDim())
	}

	// initialize covariance matrix to initial condition covariance
	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	// predicted state covariance
	pNext := mat.NewSymDense(nx, nil)
	pNext.CopySym(init.Cov())

	return &KF{
		task:  task,
		q:     q,
		r:     r,
		p:     p,
		pNext: pNext,
		inn:   mat.NewVecDense(ny, nil),
		k:     mat.NewDense(nx, ny, nil),
	}, nil
}

// Predict calculates the next system state given the state estimate x and returns its estimate.
// It returns error if x has invalid dimension.
func (k *KF) Predict(x mat.Vector) (filter.Estimate, error) {
	nx, _ := k.task.Dims()
	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state supplied: %v", x)
	}

	A := k.task.SystemMatrix()

	// propagate state mean to the next step
	xNext := mat.NewVecDense(nx, nil)
	xNext.MulVec(A, x)

	// A*P*A' + Q
	ap := &mat.Dense{}
	ap.Mul(A, k.p)
	cov := &mat.Dense{}
	cov.Mul(ap, A.T())
	cov.Add(cov, k.q.Cov())

	// update KF predicted covariance matrix
	k.pNext.CopySym(matrix.Symmetrize(cov))

	return estimate.NewBaseWithCov(xNext, k.pNext)
}

// Update corrects the predicted state x using the measurement y and returns corrected estimate.
// It returns error if either invalid state or measurement was supplied or if it fails to calculate Kalman gain.
func (k *KF) Update(x, y mat.Vector) (filter.Estimate, error) {
	nx, ny := k.task.Dims()

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state supplied: %v", x)
	}

	if y.Len() != ny {
		return nil, fmt.Errorf("invalid measurement supplied: %v", y)
	}

	H := k.task.OutputMatrix()

	// expected system output
	yNext := mat.NewVecDense(ny, nil)
	yNext.MulVec(H, x)

	// P*H'
	pxy := mat.NewDense(nx, ny, nil)
	pxy.Mul(k.pNext, H.T())

	// H*P*H' + R
	pyy := mat.NewDense(ny, ny, nil)
	pyy.Mul(H, pxy)
	pyy.Add(pyy, k.r.Cov())

	// calculate Kalman gain
	pyyInv, err := matrix.Pinv(pyy, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate Pyy pseudo-inverse: %w", err)
	}
	gain := &mat.Dense{}
	gain.Mul(pxy, pyyInv)

	// innovation vector
	inn := mat.NewVecDense(ny, nil)
	inn.SubVec(y, yNext)

	// update state x
	xCorr := mat.NewVecDense(nx, nil)
	xCorr.MulVec(gain, inn)
	xCorr.AddVec(xCorr, x)

	// Joseph form update
	eye, _ := mx.NewDenseValIdentity(nx, 1.0)
	a := &mat.Dense{}
	// K*H
	a.Mul(gain, H)
	// eye - K*H
	a.Sub(eye, a)

	// K*R*K'
	kr := &mat.Dense{}
	kr.Mul(gain, k.r.Cov())
	krk := &mat.Dense{}
	krk.Mul(kr, gain.T())

	ap := &mat.Dense{}
	ap.Mul(a, k.pNext)
	apa := &mat.Dense{}
	apa.Mul(ap, a.T())
	apa.Add(apa, krk)

	// update KF innovation vector and gain
	k.inn.CopyVec(inn)
	k.k.Copy(gain)
	// update KF covariance matrix
	k.p.CopySym(matrix.Symmetrize(apa))

	return estimate.NewBaseWithCov(xCorr, k.p)
}

// Run runs one step of KF for given state x and measurement y.
// It corrects system state x using measurement y and returns new system estimate.
// It returns error if it either fails to propagate or correct state x.
func (k *KF) Run(x, y mat.Vector) (filter.Estimate, error) {
	pred, err := k.Predict(x)
	if err != nil {
		return nil, err
	}

	est, err := k.Update(pred.Val(), y)
	if err != nil {
		return nil, err
	}

	return est, nil
}

// Task returns KF task
func (k *KF) Task() filter.LinearTask {
	return k.task
}

// StateNoise retruns state noise
func (k *KF) StateNoise() filter.Noise {
	return k.q
}

// OutputNoise retruns output noise
func (k *KF) OutputNoise() filter.Noise {
	return k.r
}

// Cov returns KF covariance
func (k *KF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetCov sets KF covariance matrix to cov.
// It returns error if either cov is nil or its dimensions are not the same as KF covariance dimensions.
func (k *KF) SetCov(cov mat.Symmetric) error {
	if cov == nil {
		return fmt.Errorf("invalid covariance matrix: %v", cov)
	}

	if cov.SymmetricDim() != k.p.SymmetricDim() {
		return fmt.Errorf("invalid covariance matrix dims: [%d x %d]", cov.SymmetricDim(), cov.SymmetricDim())
	}

	k.p.CopySym(cov)

	return nil
}

// Gain returns Kalman gain
func (k *KF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns the innovation of the last update
func (k *KF) Innovation() mat.Vector {
	return mat.VecDenseCopyOf(k.inn)
}
