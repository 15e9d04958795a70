package filter

import "gonum.org/v1/gonum/mat"

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate advances state x from time t by the time step dt
	Propagate(t, dt float64, x mat.Vector) (mat.Vector, error)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe returns the system output for state x at time t
	Observe(t float64, x mat.Vector) (mat.Vector, error)
}

// Linearizer computes the conditional moments of the next state given an
// anchor vector u and the conditional covariance T of the current state.
type Linearizer interface {
	// Tau returns the conditional mean (lambda) of the state propagated from t by dt
	Tau(t, dt float64, u mat.Vector, T mat.Symmetric) (mat.Vector, error)
	// Theta returns the conditional covariance (Psi) of the state propagated from t by dt
	Theta(t, dt float64, u mat.Vector, T mat.Symmetric) (mat.Symmetric, error)
}

// MeasurementModel returns linearized measurement coefficients at time t
// for a state distributed with mean lambda and covariance psi.
type MeasurementModel interface {
	// H returns the mean of the measurement
	H(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Vector, error)
	// G returns the matrix G such that Cov(state, measurement) = psi * G^T
	G(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Matrix, error)
	// F returns the covariance of the measurement
	F(t float64, lambda mat.Vector, psi mat.Symmetric) (mat.Symmetric, error)
}

// Task is a stochastic dynamical system consumed by filters of optimal structure.
// Every method takes the simulated time explicitly: a Task carries no mutable time.
type Task interface {
	// Propagator is system propagator
	Propagator
	// Observer is system observer
	Observer
	// Linearizer linearizes state propagation
	Linearizer
	// MeasurementModel linearizes system observation
	MeasurementModel
	// Dims returns state and output dimensions
	Dims() (nx, ny int)
}

// LinearTask is a Task with linear dynamics driven by additive noise:
//
//	x[k+1] = A*x[k] + w[k]
//	y[k]   = H*x[k] + v[k]
type LinearTask interface {
	// Task is stochastic dynamical system
	Task
	// SystemMatrix returns state propagation matrix A
	SystemMatrix() mat.Matrix
	// OutputMatrix returns observation matrix H
	OutputMatrix() mat.Matrix
	// StateNoise returns state noise w
	StateNoise() Noise
	// OutputNoise returns output noise v
	OutputNoise() Noise
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
