// Package kalman defines reference Kalman filters used to validate
// filters of optimal structure on linear tasks.
package kalman

import (
	filter "github.com/milosgajdos/go-fos"
	"gonum.org/v1/gonum/mat"
)

// Kalman is Kalman Filter
type Kalman interface {
	// Predict estimates the next state given the state estimate x
	Predict(x mat.Vector) (filter.Estimate, error)
	// Update corrects the predicted state x using the measurement y
	Update(x, y mat.Vector) (filter.Estimate, error)
	// Run runs a single predict and update step
	Run(x, y mat.Vector) (filter.Estimate, error)
	// Cov returns Kalman filter state covariance
	Cov() mat.Symmetric
	// Gain returns Kalman filter gain
	Gain() mat.Matrix
}
