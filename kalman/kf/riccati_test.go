package kf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// scalarPosterior returns the scalar Riccati posterior fixed point
// of x[k+1] = a*x[k] + w, y[k] = x[k] + v.
func scalarPosterior(a, q, r float64) float64 {
	// P- = a^2*P + q, P = P-*r/(P- + r) solved for P-
	b := r*(1-a*a) - q
	pm := (-b + math.Sqrt(b*b+4*q*r)) / 2

	return pm * r / (pm + r)
}

func TestCovariances(t *testing.T) {
	assert := assert.New(t)

	covs, err := Covariances(scalar, scalarIC, 4)
	assert.NoError(err)
	assert.Len(covs, 4)

	// step 0 assimilates the initial measurement
	assert.InDelta(0.5, covs[0].At(0, 0), 1e-12)

	p := 0.5
	for k := 1; k < 4; k++ {
		pm := 0.81*p + 1
		p = pm / (pm + 1)
		assert.InDelta(p, covs[k].At(0, 0), 1e-12)
	}

	_, err = Covariances(scalar, scalarIC, 0)
	assert.Error(err)
}

func TestSteadyState(t *testing.T) {
	assert := assert.New(t)

	p, err := SteadyState(scalar, 1e-12, 1000)
	assert.NoError(err)
	assert.InDelta(scalarPosterior(0.9, 1, 1), p.At(0, 0), 1e-9)

	_, err = SteadyState(scalar, 1e-12, 1)
	assert.Error(err)
}
