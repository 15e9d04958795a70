package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fos"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations
//
//	dx/dt = A*x
//	y = C*x
func NewContinuous(A, C *mat.Dense) (*Continuous, error) {
	if A == nil || C == nil {
		return nil, fmt.Errorf("system and output matrices must be defined for a model")
	}

	sys, err := newSystem(A, C)
	if err != nil {
		return nil, err
	}

	return &Continuous{System: sys}, nil
}

// ToDiscrete creates a discrete-time linear task from a continuous time model
// using Ts as the sampling time. q and r are the discrete state and output noise.
//
// The discrete system matrix is the matrix exponential exp(A*Ts).
// See Discrete-Time Control Systems by Katsuhiko Ogata, Eq. (5-73).
func (ct *Continuous) ToDiscrete(Ts float64, q, r filter.Noise) (*Linear, error) {
	if Ts <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %g", Ts)
	}

	nx, _ := ct.SystemDims()
	A := mat.NewDense(nx, nx, nil)
	A.Scale(Ts, ct.A)
	A.Exp(A)

	return NewLinear(A, ct.C, q, r)
}
