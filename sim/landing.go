package sim

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fos"
)

// Default Mars descent parameters
const (
	// KB is the lift to drag ratio
	KB = 0.3
	// BB is the inverse atmosphere scale height [1/m]
	BB = 0.00009
	// SX is the ballistic coefficient: drag area times drag coefficient per mass [m^2/kg]
	SX = 1.0 / 150.0
	// R0 is the surface atmosphere density [kg/m^3]
	R0 = 0.013
	// GG is the surface gravity acceleration [m/s^2]
	GG = 3.711
	// RR is the planet radius [m]
	RR = 3390000.0
)

// LandingParams configures the descent vehicle and the planet.
type LandingParams struct {
	KB float64
	BB float64
	SX float64
	R0 float64
	GG float64
	RR float64
	// Substeps is the number of Euler integration steps per time step
	Substeps int
	// TurnTime is the time the vehicle rolls over and its lift changes sign.
	// Zero disables the turn.
	TurnTime float64
}

// DefaultLandingParams returns Mars descent parameters
func DefaultLandingParams() LandingParams {
	return LandingParams{
		KB:       KB,
		BB:       BB,
		SX:       SX,
		R0:       R0,
		GG:       GG,
		RR:       RR,
		Substeps: 10,
	}
}

// Validate returns error if p is invalid
func (p LandingParams) Validate() error {
	for name, v := range map[string]float64{"SX": p.SX, "R0": p.R0, "GG": p.GG, "RR": p.RR} {
		if v <= 0 {
			return fmt.Errorf("invalid landing parameter %s: %g", name, v)
		}
	}

	if p.BB < 0 || p.KB < 0 || p.TurnTime < 0 {
		return fmt.Errorf("invalid landing parameters: KB=%g BB=%g TurnTime=%g", p.KB, p.BB, p.TurnTime)
	}

	if p.Substeps < 1 {
		return fmt.Errorf("invalid number of substeps: %d", p.Substeps)
	}

	return nil
}

// Landing is a planar atmospheric descent of a vehicle on a planet.
//
// State is (V, theta, h): speed [m/s], flight path angle [rad] and altitude [m].
// Output is (a, h): magnitude of the aerodynamic acceleration measured by
// an accelerometer [m/s^2] and altitude measured by an altimeter [m].
type Landing struct {
	*Nonlinear
	p LandingParams
}

// NewLanding creates new landing task with parameters p, state noise q and
// output noise r and returns it.
// It returns error if p is invalid or the noise dimensions are not 3 and 2.
func NewLanding(p LandingParams, q, r filter.Noise) (*Landing, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l := &Landing{p: p}
	nl, err := NewNonlinear(3, 2, l.transition, l.output, q, r)
	if err != nil {
		return nil, err
	}
	l.Nonlinear = nl

	return l, nil
}

// Params returns landing parameters
func (l *Landing) Params() LandingParams {
	return l.p
}

// Density returns the atmosphere density at altitude h
func (l *Landing) Density(h float64) float64 {
	return l.p.R0 * math.Exp(-l.p.BB*h)
}

// Gravity returns the gravity acceleration at altitude h
func (l *Landing) Gravity(h float64) float64 {
	r := l.p.RR / (l.p.RR + h)
	return l.p.GG * r * r
}

// Drag returns the drag acceleration at speed v and altitude h
func (l *Landing) Drag(v, h float64) float64 {
	return 0.5 * l.p.SX * l.Density(h) * v * v
}

// lift returns the lift direction at time t
func (l *Landing) lift(t float64) float64 {
	if l.p.TurnTime > 0 && t >= l.p.TurnTime {
		return -1
	}

	return 1
}

func (l *Landing) check(x []float64) error {
	if len(x) != 3 {
		return fmt.Errorf("invalid state length: %d", len(x))
	}

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite state: %v", x)
		}
	}

	if x[0] <= 0 {
		return fmt.Errorf("state out of domain: speed %g", x[0])
	}

	if x[2] < 0 {
		return fmt.Errorf("state out of domain: altitude %g", x[2])
	}

	return nil
}

// derivative returns the time derivative of state x at time t
func (l *Landing) derivative(t float64, x []float64) [3]float64 {
	v, theta, h := x[0], x[1], x[2]
	d := l.Drag(v, h)
	g := l.Gravity(h)
	sin, cos := math.Sincos(theta)

	return [3]float64{
		-d - g*sin,
		l.lift(t)*l.p.KB*d/v - (g/v-v/(l.p.RR+h))*cos,
		v * sin,
	}
}

// transition integrates the equations of motion from t by dt
func (l *Landing) transition(t, dt float64, x []float64) ([]float64, error) {
	if err := l.check(x); err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	copy(out, x)

	h := dt / float64(l.p.Substeps)
	for i := 0; i < l.p.Substeps; i++ {
		dx := l.derivative(t+float64(i)*h, out)
		for j := range out {
			out[j] += h * dx[j]
		}

		if err := l.check(out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// output returns aerodynamic acceleration magnitude and altitude
func (l *Landing) output(t float64, x []float64) ([]float64, error) {
	if err := l.check(x); err != nil {
		return nil, err
	}

	a := l.Drag(x[0], x[2]) * math.Sqrt(1+l.p.KB*l.p.KB)

	return []float64{a, x[2]}, nil
}
