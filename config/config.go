// Package config loads filter run configuration from YAML files
// and builds the task, initial condition, result store and filter
// configuration it describes.
package config

import (
	"log/slog"
	"os"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/estimate"
	"github.com/milosgajdos/go-fos/fos"
	"github.com/milosgajdos/go-fos/noise"
	"github.com/milosgajdos/go-fos/sim"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Task kinds
const (
	KindLinear  = "linear"
	KindLanding = "landing"
)

// Config is filter run configuration
type Config struct {
	Filter Filter `yaml:"filter"`
	Grid   Grid   `yaml:"grid"`
	Task   Task   `yaml:"task"`
	Init   Init   `yaml:"init"`
}

// Filter configures the filter of optimal structure
type Filter struct {
	SampleSize int     `yaml:"sampleSize"`
	Seed       uint64  `yaml:"seed"`
	Tol        float64 `yaml:"tol"`
}

// Grid is the time grid of filter results
type Grid struct {
	T0    float64 `yaml:"t0"`
	Step  float64 `yaml:"step"`
	Steps int     `yaml:"steps"`
}

// Task selects and configures the filtered task
type Task struct {
	Kind        string  `yaml:"kind"`
	Linear      Linear  `yaml:"linear"`
	Landing     Landing `yaml:"landing"`
	StateNoise  Noise   `yaml:"stateNoise"`
	OutputNoise Noise   `yaml:"outputNoise"`
}

// Linear configures a linear task.
// Continuous system matrices are converted to discrete ones with the grid step.
type Linear struct {
	A          [][]float64 `yaml:"a"`
	C          [][]float64 `yaml:"c"`
	Continuous bool        `yaml:"continuous"`
}

// Landing configures the landing task
type Landing struct {
	KB       float64 `yaml:"kb"`
	BB       float64 `yaml:"bb"`
	SX       float64 `yaml:"sx"`
	R0       float64 `yaml:"r0"`
	GG       float64 `yaml:"gg"`
	RR       float64 `yaml:"rr"`
	Substeps int     `yaml:"substeps"`
	TurnTime float64 `yaml:"turnTime"`
}

// Noise configures zero mean Gaussian noise.
// Cov must be positive definite: a noiseless channel of a noisy task
// is not accepted, empty Cov configures zero noise on all channels.
type Noise struct {
	Cov  [][]float64 `yaml:"cov"`
	Seed uint64      `yaml:"seed"`
}

// Init is the initial condition
type Init struct {
	State []float64   `yaml:"state"`
	Cov   [][]float64 `yaml:"cov"`
}

// Default returns default configuration
func Default() Config {
	p := sim.DefaultLandingParams()

	return Config{
		Filter: Filter{
			SampleSize: 500,
		},
		Grid: Grid{
			Step:  1,
			Steps: 10,
		},
		Task: Task{
			Kind: KindLinear,
			Landing: Landing{
				KB:       p.KB,
				BB:       p.BB,
				SX:       p.SX,
				R0:       p.R0,
				GG:       p.GG,
				RR:       p.RR,
				Substeps: p.Substeps,
			},
		},
	}
}

// Load reads configuration from the YAML file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}

	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return c, nil
}

// Parse parses YAML configuration on top of the defaults and validates it
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate returns error if the configuration is invalid
func (c *Config) Validate() error {
	if c.Filter.SampleSize < 2 {
		return errors.Errorf("invalid sample size: %d", c.Filter.SampleSize)
	}

	if c.Grid.Steps < 2 {
		return errors.Errorf("invalid number of steps: %d", c.Grid.Steps)
	}

	if c.Grid.Step <= 0 {
		return errors.Errorf("invalid time step: %g", c.Grid.Step)
	}

	nx := len(c.Init.State)
	if nx == 0 {
		return errors.Errorf("initial state must be defined")
	}

	if _, err := sym(c.Init.Cov, nx); err != nil {
		return errors.Wrap(err, "initial covariance")
	}

	var ny int
	switch c.Task.Kind {
	case KindLinear:
		A, err := dense(c.Task.Linear.A)
		if err != nil {
			return errors.Wrap(err, "system matrix")
		}

		C, err := dense(c.Task.Linear.C)
		if err != nil {
			return errors.Wrap(err, "output matrix")
		}

		if r, cols := A.Dims(); r != nx || cols != nx {
			return errors.Errorf("invalid system matrix dimensions: [%d x %d], state dimension %d", r, cols, nx)
		}

		var cols int
		ny, cols = C.Dims()
		if cols != nx {
			return errors.Errorf("invalid output matrix dimensions: [%d x %d], state dimension %d", ny, cols, nx)
		}
	case KindLanding:
		if nx != 3 {
			return errors.Errorf("invalid landing state dimension: %d", nx)
		}
		ny = 2

		if err := c.landingParams().Validate(); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown task kind: %q", c.Task.Kind)
	}

	if len(c.Task.StateNoise.Cov) > 0 {
		if _, err := noiseCov(c.Task.StateNoise.Cov, nx); err != nil {
			return errors.Wrap(err, "state noise")
		}
	}

	if len(c.Task.OutputNoise.Cov) > 0 {
		if _, err := noiseCov(c.Task.OutputNoise.Cov, ny); err != nil {
			return errors.Wrap(err, "output noise")
		}
	}

	return nil
}

func (c *Config) landingParams() sim.LandingParams {
	l := c.Task.Landing

	return sim.LandingParams{
		KB:       l.KB,
		BB:       l.BB,
		SX:       l.SX,
		R0:       l.R0,
		GG:       l.GG,
		RR:       l.RR,
		Substeps: l.Substeps,
		TurnTime: l.TurnTime,
	}
}

// NewTask builds the configured task
func (c *Config) NewTask() (filter.Task, error) {
	nx := len(c.Init.State)

	switch c.Task.Kind {
	case KindLinear:
		A, err := dense(c.Task.Linear.A)
		if err != nil {
			return nil, err
		}

		C, err := dense(c.Task.Linear.C)
		if err != nil {
			return nil, err
		}

		ny, _ := C.Dims()
		q, r, err := c.noises(nx, ny)
		if err != nil {
			return nil, err
		}

		if c.Task.Linear.Continuous {
			ct, err := sim.NewContinuous(A, C)
			if err != nil {
				return nil, err
			}
			return ct.ToDiscrete(c.Grid.Step, q, r)
		}

		return sim.NewLinear(A, C, q, r)
	case KindLanding:
		q, r, err := c.noises(3, 2)
		if err != nil {
			return nil, err
		}

		return sim.NewLanding(c.landingParams(), q, r)
	}

	return nil, errors.Errorf("unknown task kind: %q", c.Task.Kind)
}

func (c *Config) noises(nx, ny int) (q, r filter.Noise, err error) {
	if q, err = newNoise(c.Task.StateNoise, nx); err != nil {
		return nil, nil, errors.Wrap(err, "state noise")
	}

	if r, err = newNoise(c.Task.OutputNoise, ny); err != nil {
		return nil, nil, errors.Wrap(err, "output noise")
	}

	return q, r, nil
}

// InitCond builds the configured initial condition
func (c *Config) InitCond() (*sim.InitCond, error) {
	nx := len(c.Init.State)
	cov, err := sym(c.Init.Cov, nx)
	if err != nil {
		return nil, err
	}

	return sim.NewInitCond(mat.NewVecDense(nx, append([]float64(nil), c.Init.State...)), cov), nil
}

// Store builds an empty result store on the configured time grid
func (c *Config) Store() (*estimate.Store, error) {
	ic, err := c.InitCond()
	if err != nil {
		return nil, err
	}

	return estimate.NewStore(c.Grid.T0, c.Grid.Step, c.Grid.Steps, ic)
}

// FilterConfig returns the filter configuration logging to log
func (c *Config) FilterConfig(log *slog.Logger) fos.Config {
	return fos.Config{
		SampleSize: c.Filter.SampleSize,
		Seed:       c.Filter.Seed,
		Tol:        c.Filter.Tol,
		Logger:     log,
	}
}

func newNoise(n Noise, size int) (filter.Noise, error) {
	if len(n.Cov) == 0 {
		return noise.NewZero(size)
	}

	cov, err := noiseCov(n.Cov, size)
	if err != nil {
		return nil, err
	}

	return noise.NewGaussianWithSeed(make([]float64, size), cov, n.Seed)
}

// dense builds a matrix from its rows
func dense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Errorf("empty matrix")
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.Errorf("invalid row %d length: %d, expected: %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	return mat.NewDense(len(rows), cols, data), nil
}

// sym builds a symmetric n x n matrix from its rows
func sym(rows [][]float64, n int) (*mat.SymDense, error) {
	m, err := dense(rows)
	if err != nil {
		return nil, err
	}

	if r, c := m.Dims(); r != n || c != n {
		return nil, errors.Errorf("invalid dimensions: [%d x %d], expected: [%d x %d]", r, c, n, n)
	}

	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if m.At(i, j) != m.At(j, i) {
				return nil, errors.Errorf("matrix is not symmetric at [%d, %d]", i, j)
			}
			s.SetSym(i, j, m.At(i, j))
		}
	}

	return s, nil
}

// noiseCov builds a positive definite n x n noise covariance from its rows
func noiseCov(rows [][]float64, n int) (*mat.SymDense, error) {
	cov, err := sym(rows, n)
	if err != nil {
		return nil, err
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, errors.Errorf("covariance is not positive definite, use empty cov for zero noise")
	}

	return cov, nil
}
