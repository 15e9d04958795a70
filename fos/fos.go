// Package fos implements the discrete filter of optimal structure.
//
// The filter tracks an ensemble of state samples X, measurement samples Y and
// correction samples Z stored as matrix columns. Every step propagates the
// ensemble through the task, corrects each sample with a statistically
// linearized gain and regresses the state onto the measurement and
// correction samples to obtain the linearization anchors of the next step.
package fos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/estimate"
	"github.com/milosgajdos/go-fos/matrix"
	"github.com/milosgajdos/go-fos/rand"
	mx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Config is filter of optimal structure configuration
type Config struct {
	// SampleSize is the number of ensemble samples
	SampleSize int
	// Seed seeds the initial ensemble draw; zero seeds it with the current time
	Seed uint64
	// Tol is the pseudo-inverse singular value cut-off; non-positive selects the default
	Tol float64
	// Logger logs filter progress; nil disables logging
	Logger *slog.Logger
}

// FOS is a discrete filter of optimal structure
type FOS struct {
	// task is the filtered stochastic system
	task filter.Task
	// store stores filter results
	store *estimate.Store
	// tol is pseudo-inverse tolerance
	tol float64
	// log is filter logger
	log *slog.Logger
	// nx, ny are state and output dimensions, n is the sample size
	nx, ny, n int
	// x stores state samples
	x *mat.Dense
	// y stores measurement samples
	y *mat.Dense
	// z stores correction samples
	z *mat.Dense
	// u stores anchor vectors
	u *mat.Dense
	// t is the covariance seed
	t *mat.SymDense
}

// New creates new filter of optimal structure and returns it.
// It accepts the following parameters:
//   - task:  stochastic system the filter estimates the state of
//   - store: result store holding only the initial condition record
//   - ic:    initial condition the state samples are drawn from
//   - c:     filter configuration
//
// New draws the initial ensemble, observes it at the initial time and
// computes the anchors and covariance seed of the first step.
// It returns error if either of the following conditions is met:
//   - sample size is less than 2
//   - task, initial condition and store dimensions disagree
//   - the initial ensemble fails to be drawn or observed
func New(task filter.Task, store *estimate.Store, ic filter.InitCond, c Config) (*FOS, error) {
	if task == nil || store == nil || ic == nil {
		return nil, fmt.Errorf("task, store and initial condition must be defined")
	}

	if c.SampleSize < 2 {
		return nil, fmt.Errorf("invalid sample size: %d", c.SampleSize)
	}

	nx, ny := task.Dims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: invalid task dimensions: [%d x %d]", filter.ErrDimension, nx, ny)
	}

	state, cov := ic.State(), ic.Cov()
	if state.Len() != nx || cov.SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: initial condition [%d, %d x %d], state dimension %d",
			filter.ErrDimension, state.Len(), cov.SymmetricDim(), cov.SymmetricDim(), nx)
	}

	if store.Dim() != nx {
		return nil, fmt.Errorf("%w: store dimension %d, state dimension %d", filter.ErrDimension, store.Dim(), nx)
	}

	if store.Len() != 1 {
		return nil, fmt.Errorf("store must hold only the initial condition, found %d records", store.Len())
	}

	log := c.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// draw state samples around the initial state
	x, err := rand.WithMeanCovN(state, cov, c.SampleSize, rand.NewSource(c.Seed))
	if err != nil {
		return nil, fmt.Errorf("failed to generate initial ensemble: %w", err)
	}

	f := &FOS{
		task:  task,
		store: store,
		tol:   c.Tol,
		log:   log,
		nx:    nx,
		ny:    ny,
		n:     c.SampleSize,
		x:     x,
		y:     mat.NewDense(ny, c.SampleSize, nil),
		z:     mat.NewDense(nx, c.SampleSize, nil),
		u:     mat.NewDense(nx, c.SampleSize, nil),
		t:     mat.NewSymDense(nx, nil),
	}

	t0 := store.Time(0)
	for s := 0; s < f.n; s++ {
		ys, err := task.Observe(t0, x.ColView(s))
		if err != nil {
			return nil, &filter.StepError{Step: 0, Sample: s, Time: t0, Err: modelErr(err)}
		}

		if err := setCol(f.y, s, ys); err != nil {
			return nil, &filter.StepError{Step: 0, Sample: s, Time: t0, Err: err}
		}
		// correction samples start at the prior mean
		if err := setCol(f.z, s, state); err != nil {
			return nil, &filter.StepError{Step: 0, Sample: s, Time: t0, Err: err}
		}
	}

	if _, err := f.Estimate(0); err != nil {
		return nil, err
	}

	f.log.Info("filter initialized", "nx", nx, "ny", ny, "samples", f.n, "steps", store.Steps())

	return f, nil
}

// Propagate advances the ensemble from step k-1 to step k and corrects every
// state sample with the measurement it produces.
// k must be the next step i.e. the number of stored records.
// It returns *filter.StepError if any of the task evaluations fails.
func (f *FOS) Propagate(k int) error {
	if k < 1 || k != f.store.Len() || k >= f.store.Steps() {
		return fmt.Errorf("invalid step: %d, next step: %d of %d", k, f.store.Len(), f.store.Steps())
	}

	tPrev, tk := f.store.Time(k-1), f.store.Time(k)
	dt := tk - tPrev

	for s := 0; s < f.n; s++ {
		if err := f.propagate(s, tPrev, tk, dt); err != nil {
			return &filter.StepError{Step: k, Sample: s, Time: tk, Err: err}
		}
	}

	return nil
}

// propagate advances sample s from tPrev to tk.
func (f *FOS) propagate(s int, tPrev, tk, dt float64) error {
	xs, err := f.task.Propagate(tPrev, dt, f.x.ColView(s))
	if err != nil {
		return modelErr(err)
	}

	us := f.u.ColView(s)
	lambda, err := f.task.Tau(tPrev, dt, us, f.t)
	if err != nil {
		return modelErr(err)
	}

	psi, err := f.task.Theta(tPrev, dt, us, f.t)
	if err != nil {
		return modelErr(err)
	}

	h, err := f.task.H(tk, lambda, psi)
	if err != nil {
		return modelErr(err)
	}

	G, err := f.task.G(tk, lambda, psi)
	if err != nil {
		return modelErr(err)
	}

	F, err := f.task.F(tk, lambda, psi)
	if err != nil {
		return modelErr(err)
	}

	ys, err := f.task.Observe(tk, xs)
	if err != nil {
		return modelErr(err)
	}

	if err := f.checkCoeffs(lambda, psi, h, G, F); err != nil {
		return err
	}

	zs, err := f.correct(lambda, psi, h, G, F, ys)
	if err != nil {
		return err
	}

	if err := setCol(f.x, s, xs); err != nil {
		return err
	}

	if err := setCol(f.y, s, ys); err != nil {
		return err
	}

	return setCol(f.z, s, zs)
}

// correct returns lambda + Psi*G^T*pinv(F)*(y - h)
func (f *FOS) correct(lambda mat.Vector, psi mat.Symmetric, h mat.Vector, G mat.Matrix, F mat.Symmetric, y mat.Vector) (*mat.VecDense, error) {
	if y.Len() != f.ny {
		return nil, fmt.Errorf("%w: measurement length %d, expected %d", filter.ErrDimension, y.Len(), f.ny)
	}

	fInv, err := matrix.Pinv(F, f.tol)
	if err != nil {
		return nil, err
	}

	// linearized gain
	pg := &mat.Dense{}
	pg.Mul(psi, G.T())
	gain := &mat.Dense{}
	gain.Mul(pg, fInv)

	// innovation
	inn := mat.NewVecDense(f.ny, nil)
	inn.SubVec(y, h)

	z := mat.NewVecDense(f.nx, nil)
	z.MulVec(gain, inn)
	z.AddVec(z, lambda)

	return z, nil
}

// checkCoeffs checks dimensions of the task linearization coefficients.
func (f *FOS) checkCoeffs(lambda mat.Vector, psi mat.Symmetric, h mat.Vector, G mat.Matrix, F mat.Symmetric) error {
	gr, gc := G.Dims()

	switch {
	case lambda.Len() != f.nx:
		return fmt.Errorf("%w: lambda length %d, expected %d", filter.ErrDimension, lambda.Len(), f.nx)
	case psi.SymmetricDim() != f.nx:
		return fmt.Errorf("%w: psi dimension %d, expected %d", filter.ErrDimension, psi.SymmetricDim(), f.nx)
	case h.Len() != f.ny:
		return fmt.Errorf("%w: h length %d, expected %d", filter.ErrDimension, h.Len(), f.ny)
	case gr != f.ny || gc != f.nx:
		return fmt.Errorf("%w: G dimensions [%d x %d], expected [%d x %d]", filter.ErrDimension, gr, gc, f.ny, f.nx)
	case F.SymmetricDim() != f.ny:
		return fmt.Errorf("%w: F dimension %d, expected %d", filter.ErrDimension, F.SymmetricDim(), f.ny)
	}

	return nil
}

// Aggregate stores the ensemble statistics of step k as record k.
// It returns *filter.StepError if the record fails to be stored.
func (f *FOS) Aggregate(k int) error {
	e := &mat.Dense{}
	e.Sub(f.x, f.z)

	rec := estimate.Record{
		MeanX: matrix.Mean(f.x),
		VarX:  matrix.Cov(f.x),
		MeanZ: matrix.Mean(f.z),
		MeanE: matrix.Mean(e),
		VarE:  matrix.Cov(e),
	}

	if err := f.store.Set(k, rec); err != nil {
		return &filter.StepError{Step: k, Sample: -1, Time: f.store.Time(k), Err: err}
	}

	return nil
}

// regression stores linear regression coefficients of the state
// onto the measurement and correction samples
type regression struct {
	gammaY *mat.Dense
	gammaZ *mat.Dense
	chi    *mat.VecDense
	t      *mat.SymDense
}

// regress computes the regression coefficients given the result record rec.
func (f *FOS) regress(rec estimate.Record) (*regression, error) {
	delta := &mat.Dense{}
	delta.Stack(f.y, f.z)

	dDelta := matrix.Cov(delta)
	my := matrix.Mean(f.y)
	dxy := matrix.CrossCov(f.x, f.y)
	dxz := matrix.CrossCov(f.x, f.z)

	dxyz := &mat.Dense{}
	dxyz.Augment(dxy, dxz)

	dInv, err := matrix.Pinv(dDelta, f.tol)
	if err != nil {
		return nil, err
	}

	gamma := &mat.Dense{}
	gamma.Mul(dxyz, dInv)

	gammaY := mat.DenseCopyOf(gamma.Slice(0, f.nx, 0, f.ny))
	gammaZ := mat.DenseCopyOf(gamma.Slice(0, f.nx, f.ny, f.ny+f.nx))

	// chi = meanX - GammaY*my - GammaZ*meanZ
	chi := mat.VecDenseCopyOf(rec.MeanX)
	gy := mat.NewVecDense(f.nx, nil)
	gy.MulVec(gammaY, my)
	chi.SubVec(chi, gy)
	gz := mat.NewVecDense(f.nx, nil)
	gz.MulVec(gammaZ, rec.MeanZ)
	chi.SubVec(chi, gz)

	// T = varX - GammaY*Dxy^T - GammaZ*Dxz^T
	t := mat.DenseCopyOf(rec.VarX)
	gdy := &mat.Dense{}
	gdy.Mul(gammaY, dxy.T())
	t.Sub(t, gdy)
	gdz := &mat.Dense{}
	gdz.Mul(gammaZ, dxz.T())
	t.Sub(t, gdz)

	if !matrix.IsFinite(t) || !matrix.IsFinite(chi) {
		return nil, fmt.Errorf("%w: non-finite regression coefficients", filter.ErrNumeric)
	}

	return &regression{
		gammaY: gammaY,
		gammaZ: gammaZ,
		chi:    chi,
		t:      matrix.Symmetrize(t),
	}, nil
}

// Estimate computes the covariance seed and the anchors of the next step
// from the ensemble and record k. k must be the last stored record.
// It returns the covariance seed or *filter.StepError if the regression fails.
func (f *FOS) Estimate(k int) (mat.Symmetric, error) {
	tk := f.store.Time(k)
	if k != f.store.Len()-1 {
		return nil, &filter.StepError{Step: k, Sample: -1, Time: tk,
			Err: fmt.Errorf("invalid step: %d, last record: %d", k, f.store.Len()-1)}
	}

	rec, err := f.store.At(k)
	if err != nil {
		return nil, &filter.StepError{Step: k, Sample: -1, Time: tk, Err: err}
	}

	r, err := f.regress(rec)
	if err != nil {
		return nil, &filter.StepError{Step: k, Sample: -1, Time: tk, Err: err}
	}

	// u = GammaY*Y + GammaZ*Z + chi
	u := &mat.Dense{}
	u.Mul(r.gammaY, f.y)
	uz := &mat.Dense{}
	uz.Mul(r.gammaZ, f.z)
	u.Add(u, uz)
	for i := 0; i < f.nx; i++ {
		row := u.RawRowView(i)
		for s := range row {
			row[s] += r.chi.AtVec(i)
		}
	}

	f.u = u
	f.t = r.t

	if f.log.Enabled(context.Background(), slog.LevelDebug) {
		f.log.Debug("filter step",
			"step", k,
			"time", tk,
			"trace_varE", mat.Trace(rec.VarE),
			"T", fmt.Sprintf("%v", mx.Format(r.t)))
	}

	return f.Seed(), nil
}

// Step runs a single filter step: it propagates the ensemble to step k,
// stores its statistics and computes the anchors of the next step.
func (f *FOS) Step(k int) error {
	if err := f.Propagate(k); err != nil {
		return err
	}

	if err := f.Aggregate(k); err != nil {
		return err
	}

	_, err := f.Estimate(k)

	return err
}

// Run runs the filter over all remaining steps of the result store.
// If a step fails the store is truncated to the records of the steps
// that completed and the step error is returned.
func (f *FOS) Run() error {
	for k := f.store.Len(); k < f.store.Steps(); k++ {
		if err := f.Step(k); err != nil {
			f.store.Truncate(k)
			f.log.Error("filter step failed", "step", k, "err", err)
			return err
		}
	}

	f.log.Info("filter finished", "steps", f.store.Len())

	return nil
}

// Ensemble returns copies of the state, measurement and correction samples
func (f *FOS) Ensemble() (x, y, z *mat.Dense) {
	return mat.DenseCopyOf(f.x), mat.DenseCopyOf(f.y), mat.DenseCopyOf(f.z)
}

// Anchors returns a copy of the anchor vectors of the next step
func (f *FOS) Anchors() *mat.Dense {
	return mat.DenseCopyOf(f.u)
}

// Seed returns a copy of the covariance seed of the next step
func (f *FOS) Seed() mat.Symmetric {
	t := mat.NewSymDense(f.nx, nil)
	t.CopySym(f.t)

	return t
}

// Store returns filter result store
func (f *FOS) Store() *estimate.Store {
	return f.store
}

// SampleSize returns the number of ensemble samples
func (f *FOS) SampleSize() int {
	return f.n
}

// setCol copies vector v into column s of m checking its length and values.
func setCol(m *mat.Dense, s int, v mat.Vector) error {
	rows, _ := m.Dims()
	if v.Len() != rows {
		return fmt.Errorf("%w: vector length %d, expected %d", filter.ErrDimension, v.Len(), rows)
	}

	if !matrix.IsFinite(v) {
		return fmt.Errorf("%w: non-finite sample", filter.ErrModel)
	}

	for i := 0; i < rows; i++ {
		m.Set(i, s, v.AtVec(i))
	}

	return nil
}

// modelErr makes sure err is classified as a model error.
func modelErr(err error) error {
	if errors.Is(err, filter.ErrModel) {
		return err
	}

	return fmt.Errorf("%w: %v", filter.ErrModel, err)
}
