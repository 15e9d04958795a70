package estimate

import (
	"fmt"

	filter "github.com/milosgajdos/go-fos"
	"gonum.org/v1/gonum/mat"
)

// Record stores filter results at a single time step
type Record struct {
	// Time is the time stamp of the record
	Time float64
	// MeanX is the mean of the state
	MeanX *mat.VecDense
	// VarX is the covariance of the state
	VarX *mat.SymDense
	// MeanZ is the mean of the filter estimates
	MeanZ *mat.VecDense
	// MeanE is the mean of the estimation error X-Z
	MeanE *mat.VecDense
	// VarE is the covariance of the estimation error X-Z
	VarE *mat.SymDense
}

// Clone returns a deep copy of r
func (r Record) Clone() Record {
	c := Record{Time: r.Time}
	if r.MeanX != nil {
		c.MeanX = mat.VecDenseCopyOf(r.MeanX)
	}
	if r.VarX != nil {
		c.VarX = mat.NewSymDense(r.VarX.SymmetricDim(), nil)
		c.VarX.CopySym(r.VarX)
	}
	if r.MeanZ != nil {
		c.MeanZ = mat.VecDenseCopyOf(r.MeanZ)
	}
	if r.MeanE != nil {
		c.MeanE = mat.VecDenseCopyOf(r.MeanE)
	}
	if r.VarE != nil {
		c.VarE = mat.NewSymDense(r.VarE.SymmetricDim(), nil)
		c.VarE.CopySym(r.VarE)
	}

	return c
}

// State returns the state mean and covariance as an estimate
func (r Record) State() (*Base, error) {
	return NewBaseWithCov(r.MeanX, r.VarX)
}

// Error returns the estimation error mean and covariance as an estimate
func (r Record) Error() (*Base, error) {
	return NewBaseWithCov(r.MeanE, r.VarE)
}

func (r Record) check(nx int) error {
	if r.MeanX == nil || r.VarX == nil || r.MeanZ == nil || r.MeanE == nil || r.VarE == nil {
		return fmt.Errorf("%w: incomplete record", filter.ErrDimension)
	}

	if r.MeanX.Len() != nx || r.MeanZ.Len() != nx || r.MeanE.Len() != nx {
		return fmt.Errorf("%w: record mean dimensions [%d %d %d], expected %d",
			filter.ErrDimension, r.MeanX.Len(), r.MeanZ.Len(), r.MeanE.Len(), nx)
	}

	if r.VarX.SymmetricDim() != nx || r.VarE.SymmetricDim() != nx {
		return fmt.Errorf("%w: record covariance dimensions [%d %d], expected %d",
			filter.ErrDimension, r.VarX.SymmetricDim(), r.VarE.SymmetricDim(), nx)
	}

	return nil
}

// Store is an ordered sequence of filter records on a fixed time grid.
// It is pre-sized to the number of steps; record 0 holds the initial
// condition and is never overwritten. Records are written in step order.
type Store struct {
	// t0 is the initial time
	t0 float64
	// dt is the time step between consecutive records
	dt float64
	// nx is the state dimension
	nx int
	// recs stores records
	recs []Record
	// n is the number of valid records
	n int
}

// NewStore creates new Store with steps records on the time grid t0 + k*dt
// and populates record 0 from the initial condition ic.
// It returns error if fewer than 2 steps are requested, dt is not positive
// or ic is invalid.
func NewStore(t0, dt float64, steps int, ic filter.InitCond) (*Store, error) {
	if steps < 2 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid time step: %g", dt)
	}

	state := ic.State()
	cov := ic.Cov()
	nx := state.Len()
	if nx == 0 || cov.SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: initial state %d, initial covariance %d x %d",
			filter.ErrDimension, nx, cov.SymmetricDim(), cov.SymmetricDim())
	}

	varX := mat.NewSymDense(nx, nil)
	varX.CopySym(cov)
	varE := mat.NewSymDense(nx, nil)
	varE.CopySym(cov)

	recs := make([]Record, steps)
	recs[0] = Record{
		Time:  t0,
		MeanX: mat.VecDenseCopyOf(state),
		VarX:  varX,
		MeanZ: mat.VecDenseCopyOf(state),
		MeanE: mat.NewVecDense(nx, nil),
		VarE:  varE,
	}

	return &Store{
		t0:   t0,
		dt:   dt,
		nx:   nx,
		recs: recs,
		n:    1,
	}, nil
}

// Len returns the number of valid records
func (s *Store) Len() int {
	return s.n
}

// Steps returns the configured number of records
func (s *Store) Steps() int {
	return len(s.recs)
}

// Dim returns the state dimension
func (s *Store) Dim() int {
	return s.nx
}

// Step returns the time step between consecutive records
func (s *Store) Step() float64 {
	return s.dt
}

// Time returns the time of step k on the store time grid
func (s *Store) Time(k int) float64 {
	return s.t0 + float64(k)*s.dt
}

// Times returns time stamps of all valid records
func (s *Store) Times() []float64 {
	times := make([]float64, s.n)
	for k := range times {
		times[k] = s.recs[k].Time
	}

	return times
}

// At returns a copy of record k.
// It returns error if k is not a valid record index.
func (s *Store) At(k int) (Record, error) {
	if k < 0 || k >= s.n {
		return Record{}, fmt.Errorf("invalid record index: %d", k)
	}

	return s.recs[k].Clone(), nil
}

// Set stores a copy of rec as record k stamped with the grid time of step k.
// k must be the next record in order: k == Len().
// It returns error if k is 0, out of order or rec dimensions are invalid.
func (s *Store) Set(k int, rec Record) error {
	if k == 0 {
		return fmt.Errorf("record 0 is the initial condition")
	}

	if k != s.n || k >= len(s.recs) {
		return fmt.Errorf("invalid record index: %d, next record: %d of %d", k, s.n, len(s.recs))
	}

	if err := rec.check(s.nx); err != nil {
		return err
	}

	c := rec.Clone()
	c.Time = s.Time(k)
	s.recs[k] = c
	s.n++

	return nil
}

// Truncate discards all records from index n on.
// Record 0 is always kept.
func (s *Store) Truncate(n int) {
	if n < 1 {
		n = 1
	}

	for k := n; k < s.n; k++ {
		s.recs[k] = Record{}
	}

	if n < s.n {
		s.n = n
	}
}
