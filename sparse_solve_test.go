package fugw_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw"
	"github.com/katalvlaran/fugw/plan"
	"github.com/katalvlaran/fugw/uot"
)

// sparseFromDense packs a Problem's geometry into a SparseProblem with
// a full pattern and explicit square factors.
func sparseFromDense(ds, dt *mat.Dense, initPi *plan.Sparse) fugw.SparseProblem {
	dsl, dss := fugw.FactorSquare(ds)
	dtl, dts := fugw.FactorSquare(dt)

	return fugw.SparseProblem{
		Ds: dsl, DsSqr: dss,
		Dt: dtl, DtSqr: dts,
		InitPlan: initPi,
	}
}

// fullOnes returns an n×m full pattern with all-zero values, which
// SolveSparse seeds with the product measure.
func fullOnes(n, m int) *plan.Sparse {
	d := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			d.Set(i, j, 1)
		}
	}
	s := plan.FromDense(d, 0)
	for k := range s.Values() {
		s.Values()[k] = 0
	}

	return s
}

func TestSolveSparse_RequiresInitialPlan(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	ds, dt := randomGeometry(rng, 4), randomGeometry(rng, 4)
	p := sparseFromDense(ds, dt, nil)

	_, err := fugw.SolveSparse(p, quickOpts())
	assert.ErrorIs(t, err, fugw.ErrMissingPlan)
}

func TestSolveSparse_RejectsBadFactors(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	ds, dt := randomGeometry(rng, 4), randomGeometry(rng, 5)
	p := sparseFromDense(ds, dt, fullOnes(4, 5))
	p.DsSqr = fugw.LowRank{} // nil factors

	_, err := fugw.SolveSparse(p, quickOpts())
	assert.ErrorIs(t, err, fugw.ErrDimensionMismatch)

	p = sparseFromDense(ds, dt, fullOnes(3, 5)) // pattern shape disagrees
	_, err = fugw.SolveSparse(p, quickOpts())
	assert.ErrorIs(t, err, fugw.ErrDimensionMismatch)

	p = sparseFromDense(ds, dt, fullOnes(4, 5))
	p.InitDuals = uot.NewOneDuals(4, 3) // wrong target-side length
	_, err = fugw.SolveSparse(p, quickOpts())
	assert.ErrorIs(t, err, fugw.ErrDimensionMismatch)
}

// TestSolveSparse_MatchesDenseOnFullPattern: on a pattern holding every
// entry, the pattern-restricted engine and the dense engine are the
// same algorithm and must agree closely.
func TestSolveSparse_MatchesDenseOnFullPattern(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	n, m := 7, 6
	ds, dt := randomGeometry(rng, n), randomGeometry(rng, m)

	o := fugw.DefaultOptions()
	o.NitsBCD = 8

	dense, err := fugw.Solve(fugw.Problem{Ds: ds, Dt: dt}, o)
	require.NoError(t, err)

	sp, err := fugw.SolveSparse(sparseFromDense(ds, dt, fullOnes(n, m)), o)
	require.NoError(t, err)

	require.False(t, dense.Degenerate)
	require.False(t, sp.Degenerate)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			assert.InDelta(t, dense.Pi.At(i, j), sp.Pi.At(i, j), 1e-4,
				"pi entry (%d,%d)", i, j)
			assert.InDelta(t, dense.Gamma.At(i, j), sp.Gamma.At(i, j), 1e-4,
				"gamma entry (%d,%d)", i, j)
		}
	}
	assert.InDeltaSlice(t, dense.LossEntropic, sp.LossEntropic, 1e-4)
}

// TestSolveSparse_StaysOnPattern: a band pattern is preserved through
// every iteration; entries off the band remain structurally zero.
func TestSolveSparse_StaysOnPattern(t *testing.T) {
	rng := rand.New(rand.NewSource(34))
	n := 8
	ds, dt := randomGeometry(rng, n), randomGeometry(rng, n)

	bandD := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j >= i-1 && j <= i+1 {
				bandD.Set(i, j, 1)
			}
		}
	}
	pattern := plan.FromDense(bandD, 0)
	for k := range pattern.Values() {
		pattern.Values()[k] = 0
	}

	o := fugw.DefaultOptions()
	o.NitsBCD = 6
	res, err := fugw.SolveSparse(sparseFromDense(ds, dt, pattern), o)
	require.NoError(t, err)

	require.True(t, pattern.SamePattern(res.Pi))
	require.True(t, pattern.SamePattern(res.Gamma))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j < i-1 || j > i+1 {
				assert.Zero(t, res.Pi.At(i, j))
				assert.Zero(t, res.Gamma.At(i, j))
			}
		}
	}
	assert.Greater(t, res.Pi.Sum(), 0.0)
	assert.False(t, res.Degenerate)
}

// TestSolveSparse_ZeroValuedPlanIsSeeded: an all-zero initial plan is
// seeded with the product measure on the pattern, not left at zero, and
// the caller's plan is not written to.
func TestSolveSparse_ZeroValuedPlanIsSeeded(t *testing.T) {
	rng := rand.New(rand.NewSource(35))
	n, m := 5, 5
	ds, dt := randomGeometry(rng, n), randomGeometry(rng, m)
	init := fullOnes(n, m)

	res, err := fugw.SolveSparse(sparseFromDense(ds, dt, init), quickOpts())
	require.NoError(t, err)

	assert.Greater(t, res.Pi.Sum(), 0.0)
	assert.Zero(t, init.Sum(), "caller's plan must stay untouched")
}

// TestSolveSparse_RemapIsObservable mirrors the dense remap check.
func TestSolveSparse_RemapIsObservable(t *testing.T) {
	rng := rand.New(rand.NewSource(36))
	n := 5
	ds, dt := randomGeometry(rng, n), randomGeometry(rng, n)

	o := quickOpts()
	o.Solver = fugw.MM
	o.RhoT = math.Inf(1)
	res, err := fugw.SolveSparse(sparseFromDense(ds, dt, fullOnes(n, n)), o)
	require.NoError(t, err)
	assert.Equal(t, fugw.IBPP, res.Solver)
	assert.NotNil(t, res.DualsPi)
}
