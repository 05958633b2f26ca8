package uot_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw/uot"
)

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	return w
}

func randomCost(rng *rand.Rand, n, m int) *mat.Dense {
	c := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			c.Set(i, j, rng.Float64())
		}
	}

	return c
}

func rowColSums(d *mat.Dense) (rows, cols []float64) {
	n, m := d.Dims()
	rows = make([]float64, n)
	cols = make([]float64, m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			rows[i] += d.At(i, j)
			cols[j] += d.At(i, j)
		}
	}

	return rows, cols
}

// TestSinkhorn_ZeroCostRecoversProductMeasure: with zero cost and
// normalized weights the dual fixed point is u = v = 0 and the
// recovered coupling is exactly the product measure.
func TestSinkhorn_ZeroCostRecoversProductMeasure(t *testing.T) {
	n, m := 4, 3
	ws, wt := uniformWeights(n), uniformWeights(m)
	cost := mat.NewDense(n, m, nil)

	duals, pi := uot.Sinkhorn(cost, uot.NewZeroDuals(n, m),
		ws, wt,
		uot.Params{RhoS: 1, RhoT: 1, Eps: 0.1},
		uot.Config{Nits: 100, Tol: 1e-12, EvalEvery: 1},
	)

	require.NotNil(t, duals)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0, duals.U[i], 1e-10)
		for j := 0; j < m; j++ {
			assert.InDelta(t, ws[i]*wt[j], pi.At(i, j), 1e-10)
		}
	}
}

// TestSinkhorn_HardMarginals: with rho = +Inf the scaling enforces the
// balanced entropic-OT marginals at convergence.
func TestSinkhorn_HardMarginals(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n, m := 6, 5
	ws, wt := uniformWeights(n), uniformWeights(m)
	inf := math.Inf(1)

	_, pi := uot.Sinkhorn(randomCost(rng, n, m), uot.NewZeroDuals(n, m),
		ws, wt,
		uot.Params{RhoS: inf, RhoT: inf, Eps: 0.5},
		uot.Config{Nits: 5000, Tol: 1e-13, EvalEvery: 1},
	)

	rows, cols := rowColSums(pi)
	for i := range rows {
		assert.InDelta(t, ws[i], rows[i], 1e-8, "row marginal %d", i)
	}
	for j := range cols {
		assert.InDelta(t, wt[j], cols[j], 1e-8, "col marginal %d", j)
	}
}

// TestSinkhorn_FullyRelaxedMarginals: rho = 0 pins both potentials to
// zero, so the coupling has the closed form (ws⊗wt)·exp(−C/eps).
func TestSinkhorn_FullyRelaxedMarginals(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n, m := 4, 4
	ws, wt := uniformWeights(n), uniformWeights(m)
	cost := randomCost(rng, n, m)
	eps := 0.25

	duals, pi := uot.Sinkhorn(cost, uot.NewZeroDuals(n, m),
		ws, wt,
		uot.Params{RhoS: 0, RhoT: 0, Eps: eps},
		uot.Config{Nits: 50, Tol: 1e-12, EvalEvery: 1},
	)

	for i := 0; i < n; i++ {
		assert.Zero(t, duals.U[i])
		for j := 0; j < m; j++ {
			want := ws[i] * wt[j] * math.Exp(-cost.At(i, j)/eps)
			assert.InDelta(t, want, pi.At(i, j), 1e-12)
		}
	}
}

// TestSinkhorn_NonNegativeAndInputUntouched: couplings are elementwise
// non-negative and the caller's dual state is never mutated.
func TestSinkhorn_NonNegativeAndInputUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n, m := 5, 7
	ws, wt := uniformWeights(n), uniformWeights(m)
	in := uot.NewZeroDuals(n, m)

	_, pi := uot.Sinkhorn(randomCost(rng, n, m), in,
		ws, wt,
		uot.Params{RhoS: 1, RhoT: 2, Eps: 1e-2},
		uot.Config{Nits: 200, Tol: 1e-9, EvalEvery: 10},
	)

	for i := 0; i < n; i++ {
		assert.Zero(t, in.U[i], "input duals must stay zero")
		for j := 0; j < m; j++ {
			assert.GreaterOrEqual(t, pi.At(i, j), 0.0)
		}
	}
}
