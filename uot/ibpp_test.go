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

// TestIBPP_ProductMeasureIsFixedPoint: at zero cost with normalized
// weights, the proximal kernel reproduces the product measure and the
// scaling sweeps leave formerly unit duals at one, for eps = 0 and
// eps > 0 alike.
func TestIBPP_ProductMeasureIsFixedPoint(t *testing.T) {
	n, m := 4, 5
	ws, wt := uniformWeights(n), uniformWeights(m)
	init := productMeasure(ws, wt)
	cost := mat.NewDense(n, m, nil)

	for _, eps := range []float64{0, 0.3} {
		d, pi := uot.IBPP(cost, init, uot.NewOneDuals(n, m), ws, wt,
			uot.Params{RhoS: 1, RhoT: 1, Eps: eps},
			uot.Config{Nits: 20, Tol: 0, EvalEvery: 1},
			1, 1,
		)

		require.NotNil(t, d)
		for i := 0; i < n; i++ {
			assert.InDelta(t, 1, d.U[i], 1e-12)
			for j := 0; j < m; j++ {
				assert.InDelta(t, ws[i]*wt[j], pi.At(i, j), 1e-12,
					"eps=%g entry (%d,%d)", eps, i, j)
			}
		}
	}
}

// TestIBPP_HardMarginals: rho = +Inf pins the marginals. Row sums are
// exact by construction of the last scaling update; column sums match
// once the proximal outer loop has converged.
func TestIBPP_HardMarginals(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n, m := 6, 5
	ws, wt := uniformWeights(n), uniformWeights(m)

	_, pi := uot.IBPP(randomCost(rng, n, m), productMeasure(ws, wt),
		uot.NewOneDuals(n, m), ws, wt,
		uot.Params{RhoS: math.Inf(1), RhoT: math.Inf(1), Eps: 0},
		uot.Config{Nits: 2000, Tol: 1e-12, EvalEvery: 10},
		1, 1,
	)

	rows, cols := rowColSums(pi)
	for i := range rows {
		assert.InDelta(t, ws[i], rows[i], 1e-12, "row %d", i)
	}
	for j := range cols {
		assert.InDelta(t, wt[j], cols[j], 1e-6, "col %d", j)
	}
}

// TestIBPP_InputsUntouched: neither the warm-start duals nor the
// initial plan may be mutated.
func TestIBPP_InputsUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n, m := 3, 4
	ws, wt := uniformWeights(n), uniformWeights(m)
	init := productMeasure(ws, wt)
	warm := uot.NewOneDuals(n, m)

	d, _ := uot.IBPP(randomCost(rng, n, m), init, warm, ws, wt,
		uot.Params{RhoS: 2, RhoT: 2, Eps: 0.1},
		uot.Config{Nits: 100, Tol: 1e-10, EvalEvery: 5},
		2, 1,
	)

	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, warm.U[i])
		for j := 0; j < m; j++ {
			assert.Equal(t, ws[i]*wt[j], init.At(i, j))
		}
	}
	assert.NotSame(t, warm, d)
}

// TestIBPP_FullyRelaxedDualsStayOne: rho = 0 drops both marginal
// penalties, so the scalings stay at one and the coupling is driven by
// the proximal kernel alone.
func TestIBPP_FullyRelaxedDualsStayOne(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n, m := 4, 4
	ws, wt := uniformWeights(n), uniformWeights(m)

	d, pi := uot.IBPP(randomCost(rng, n, m), productMeasure(ws, wt),
		uot.NewOneDuals(n, m), ws, wt,
		uot.Params{RhoS: 0, RhoT: 0, Eps: 0.2},
		uot.Config{Nits: 200, Tol: 1e-12, EvalEvery: 5},
		1, 1,
	)

	for i := range d.U {
		assert.Equal(t, 1.0, d.U[i])
	}
	for j := range d.V {
		assert.Equal(t, 1.0, d.V[j])
	}
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			assert.GreaterOrEqual(t, pi.At(i, j), 0.0)
		}
	}
}
