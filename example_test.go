package fugw_test

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw"
	"github.com/katalvlaran/fugw/plan"
)

// //////////////////////////////////////////////////////////////////////////////
// ExampleSolve
// //////////////////////////////////////////////////////////////////////////////
//
// Scenario:
//
//	Align ten points on a line with themselves. Geometry and features
//	agree, so the solver should concentrate mass near the diagonal.
//
// Options:
//   - Alpha = 0.5       (features and geometry weighted equally)
//   - RhoS = RhoT = 1   (soft marginal constraints)
//   - Eps = 1e-2        (mild entropic smoothing)
//
// Use case:
//
//	Sanity-check a pipeline on a self-alignment before feeding real
//	cross-subject data.
//
// Complexity: O(NitsBCD · n²·(n+n)) time for n points.
func ExampleSolve() {
	n := 10
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, math.Abs(float64(i-j)))
		}
	}

	res, err := fugw.Solve(fugw.Problem{Ds: d, Dt: d, F: mat.DenseCopyOf(d)}, fugw.DefaultOptions())
	if err != nil {
		fmt.Println("solve failed:", err)

		return
	}

	r, c := res.Pi.Dims()
	var diag, total float64
	for i := 0; i < n; i++ {
		diag += res.Pi.At(i, i)
		for j := 0; j < n; j++ {
			total += res.Pi.At(i, j)
		}
	}
	fmt.Printf("solver=%s shape=%dx%d degenerate=%v diagonal-dominant=%v\n",
		res.Solver, r, c, res.Degenerate, diag > total/2)
	// Output:
	// solver=sinkhorn shape=10x10 degenerate=false diagonal-dominant=true
}

// //////////////////////////////////////////////////////////////////////////////
// ExampleSolveSparse
// //////////////////////////////////////////////////////////////////////////////
//
// Scenario:
//
//	The same self-alignment restricted to a tridiagonal sparsity
//	pattern, the shape a coarse-to-fine pipeline would produce. The
//	coupling never leaves the pattern.
//
// Complexity: O(NitsBCD · nnz·(n + NitsUOT)) time.
func ExampleSolveSparse() {
	n := 10
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, math.Abs(float64(i-j)))
		}
	}
	lin, sqr := fugw.FactorSquare(d)

	mask := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j >= i-1 && j <= i+1 {
				mask.Set(i, j, 1)
			}
		}
	}
	pattern := plan.FromDense(mask, 0)
	for k := range pattern.Values() {
		pattern.Values()[k] = 0 // zero values: Solve seeds the product measure
	}

	res, err := fugw.SolveSparse(fugw.SparseProblem{
		Ds: lin, DsSqr: sqr,
		Dt: lin, DtSqr: sqr,
		InitPlan: pattern,
	}, fugw.DefaultOptions())
	if err != nil {
		fmt.Println("solve failed:", err)

		return
	}

	fmt.Printf("solver=%s nnz=%d on-pattern=%v degenerate=%v\n",
		res.Solver, res.Pi.NNZ(), pattern.SamePattern(res.Pi), res.Degenerate)
	// Output:
	// solver=sinkhorn nnz=28 on-pattern=true degenerate=false
}
