package fugw

import (
	"fmt"
	"math"
	"time"

	"github.com/katalvlaran/fugw/plan"
	"github.com/katalvlaran/fugw/uot"
)

// sparseRefiner mirrors refiner for pattern-restricted couplings.
type sparseRefiner interface {
	refine(cost, cur *plan.Sparse, d *uot.Duals, p uot.Params) (*plan.Sparse, *uot.Duals)
}

type sinkhornSparseRefiner struct {
	ws, wt []float64
	cfg    uot.Config
}

func (r sinkhornSparseRefiner) refine(cost, _ *plan.Sparse, d *uot.Duals, p uot.Params) (*plan.Sparse, *uot.Duals) {
	nd, pi := uot.SinkhornSparse(cost, d, r.ws, r.wt, p, r.cfg)

	return pi, nd
}

type mmSparseRefiner struct {
	ws, wt []float64
	cfg    uot.Config
}

func (r mmSparseRefiner) refine(cost, cur *plan.Sparse, _ *uot.Duals, p uot.Params) (*plan.Sparse, *uot.Duals) {
	return uot.MMSparse(cost, cur, r.ws, r.wt, p, r.cfg), nil
}

type ibppSparseRefiner struct {
	ws, wt       []float64
	cfg          uot.Config
	nitsSinkhorn int
	epsBase      float64
}

func (r ibppSparseRefiner) refine(cost, cur *plan.Sparse, d *uot.Duals, p uot.Params) (*plan.Sparse, *uot.Duals) {
	nd, pi := uot.IBPPSparse(cost, cur, d, r.ws, r.wt, p, r.cfg, r.nitsSinkhorn, r.epsBase)

	return pi, nd
}

func newSparseRefiner(k SolverKind, ws, wt []float64, o Options) sparseRefiner {
	cfg := uot.Config{Nits: o.NitsUOT, Tol: o.TolUOT, EvalEvery: o.EvalUOT}
	switch k {
	case Sinkhorn:
		return sinkhornSparseRefiner{ws: ws, wt: wt, cfg: cfg}
	case MM:
		return mmSparseRefiner{ws: ws, wt: wt, cfg: cfg}
	default:
		return ibppSparseRefiner{ws: ws, wt: wt, cfg: cfg, nitsSinkhorn: o.IBPPNitsSinkhorn, epsBase: o.IBPPEpsBase}
	}
}

// SolveSparse runs the same block-coordinate descent as Solve with both
// couplings confined to the fixed sparsity pattern of p.InitPlan
// (typically produced by a coarse-to-fine sampling step). Every
// elementwise operation, marginal reduction and cost construction is
// restricted to that pattern; no step ever creates an entry outside it.
//
// Geometry is consumed as low-rank factors (see LowRank and
// FactorSquare), so no n×m dense matrix is materialized at any point.
//
// If p.InitPlan carries all-zero values it is seeded with the product
// measure restricted to the pattern.
//
// Errors: those of Solve, plus ErrMissingPlan when no initial plan is
// supplied.
//
// Complexity: O(NitsBCD · (nnz·(d+NitsUOT) + (n+m)·d²)) for factor
// width d.
func SolveSparse(p SparseProblem, opts Options) (SparseResult, error) {
	if err := opts.validate(); err != nil {
		return SparseResult{}, err
	}
	n, m, err := p.validate()
	if err != nil {
		return SparseResult{}, err
	}

	alpha, f := opts.Alpha, p.F
	if f == nil || alpha == 1 {
		alpha, f = 1, nil
	}

	solver := ChooseSolver(opts.Solver, opts.RhoS, opts.RhoT, opts.Eps)

	ws, wt := p.Ws, p.Wt
	if ws == nil {
		ws = uniform(n)
	}
	if wt == nil {
		wt = uniform(m)
	}

	ctx := newSparseContext(p, ws, wt, alpha, f, opts)

	pi := p.InitPlan.Clone()
	if pi.Sum() == 0 {
		copy(pi.Values(), ctx.refPatt)
	}
	gamma := pi.Clone()

	dualsPi, dualsGamma := initDuals(solver, n, m, p.InitDuals)
	ref := newSparseRefiner(solver, ws, wt, opts)

	base, entropic := ctx.loss(pi, gamma)
	lossSteps := []int{0}
	loss := []float64{base}
	lossEntropic := []float64{entropic}
	lossTimes := []float64{0}

	t0 := time.Now()
	errBCD := math.Inf(1)
	for idx := 0; errBCD > opts.TolBCD && idx < opts.NitsBCD; idx++ {
		piPrev := pi.Clone()

		mp := pi.Sum()
		epsStep := opts.Eps
		if opts.Reg == Joint {
			epsStep = mp * opts.Eps
		}
		up := uot.Params{RhoS: opts.RhoS * mp, RhoT: opts.RhoT * mp, Eps: epsStep}
		gamma, dualsGamma = ref.refine(ctx.localCost(pi, true), gamma, dualsGamma, up)
		gamma.Scale(math.Sqrt(mp / gamma.Sum()))

		mg := gamma.Sum()
		up = uot.Params{RhoS: opts.RhoS * mg, RhoT: opts.RhoT * mg, Eps: epsStep}
		pi, dualsPi = ref.refine(ctx.localCost(gamma, false), pi, dualsPi, up)
		pi.Scale(math.Sqrt(mg / pi.Sum()))

		errBCD = sliceAbsDiffSum(pi.Values(), piPrev.Values())

		if idx%opts.EvalBCD == 0 {
			base, entropic = ctx.loss(pi, gamma)
			lossSteps = append(lossSteps, idx+1)
			loss = append(loss, base)
			lossEntropic = append(lossEntropic, entropic)
			lossTimes = append(lossTimes, time.Since(t0).Seconds())

			if opts.Verbose {
				fmt.Printf("fugw: sparse BCD step %d/%d\tloss %g (base), %g (entropic)\n",
					idx+1, opts.NitsBCD, base, entropic)
			}

			k := len(lossEntropic)
			if math.Abs(lossEntropic[k-2]-lossEntropic[k-1]) < opts.EarlyStop {
				break
			}
		}
	}

	degenerate := sliceHasNonFinite(pi.Values()) || sliceHasNonFinite(gamma.Values())
	if degenerate && opts.Verbose {
		fmt.Println("fugw: coupling contains non-finite values")
	}

	return SparseResult{
		Pi:           pi,
		Gamma:        gamma,
		DualsPi:      dualsPi,
		DualsGamma:   dualsGamma,
		LossSteps:    lossSteps,
		Loss:         loss,
		LossEntropic: lossEntropic,
		LossTimes:    lossTimes,
		Solver:       solver,
		Degenerate:   degenerate,
	}, nil
}

// sliceAbsDiffSum returns Σ|a−b|.
func sliceAbsDiffSum(a, b []float64) float64 {
	var s float64
	for i, x := range a {
		s += math.Abs(x - b[i])
	}

	return s
}

// sliceHasNonFinite reports a NaN or ±Inf value in a.
func sliceHasNonFinite(a []float64) bool {
	for _, x := range a {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}

	return false
}
