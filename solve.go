package fugw

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw/uot"
)

// refiner is the single contract shared by the three inner solvers:
// refine one coupling (and its duals, when the solver keeps any)
// against a local cost matrix under rescaled UOT parameters.
type refiner interface {
	refine(cost, cur *mat.Dense, d *uot.Duals, p uot.Params) (*mat.Dense, *uot.Duals)
}

type sinkhornRefiner struct {
	ws, wt []float64
	cfg    uot.Config
}

func (r sinkhornRefiner) refine(cost, _ *mat.Dense, d *uot.Duals, p uot.Params) (*mat.Dense, *uot.Duals) {
	nd, pi := uot.Sinkhorn(cost, d, r.ws, r.wt, p, r.cfg)

	return pi, nd
}

type mmRefiner struct {
	ws, wt []float64
	cfg    uot.Config
}

func (r mmRefiner) refine(cost, cur *mat.Dense, _ *uot.Duals, p uot.Params) (*mat.Dense, *uot.Duals) {
	return uot.MM(cost, cur, r.ws, r.wt, p, r.cfg), nil
}

type ibppRefiner struct {
	ws, wt       []float64
	cfg          uot.Config
	nitsSinkhorn int
	epsBase      float64
}

func (r ibppRefiner) refine(cost, cur *mat.Dense, d *uot.Duals, p uot.Params) (*mat.Dense, *uot.Duals) {
	nd, pi := uot.IBPP(cost, cur, d, r.ws, r.wt, p, r.cfg, r.nitsSinkhorn, r.epsBase)

	return pi, nd
}

// newRefiner builds the strategy for the effective solver kind.
func newRefiner(k SolverKind, ws, wt []float64, o Options) refiner {
	cfg := uot.Config{Nits: o.NitsUOT, Tol: o.TolUOT, EvalEvery: o.EvalUOT}
	switch k {
	case Sinkhorn:
		return sinkhornRefiner{ws: ws, wt: wt, cfg: cfg}
	case MM:
		return mmRefiner{ws: ws, wt: wt, cfg: cfg}
	default:
		return ibppRefiner{ws: ws, wt: wt, cfg: cfg, nitsSinkhorn: o.IBPPNitsSinkhorn, epsBase: o.IBPPEpsBase}
	}
}

// initDuals builds the starting dual state for the effective solver:
// zeros for Sinkhorn (log domain), ones for IBPP (multiplicative),
// nil for MM. A caller-supplied warm start is deep-copied.
func initDuals(k SolverKind, n, m int, warm *uot.Duals) (dualsPi, dualsGamma *uot.Duals) {
	switch k {
	case MM:
		return nil, nil
	case Sinkhorn:
		dualsPi = uot.NewZeroDuals(n, m)
	default:
		dualsPi = uot.NewOneDuals(n, m)
	}
	if warm != nil {
		dualsPi = warm.Clone()
	}

	return dualsPi, dualsPi.Clone()
}

// Solve runs block-coordinate descent on the Fused Unbalanced
// Gromov-Wasserstein problem with dense couplings.
//
// Each iteration refines γ against the local cost induced by π, then π
// against the cost induced by γ; after each half-step the refined
// coupling is rescaled by sqrt(otherMass/ownMass) so the two masses
// track each other. The UOT parameters handed to the inner solver are
// rescaled by the partner's current mass; in Joint mode the entropic
// strength of both half-steps of an iteration uses the π mass measured
// at its top (a locked-in asymmetry of the reference scheme, not a
// bug to fix).
//
// The loop stops on Σ|π − π_prev| ≤ TolBCD, on the NitsBCD budget, or
// early when the recorded entropic loss stalls (EarlyStop).
//
// Errors: ErrBadOptions, ErrBalancedUnsupported,
// ErrSemiRelaxedUnsupported, ErrDimensionMismatch, ErrNegativeWeight.
// Non-convergence is not an error; inspect the loss trace. Non-finite
// couplings are reported via Result.Degenerate, not an error.
//
// Complexity: O(NitsBCD · (n·m·(n+m) + NitsUOT·n·m)).
func Solve(p Problem, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	n, m, err := p.validate()
	if err != nil {
		return Result{}, err
	}

	// A missing feature matrix disables the Wasserstein term.
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

	ctx := newDenseContext(p, ws, wt, alpha, f, opts)

	// Couplings start from the warm start or the product measure.
	var pi *mat.Dense
	if p.InitPlan != nil {
		pi = mat.DenseCopyOf(p.InitPlan)
	} else {
		pi = mat.NewDense(n, m, append([]float64(nil), ctx.wswt...))
	}
	gamma := mat.DenseCopyOf(pi)

	dualsPi, dualsGamma := initDuals(solver, n, m, p.InitDuals)
	ref := newRefiner(solver, ws, wt, opts)

	// Record the initial objective before any iteration.
	base, entropic := ctx.loss(pi, gamma)
	lossSteps := []int{0}
	loss := []float64{base}
	lossEntropic := []float64{entropic}
	lossTimes := []float64{0}

	t0 := time.Now()
	errBCD := math.Inf(1)
	for idx := 0; errBCD > opts.TolBCD && idx < opts.NitsBCD; idx++ {
		piPrev := mat.DenseCopyOf(pi)

		// γ half-step: parameters rescaled by the current π mass.
		mp := sumDense(pi)
		epsStep := opts.Eps
		if opts.Reg == Joint {
			epsStep = mp * opts.Eps
		}
		up := uot.Params{RhoS: opts.RhoS * mp, RhoT: opts.RhoT * mp, Eps: epsStep}
		gamma, dualsGamma = ref.refine(ctx.localCost(pi, true), gamma, dualsGamma, up)
		gamma.Scale(math.Sqrt(mp/sumDense(gamma)), gamma)

		// π half-step: ρ rescaled by the new γ mass, ε kept on mp.
		mg := sumDense(gamma)
		up = uot.Params{RhoS: opts.RhoS * mg, RhoT: opts.RhoT * mg, Eps: epsStep}
		pi, dualsPi = ref.refine(ctx.localCost(gamma, false), pi, dualsPi, up)
		pi.Scale(math.Sqrt(mg/sumDense(pi)), pi)

		errBCD = absDiffSum(pi, piPrev)

		if idx%opts.EvalBCD == 0 {
			base, entropic = ctx.loss(pi, gamma)
			lossSteps = append(lossSteps, idx+1)
			loss = append(loss, base)
			lossEntropic = append(lossEntropic, entropic)
			lossTimes = append(lossTimes, time.Since(t0).Seconds())

			if opts.Verbose {
				fmt.Printf("fugw: BCD step %d/%d\tloss %g (base), %g (entropic)\n",
					idx+1, opts.NitsBCD, base, entropic)
			}

			k := len(lossEntropic)
			if math.Abs(lossEntropic[k-2]-lossEntropic[k-1]) < opts.EarlyStop {
				break
			}
		}
	}

	degenerate := hasNonFinite(pi) || hasNonFinite(gamma)
	if degenerate && opts.Verbose {
		fmt.Println("fugw: coupling contains non-finite values")
	}

	return Result{
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

// absDiffSum returns Σ|a−b| over all entries.
func absDiffSum(a, b *mat.Dense) float64 {
	n, m := a.Dims()
	var s float64
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			s += math.Abs(a.At(i, j) - b.At(i, j))
		}
	}

	return s
}
