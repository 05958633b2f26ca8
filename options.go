package fugw

import "math"

// Options configures a Solve / SolveSparse call.
//
// Hyperparameters (see the package doc for the objective):
//   - Alpha ∈ [0,1] — feature-vs-geometry trade-off. 0 is pure
//     feature (Wasserstein) matching, 1 pure geometry (Gromov).
//     Forced to 1 when the problem carries no feature cost.
//   - RhoS, RhoT ∈ [0, +Inf] — marginal-relaxation strengths for the
//     source and target marginals. +Inf is a hard marginal constraint,
//     0 leaves the marginal fully unconstrained.
//   - Eps ≥ 0 — entropic regularization strength.
//   - Reg — Joint or Independent entropic accounting.
//
// Loop control:
//   - NitsBCD / TolBCD — outer block-coordinate-descent budget and
//     convergence tolerance on Σ|π − π_prev|.
//   - EvalBCD — evaluate and record the objective every EvalBCD steps.
//   - EarlyStop — stop when the recorded entropic loss moves by less
//     than this between consecutive evaluations.
//   - NitsUOT / TolUOT / EvalUOT — the same three knobs for the inner
//     UOT solver.
//   - IBPPNitsSinkhorn / IBPPEpsBase — inner scaling sweeps and
//     proximal strength of the IBPP solver (independent of Eps).
//
// Verbose gates per-evaluation progress lines on stdout.
type Options struct {
	Alpha float64
	RhoS  float64
	RhoT  float64
	Eps   float64
	Reg   RegMode

	Solver SolverKind

	NitsBCD   int
	TolBCD    float64
	EvalBCD   int
	EarlyStop float64

	NitsUOT int
	TolUOT  float64
	EvalUOT int

	IBPPNitsSinkhorn int
	IBPPEpsBase      float64

	Verbose bool
}

// DefaultOptions returns the reference configuration: a joint-mode
// Sinkhorn solve with mild relaxation and regularization.
//
//	Alpha 0.5, RhoS/RhoT 1, Eps 1e-2, Reg Joint, Solver Sinkhorn,
//	NitsBCD 10, TolBCD 1e-7, EvalBCD 1, EarlyStop 1e-6,
//	NitsUOT 1000, TolUOT 1e-7, EvalUOT 10,
//	IBPPNitsSinkhorn 1, IBPPEpsBase 1.
func DefaultOptions() Options {
	return Options{
		Alpha:            0.5,
		RhoS:             1,
		RhoT:             1,
		Eps:              1e-2,
		Reg:              Joint,
		Solver:           Sinkhorn,
		NitsBCD:          10,
		TolBCD:           1e-7,
		EvalBCD:          1,
		EarlyStop:        1e-6,
		NitsUOT:          1000,
		TolUOT:           1e-7,
		EvalUOT:          10,
		IBPPNitsSinkhorn: 1,
		IBPPEpsBase:      1,
	}
}

// validate rejects out-of-range knobs (ErrBadOptions) and the two
// explicitly unsupported hyperparameter regimes, which must fail fast
// before any iteration runs.
func (o Options) validate() error {
	switch {
	case o.Alpha < 0 || o.Alpha > 1 || math.IsNaN(o.Alpha):
		return ErrBadOptions
	case o.RhoS < 0 || o.RhoT < 0 || o.Eps < 0:
		return ErrBadOptions
	case math.IsNaN(o.RhoS) || math.IsNaN(o.RhoT) || math.IsNaN(o.Eps):
		return ErrBadOptions
	case o.Reg != Joint && o.Reg != Independent:
		return ErrBadOptions
	case o.Solver != Sinkhorn && o.Solver != MM && o.Solver != IBPP:
		return ErrBadOptions
	case o.NitsBCD < 1 || o.EvalBCD < 1 || o.NitsUOT < 1 || o.EvalUOT < 1:
		return ErrBadOptions
	case o.TolBCD < 0 || o.TolUOT < 0 || o.EarlyStop < 0:
		return ErrBadOptions
	case o.IBPPNitsSinkhorn < 1 || o.IBPPEpsBase <= 0:
		return ErrBadOptions
	}

	if math.IsInf(o.RhoS, 1) && math.IsInf(o.RhoT, 1) && o.Eps == 0 {
		return ErrBalancedUnsupported
	}
	if o.Eps == 0 &&
		((o.RhoS == 0 && math.IsInf(o.RhoT, 1)) || (o.RhoT == 0 && math.IsInf(o.RhoS, 1))) {
		return ErrSemiRelaxedUnsupported
	}

	return nil
}

// ChooseSolver maps a requested solver and hyperparameters to the
// solver that will actually run. Pure function, evaluated once before
// the BCD loop:
//
//   - MM cannot enforce a hard marginal, so RhoS = +Inf or RhoT = +Inf
//     reroutes to IBPP.
//   - Sinkhorn needs strictly positive entropic strength, so Eps = 0
//     reroutes to IBPP.
//
// The effective choice is reported in Result.Solver so callers and
// tests can observe the remap.
func ChooseSolver(requested SolverKind, rhoS, rhoT, eps float64) SolverKind {
	if requested == MM && (math.IsInf(rhoS, 1) || math.IsInf(rhoT, 1)) {
		return IBPP
	}
	if requested == Sinkhorn && eps == 0 {
		return IBPP
	}

	return requested
}
