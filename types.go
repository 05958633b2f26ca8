package fugw

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw/plan"
	"github.com/katalvlaran/fugw/uot"
)

// ErrBalancedUnsupported is returned when both marginal constraints are
// hard (RhoS = RhoT = +Inf) and Eps = 0: the fully balanced
// Gromov-Wasserstein problem, which this package deliberately does not
// solve. Use a balanced-GW solver instead.
var ErrBalancedUnsupported = errors.New("fugw: balanced problem (rho_s = rho_t = +Inf, eps = 0) not supported")

// ErrSemiRelaxedUnsupported is returned when Eps = 0 while one rho is 0
// and the other +Inf: the unregularized semi-relaxed problem, which is
// degenerate and unsupported.
var ErrSemiRelaxedUnsupported = errors.New("fugw: unregularized semi-relaxed problem (eps = 0, rho 0/+Inf) not supported")

// ErrDimensionMismatch is returned when matrix shapes or weight lengths
// do not agree (Ds not n×n, Dt not m×m, F not n×m, len(ws) != n, ...).
var ErrDimensionMismatch = errors.New("fugw: dimension mismatch")

// ErrNegativeWeight is returned when a marginal weight is negative.
var ErrNegativeWeight = errors.New("fugw: negative marginal weight")

// ErrBadOptions is returned when Options carry an out-of-range value
// (Alpha outside [0,1], negative tolerance, non-positive iteration or
// evaluation counts, non-positive IBPP proximal strength).
var ErrBadOptions = errors.New("fugw: invalid options")

// ErrMissingPlan is returned by SolveSparse when no initial plan is
// supplied: the sparse variant takes its fixed sparsity pattern from
// the initial coupling, so it cannot run without one.
var ErrMissingPlan = errors.New("fugw: sparse solve requires an initial plan carrying the sparsity pattern")

// SolverKind selects one of the three inner UOT solvers. The selection
// is a closed set; ChooseSolver remaps incompatible combinations before
// the BCD loop starts.
type SolverKind int

const (
	// Sinkhorn is log-domain dual scaling; requires Eps > 0.
	Sinkhorn SolverKind = iota
	// MM is the majorization-minimization multiplicative scheme;
	// requires finite RhoS and RhoT.
	MM
	// IBPP is the inexact Bregman proximal-point scheme; well defined
	// for every supported hyperparameter combination.
	IBPP
)

// String returns the lower-case solver name.
func (k SolverKind) String() string {
	switch k {
	case Sinkhorn:
		return "sinkhorn"
	case MM:
		return "mm"
	case IBPP:
		return "ibpp"
	default:
		return "unknown"
	}
}

// RegMode selects how the entropic term measures a coupling.
type RegMode int

const (
	// Joint measures KL(π⊗γ ‖ (ws⊗wt)⊗(ws⊗wt)) across the pair.
	Joint RegMode = iota
	// Independent measures KL(π ‖ ws⊗wt) + KL(γ ‖ ws⊗wt).
	Independent
)

// String returns the lower-case mode name.
func (r RegMode) String() string {
	if r == Independent {
		return "independent"
	}

	return "joint"
}

// Result is the outcome of a dense Solve call.
//
// The loss trace is append-only and aligned: entry t was recorded after
// BCD step LossSteps[t], with base loss Loss[t], entropic loss
// LossEntropic[t], and LossTimes[t] seconds elapsed since the solve
// started. Entry 0 is the initial objective before any iteration.
type Result struct {
	// Pi and Gamma are the two n×m couplings of the bi-convex
	// relaxation, driven toward consistency by the alternating updates.
	Pi, Gamma *mat.Dense

	// DualsPi and DualsGamma are the per-coupling dual potentials of
	// the effective solver; nil when the effective solver is MM.
	DualsPi, DualsGamma *uot.Duals

	LossSteps    []int
	Loss         []float64
	LossEntropic []float64
	LossTimes    []float64

	// Solver is the solver that actually ran, after automatic
	// remapping of unstable requests (mm under a hard marginal,
	// sinkhorn at eps = 0, both remap to ibpp).
	Solver SolverKind

	// Degenerate reports non-finite entries in Pi or Gamma after the
	// loop. The result is still returned; callers should branch on
	// this rather than scrape logs.
	Degenerate bool
}

// SparseResult is the outcome of a SolveSparse call. Pi and Gamma share
// the sparsity pattern of the supplied initial plan; all other fields
// behave exactly as in Result.
type SparseResult struct {
	Pi, Gamma           *plan.Sparse
	DualsPi, DualsGamma *uot.Duals
	LossSteps           []int
	Loss                []float64
	LossEntropic        []float64
	LossTimes           []float64
	Solver              SolverKind
	Degenerate          bool
}
