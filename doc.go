// Package fugw computes couplings between two weighted point sets
// living in different metric spaces by solving the Fused Unbalanced
// Gromov-Wasserstein (FUGW) problem: jointly minimize a
// feature-matching cost and a geometry-distortion cost under entropic
// and marginal-relaxation regularization. Its home turf is aligning
// functional signals across cortical-surface meshes whose intrinsic
// geometries differ, but nothing in the API is brain-specific.
//
// Objective (bi-convex relaxation over the coupling pair π, γ):
//
//	(1−α)/2·( <F,π> + <F,γ> )                        — feature term
//	+ α·Σ_ijkl (Ds_ik − Dt_jl)²·π_ij·γ_kl            — geometry term
//	+ ρs·KL(π1⊗γ1 ‖ ws⊗ws) + ρt·KL(π2⊗γ2 ‖ wt⊗wt)   — marginal relaxation
//	+ ε·entropic regularization (Joint or Independent accounting)
//
// Algorithm outline (block-coordinate descent, see Solve):
//  1. Validate hyperparameters; fail fast on the two unsupported
//     regimes (balanced, unregularized semi-relaxed).
//  2. Remap unstable solver requests (ChooseSolver): mm under a hard
//     marginal and sinkhorn at ε = 0 both run as ibpp.
//  3. Initialize both couplings to the product measure ws⊗wt (or a
//     warm start) and the duals per solver kind.
//  4. Alternate: build the local bi-convex cost for one coupling, hand
//     it to the inner UOT solver (package uot), rescale the result so
//     the two masses track each other, swap roles.
//  5. Every EvalBCD steps, record the objective and early-stop when it
//     stalls; stop on TolBCD or the NitsBCD budget.
//
// Solve works on explicit dense matrices; SolveSparse runs the same
// descent with both couplings confined to a fixed sparsity pattern
// (package plan) and geometry supplied as low-rank factors, for
// problems where an n×m matrix must never be materialized.
//
// The solve is strictly sequential and owns its state: each call is
// independent and reentrant, inputs are read-only, and outer callers
// may run several solves in parallel.
//
// Errors:
//   - ErrBalancedUnsupported     — ρs = ρt = +Inf with ε = 0.
//   - ErrSemiRelaxedUnsupported  — ε = 0 with one ρ zero, the other +Inf.
//   - ErrBadOptions              — out-of-range option value.
//   - ErrDimensionMismatch       — inconsistent shapes or lengths.
//   - ErrNegativeWeight          — negative marginal weight.
//   - ErrMissingPlan             — SolveSparse without an initial plan.
//
// Non-convergence is never an error: the solver returns its best
// iterate and the loss trace, and a numerically degenerate result is
// flagged on Result.Degenerate rather than raised.
//
// Complexity: O(NitsBCD·(n·m·(n+m) + NitsUOT·n·m)) dense;
// O(NitsBCD·(nnz·(d+NitsUOT) + (n+m)·d²)) sparse with factor width d.
package fugw
