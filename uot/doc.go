// Package uot provides inner solvers for entropic-regularized
// unbalanced optimal-transport (UOT) subproblems.
//
// Each solver takes a pairwise cost matrix, the current coupling and/or
// dual state, the marginal weights and a parameter triple
// (RhoS, RhoT, Eps), and returns an approximately optimal coupling for
//
//	min_π <C, π> + RhoS·KL(π1 ‖ ws) + RhoT·KL(π2 ‖ wt) + Eps·KL(π ‖ ws⊗wt)
//
// where π1, π2 are the row and column marginals of π.
//
// Three interchangeable fixed-point algorithms are implemented, with
// different stability envelopes:
//
//   - Sinkhorn — log-domain dual scaling. Requires Eps > 0. Maintains a
//     pair of dual potentials (log domain, initialized to zeros).
//   - MM — majorization-minimization multiplicative updates. No dual
//     state. Requires finite RhoS and RhoT; tolerates Eps = 0.
//   - IBPP — inexact Bregman proximal point: an outer proximal loop,
//     each step relaxed by a bounded number of multiplicative Sinkhorn
//     sweeps with its own proximal strength. The only solver well
//     defined at RhoS/RhoT = +Inf (hard marginals) and Eps = 0.
//     Maintains multiplicative scalings (initialized to ones).
//
// None of the solvers errors on non-convergence: each runs until its
// tolerance or iteration budget is hit and returns its best iterate.
// The caller's outer loop owns the quality judgement.
//
// Sparse twins (SinkhornSparse, MMSparse, IBPPSparse) run the same
// fixed points restricted to a plan.Sparse pattern: cost and coupling
// share one fixed nonzero index set and no update ever writes outside
// it.
//
// Complexity per iteration: O(n·m) dense, O(nnz) sparse.
package uot
