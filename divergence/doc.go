// Package divergence provides the Kullback-Leibler primitives used by
// unbalanced optimal-transport solvers.
//
// All functions operate on flat []float64 slices, which may hold either
// weight vectors or row-major flattened matrices. Entries must be
// non-negative; the convention 0·log(0) = 0 is applied throughout, so
// the divergences are well defined on sub-probability measures whose
// masses do not sum to one.
//
// Provided divergences:
//
//   - KL(p, q)       — generalized KL: Σ p·log(p/q) − Σp + Σq.
//   - ApproxKL(p, q) — the surrogate Σ p·log(p/q) − Σp, cheaper when the
//     Σq term is constant with respect to the optimization variable.
//   - QuadKL(p1, p2, q1, q2) — KL(p1⊗p2 ‖ q1⊗q2) in closed form via the
//     individual masses and pairwise KLs, never materializing the outer
//     product (which would be quadratic in memory).
//
// Complexity: all functions are a single O(len) pass, O(1) extra space.
package divergence
