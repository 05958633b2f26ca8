// Package plan provides the coupling (transport-plan) representation
// used by sparse unbalanced optimal-transport solvers.
//
// A Sparse value is an n×m non-negative matrix whose nonzero entries
// are confined to a fixed index pattern decided before optimization
// starts (typically produced by a coarse-to-fine sampling step). The
// pattern is immutable for the life of the value: every elementwise
// operation, marginal reduction, and rescale touches stored entries
// only, and no operation ever introduces an entry outside the pattern.
//
// Storage is CSR (row pointer + column indices + values) with a
// precomputed CSC permutation so that column-wise reductions run in a
// single pass without transposing.
//
// Couplings sharing one pattern may share the underlying index slices;
// Clone copies values but aliases the pattern, and SamePattern is O(1)
// for clones.
//
// Errors:
//   - ErrBadPattern      — malformed CSR structure at construction.
//   - ErrPatternMismatch — binary operation between different patterns.
//
// Complexity: construction O(nnz + n + m); reductions O(nnz).
package plan
