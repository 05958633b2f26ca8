package fugw

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw/plan"
	"github.com/katalvlaran/fugw/uot"
)

// Problem is the immutable input record of a dense Solve call. All
// matrices and weights are read-only for the duration of the call;
// warm-start state is copied, never aliased.
type Problem struct {
	// F is the n×m feature cost matrix between source and target
	// points. nil means "no feature term" and forces Alpha = 1.
	F *mat.Dense

	// Ds (n×n) and Dt (m×m) are the intra-domain distance/cost
	// matrices. Always required.
	Ds, Dt *mat.Dense

	// Ws (len n) and Wt (len m) are the marginal weights; nil defaults
	// to uniform 1/n, 1/m. They need not sum to one.
	Ws, Wt []float64

	// InitPlan optionally warm-starts both couplings; nil starts from
	// the product measure ws⊗wt.
	InitPlan *mat.Dense

	// InitDuals optionally warm-starts the dual potentials of both
	// couplings (log domain for Sinkhorn, multiplicative for IBPP;
	// ignored by MM).
	InitDuals *uot.Duals
}

// validate checks shapes and weight signs and returns the problem
// sizes.
func (p Problem) validate() (n, m int, err error) {
	if p.Ds == nil || p.Dt == nil {
		return 0, 0, ErrDimensionMismatch
	}
	n, nc := p.Ds.Dims()
	m, mc := p.Dt.Dims()
	if n != nc || m != mc {
		return 0, 0, ErrDimensionMismatch
	}
	if p.F != nil {
		fr, fc := p.F.Dims()
		if fr != n || fc != m {
			return 0, 0, ErrDimensionMismatch
		}
	}
	if p.InitPlan != nil {
		pr, pc := p.InitPlan.Dims()
		if pr != n || pc != m {
			return 0, 0, ErrDimensionMismatch
		}
	}
	if err = checkDuals(p.InitDuals, n, m); err != nil {
		return 0, 0, err
	}
	if err = checkWeights(p.Ws, n); err != nil {
		return 0, 0, err
	}
	if err = checkWeights(p.Wt, m); err != nil {
		return 0, 0, err
	}

	return n, m, nil
}

// LowRank is a factored matrix D ≈ A·Bᵀ, with A (r×d) and B (c×d).
// The sparse solver consumes geometry in this form so that products
// against a coupling go through the d-dimensional middle and an n×m
// matrix is never materialized.
type LowRank struct {
	A, B *mat.Dense
}

// Dims returns the shape of the represented matrix.
func (l LowRank) Dims() (r, c int) {
	r, _ = l.A.Dims()
	c, _ = l.B.Dims()

	return r, c
}

// t returns the factorization of the transpose: (A·Bᵀ)ᵀ = B·Aᵀ.
func (l LowRank) t() LowRank { return LowRank{A: l.B, B: l.A} }

// FactorSquare returns a LowRank holding D itself and one holding its
// elementwise square, for an explicit symmetric matrix d. This is the
// convenience bridge for callers that have a small dense geometry but
// want the sparse solver; large-scale callers supply landmark-embedding
// factors directly.
//
// Complexity: O(n²) time and space.
func FactorSquare(d *mat.Dense) (lin, sqr LowRank) {
	n, c := d.Dims()
	id := identity(n)
	dd := mat.DenseCopyOf(d)
	sq := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			v := d.At(i, j)
			sq.Set(i, j, v*v)
		}
	}

	return LowRank{A: dd, B: id}, LowRank{A: sq, B: id}
}

// identity returns the n×n identity as a dense factor.
func identity(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}

	return id
}

// SparseProblem is the immutable input record of a SolveSparse call.
type SparseProblem struct {
	// F optionally factors the feature cost: F_ij = A[i,:]·B[j,:].
	// nil forces Alpha = 1.
	F *LowRank

	// Ds and DsSqr factor the source geometry and its elementwise
	// square; Dt and DtSqr likewise for the target. All required.
	Ds, DsSqr LowRank
	Dt, DtSqr LowRank

	// Ws and Wt as in Problem.
	Ws, Wt []float64

	// InitPlan is required: it carries the fixed sparsity pattern that
	// both couplings keep for the whole solve. If its values are all
	// zero, entries are seeded with the product measure restricted to
	// the pattern.
	InitPlan *plan.Sparse

	// InitDuals as in Problem.
	InitDuals *uot.Duals
}

// validate checks factor shapes against the pattern and returns the
// problem sizes.
func (p SparseProblem) validate() (n, m int, err error) {
	if p.InitPlan == nil {
		return 0, 0, ErrMissingPlan
	}
	n, m = p.InitPlan.Rows(), p.InitPlan.Cols()

	for _, lr := range []LowRank{p.Ds, p.DsSqr} {
		if lr.A == nil || lr.B == nil {
			return 0, 0, ErrDimensionMismatch
		}
		if r, c := lr.Dims(); r != n || c != n {
			return 0, 0, ErrDimensionMismatch
		}
		if !sameInner(lr) {
			return 0, 0, ErrDimensionMismatch
		}
	}
	for _, lr := range []LowRank{p.Dt, p.DtSqr} {
		if lr.A == nil || lr.B == nil {
			return 0, 0, ErrDimensionMismatch
		}
		if r, c := lr.Dims(); r != m || c != m {
			return 0, 0, ErrDimensionMismatch
		}
		if !sameInner(lr) {
			return 0, 0, ErrDimensionMismatch
		}
	}
	if p.F != nil {
		if p.F.A == nil || p.F.B == nil {
			return 0, 0, ErrDimensionMismatch
		}
		if r, c := p.F.Dims(); r != n || c != m {
			return 0, 0, ErrDimensionMismatch
		}
		if !sameInner(*p.F) {
			return 0, 0, ErrDimensionMismatch
		}
	}
	if err = checkDuals(p.InitDuals, n, m); err != nil {
		return 0, 0, err
	}
	if err = checkWeights(p.Ws, n); err != nil {
		return 0, 0, err
	}
	if err = checkWeights(p.Wt, m); err != nil {
		return 0, 0, err
	}

	return n, m, nil
}

// sameInner reports whether both factors share the inner dimension.
func sameInner(l LowRank) bool {
	_, da := l.A.Dims()
	_, db := l.B.Dims()

	return da == db
}

// checkDuals validates optional warm-start duals against the problem
// sizes; a wrong length would otherwise index out of range inside the
// inner solver.
func checkDuals(d *uot.Duals, n, m int) error {
	if d == nil {
		return nil
	}
	if len(d.U) != n || len(d.V) != m {
		return ErrDimensionMismatch
	}

	return nil
}

// checkWeights validates an optional weight vector of expected length.
func checkWeights(w []float64, want int) error {
	if w == nil {
		return nil
	}
	if len(w) != want {
		return ErrDimensionMismatch
	}
	for _, x := range w {
		if x < 0 || math.IsNaN(x) {
			return ErrNegativeWeight
		}
	}

	return nil
}

// uniform returns the uniform weight vector 1/n.
func uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	return w
}
