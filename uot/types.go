package uot

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Params is the unbalanced-OT parameter triple of one subproblem.
// RhoS and RhoT may be +Inf (hard marginal constraint) or 0 (fully
// relaxed marginal); Eps >= 0 is the entropic strength.
type Params struct {
	RhoS, RhoT, Eps float64
}

// Duals holds per-coupling dual state: one potential per source point
// (U, size n) and one per target point (V, size m). Sinkhorn keeps them
// in the log domain (zero-initialized); IBPP keeps multiplicative
// scalings (one-initialized). MM has no dual state.
type Duals struct {
	U, V []float64
}

// NewZeroDuals returns log-domain duals initialized to zeros, the
// Sinkhorn starting point.
func NewZeroDuals(n, m int) *Duals {
	return &Duals{U: make([]float64, n), V: make([]float64, m)}
}

// NewOneDuals returns multiplicative duals initialized to ones, the
// IBPP starting point.
func NewOneDuals(n, m int) *Duals {
	d := &Duals{U: make([]float64, n), V: make([]float64, m)}
	for i := range d.U {
		d.U[i] = 1
	}
	for j := range d.V {
		d.V[j] = 1
	}

	return d
}

// Clone deep-copies the dual state. Clone of nil is nil.
func (d *Duals) Clone() *Duals {
	if d == nil {
		return nil
	}

	return &Duals{
		U: append([]float64(nil), d.U...),
		V: append([]float64(nil), d.V...),
	}
}

// Config bounds one inner solve: at most Nits fixed-point iterations,
// convergence checked every EvalEvery iterations against Tol.
type Config struct {
	Nits      int
	Tol       float64
	EvalEvery int
}

// tau maps a marginal-relaxation strength to its scaling exponent
// rho/(rho+eps), with the hard-constraint limit tau(+Inf) = 1.
func tau(rho, eps float64) float64 {
	if math.IsInf(rho, 1) {
		return 1
	}

	return rho / (rho + eps)
}

// denseData copies d into a flat row-major buffer of length n*m,
// normalizing away any submatrix stride.
func denseData(d *mat.Dense, dst []float64) []float64 {
	rd := d.RawMatrix()
	if dst == nil {
		dst = make([]float64, rd.Rows*rd.Cols)
	}
	for i := 0; i < rd.Rows; i++ {
		copy(dst[i*rd.Cols:(i+1)*rd.Cols], rd.Data[i*rd.Stride:i*rd.Stride+rd.Cols])
	}

	return dst
}

// maxAbsDiff returns max_i |a[i]-b[i]|.
func maxAbsDiff(a, b []float64) float64 {
	var m float64
	for i, ai := range a {
		d := math.Abs(ai - b[i])
		if d > m {
			m = d
		}
	}

	return m
}

// sumAbsDiff returns sum_i |a[i]-b[i]|.
func sumAbsDiff(a, b []float64) float64 {
	var s float64
	for i, ai := range a {
		s += math.Abs(ai - b[i])
	}

	return s
}
