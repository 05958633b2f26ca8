package fugw

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw/divergence"
)

// denseContext is the immutable problem context of one dense Solve
// call: cost matrices, squared geometries, weights and hyperparameters,
// shared by the cost builder and the objective without hidden state.
type denseContext struct {
	f            *mat.Dense // nil once alpha is forced to 1
	ds, dt       *mat.Dense
	dsSqr, dtSqr *mat.Dense
	ws, wt       []float64
	wswt         []float64 // flattened ws⊗wt, row-major n×m

	alpha, rhoS, rhoT, eps float64
	reg                    RegMode
}

// newDenseContext precomputes the squared geometries and the product
// measure.
func newDenseContext(p Problem, ws, wt []float64, alpha float64, f *mat.Dense, o Options) *denseContext {
	n, _ := p.Ds.Dims()
	m, _ := p.Dt.Dims()

	sq := func(d *mat.Dense, k int) *mat.Dense {
		out := mat.NewDense(k, k, nil)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				v := d.At(i, j)
				out.Set(i, j, v*v)
			}
		}

		return out
	}

	wswt := make([]float64, n*m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			wswt[i*m+j] = ws[i] * wt[j]
		}
	}

	return &denseContext{
		f:     f,
		ds:    p.Ds,
		dt:    p.Dt,
		dsSqr: sq(p.Ds, n),
		dtSqr: sq(p.Dt, m),
		ws:    ws,
		wt:    wt,
		wswt:  wswt,
		alpha: alpha,
		rhoS:  o.RhoS,
		rhoT:  o.RhoT,
		eps:   o.Eps,
		reg:   o.Reg,
	}
}

// localCost builds the n×m cost matrix handed to the inner solver for
// one half-step, given the coupling held fixed. transpose selects the
// γ-direction, which evaluates the geometry matrices transposed.
//
// Terms whose coefficient is 0 (or excluded at rho ∈ {0, +Inf}) are
// skipped entirely, so no NaN/Inf can leak in from a degenerate
// hyperparameter.
//
// Complexity: O(n·m·(n+m)) dominated by Ds·π·Dtᵀ.
func (c *denseContext) localCost(pi *mat.Dense, transpose bool) *mat.Dense {
	n, m := pi.Dims()
	pi1 := rowSums(pi)
	pi2 := colSums(pi)

	cost := mat.NewDense(n, m, nil)
	cd := cost.RawMatrix().Data

	// Wasserstein (feature) term.
	if c.alpha != 1 && c.f != nil {
		w := (1 - c.alpha) / 2
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				cd[i*m+j] += w * c.f.At(i, j)
			}
		}
	}

	// Gromov-Wasserstein (geometry) term:
	// α·( (X²·π1)_i + (Y²·π2)_j − 2·(X·π·Yᵀ)_ij ).
	if c.alpha != 0 {
		var x, y, xSqr, ySqr mat.Matrix = c.ds, c.dt, c.dsSqr, c.dtSqr
		if transpose {
			x, y, xSqr, ySqr = x.T(), y.T(), xSqr.T(), ySqr.T()
		}

		a := mulVec(xSqr, pi1)
		b := mulVec(ySqr, pi2)

		var t, g mat.Dense
		t.Mul(x, pi)
		g.Mul(&t, y.T())

		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				cd[i*m+j] += c.alpha * (a[i] + b[j] - 2*g.At(i, j))
			}
		}
	}

	// Marginal-relaxation and entropic scalars, added uniformly.
	var shift float64
	if !math.IsInf(c.rhoS, 1) && c.rhoS != 0 {
		shift += c.rhoS * divergence.ApproxKL(pi1, c.ws)
	}
	if !math.IsInf(c.rhoT, 1) && c.rhoT != 0 {
		shift += c.rhoT * divergence.ApproxKL(pi2, c.wt)
	}
	if c.reg == Joint {
		shift += c.eps * divergence.ApproxKL(flat(pi), c.wswt)
	}
	if shift != 0 {
		for k := range cd {
			cd[k] += shift
		}
	}

	return cost
}

// loss evaluates the objective on the coupling pair: the base FUGW
// loss and its entropic companion. Both are plain scalars for
// monitoring and stopping only.
func (c *denseContext) loss(pi, gamma *mat.Dense) (base, entropic float64) {
	pi1, pi2 := rowSums(pi), colSums(pi)
	gamma1, gamma2 := rowSums(gamma), colSums(gamma)

	if c.alpha != 1 && c.f != nil {
		base += (1 - c.alpha) / 2 * (frobDot(c.f, pi) + frobDot(c.f, gamma))
	}

	if c.alpha != 0 {
		a := dot(mulVec(c.dsSqr, gamma1), pi1)
		b := dot(mulVec(c.dtSqr, gamma2), pi2)

		var t, g mat.Dense
		t.Mul(c.ds, gamma)
		g.Mul(&t, c.dt.T())
		cc := frobDot(&g, pi)

		base += c.alpha * (a + b - 2*cc)
	}

	if !math.IsInf(c.rhoS, 1) && c.rhoS != 0 {
		base += c.rhoS * divergence.QuadKL(pi1, gamma1, c.ws, c.ws)
	}
	if !math.IsInf(c.rhoT, 1) && c.rhoT != 0 {
		base += c.rhoT * divergence.QuadKL(pi2, gamma2, c.wt, c.wt)
	}

	var reg float64
	if c.reg == Joint {
		reg = divergence.QuadKL(flat(pi), flat(gamma), c.wswt, c.wswt)
	} else {
		reg = divergence.KL(flat(pi), c.wswt) + divergence.KL(flat(gamma), c.wswt)
	}

	return base, base + c.eps*reg
}

// rowSums returns the row marginal of d.
func rowSums(d *mat.Dense) []float64 {
	n, m := d.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		for j := 0; j < m; j++ {
			acc += d.At(i, j)
		}
		out[i] = acc
	}

	return out
}

// colSums returns the column marginal of d.
func colSums(d *mat.Dense) []float64 {
	n, m := d.Dims()
	out := make([]float64, m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			out[j] += d.At(i, j)
		}
	}

	return out
}

// mulVec returns a·v as a plain slice.
func mulVec(a mat.Matrix, v []float64) []float64 {
	var out mat.VecDense
	out.MulVec(a, mat.NewVecDense(len(v), v))

	return out.RawVector().Data
}

// dot returns the inner product of two equal-length slices.
func dot(a, b []float64) float64 {
	var s float64
	for i, x := range a {
		s += x * b[i]
	}

	return s
}

// frobDot returns Σ a⊙b over all entries.
func frobDot(a mat.Matrix, b *mat.Dense) float64 {
	n, m := b.Dims()
	var s float64
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			s += a.At(i, j) * b.At(i, j)
		}
	}

	return s
}

// flat exposes d as a flat row-major slice, copying only when the
// matrix is a strided view.
func flat(d *mat.Dense) []float64 {
	rd := d.RawMatrix()
	if rd.Stride == rd.Cols {
		return rd.Data[:rd.Rows*rd.Cols]
	}
	out := make([]float64, rd.Rows*rd.Cols)
	for i := 0; i < rd.Rows; i++ {
		copy(out[i*rd.Cols:(i+1)*rd.Cols], rd.Data[i*rd.Stride:i*rd.Stride+rd.Cols])
	}

	return out
}

// sumDense returns the total mass of d.
func sumDense(d *mat.Dense) float64 {
	n, m := d.Dims()
	var s float64
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			s += d.At(i, j)
		}
	}

	return s
}

// hasNonFinite reports a NaN or ±Inf entry anywhere in d.
func hasNonFinite(d *mat.Dense) bool {
	n, m := d.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			v := d.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}

	return false
}
