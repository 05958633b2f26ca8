package fugw

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/fugw/divergence"
	"github.com/katalvlaran/fugw/plan"
)

// sparseContext is the immutable problem context of one SolveSparse
// call. Geometry lives in low-rank factors; the coupling pattern is
// fixed and shared by every matrix this context produces.
type sparseContext struct {
	f                    *LowRank
	ds, dsSqr, dt, dtSqr LowRank
	ws, wt               []float64

	// refPatt holds ws_i·wt_j at every pattern entry in CSR order, the
	// product measure restricted to the pattern; refMass is the full
	// product-measure mass Σws·Σwt, needed for KL's +Σq term.
	refPatt []float64
	refMass float64

	alpha, rhoS, rhoT, eps float64
	reg                    RegMode

	patt *plan.Sparse // pattern prototype; values unused
}

// newSparseContext precomputes the pattern-restricted product measure.
func newSparseContext(p SparseProblem, ws, wt []float64, alpha float64, f *LowRank, o Options) *sparseContext {
	patt := p.InitPlan
	rp, ci := patt.RowPtr(), patt.ColInd()
	refPatt := make([]float64, patt.NNZ())
	for i := 0; i < patt.Rows(); i++ {
		for k := rp[i]; k < rp[i+1]; k++ {
			refPatt[k] = ws[i] * wt[ci[k]]
		}
	}

	var sumWs, sumWt float64
	for _, w := range ws {
		sumWs += w
	}
	for _, w := range wt {
		sumWt += w
	}

	return &sparseContext{
		f:       f,
		ds:      p.Ds,
		dsSqr:   p.DsSqr,
		dt:      p.Dt,
		dtSqr:   p.DtSqr,
		ws:      ws,
		wt:      wt,
		refPatt: refPatt,
		refMass: sumWs * sumWt,
		alpha:   alpha,
		rhoS:    o.RhoS,
		rhoT:    o.RhoT,
		eps:     o.Eps,
		reg:     o.Reg,
		patt:    patt,
	}
}

// localCost builds the pattern-restricted cost handed to the inner
// solver for one half-step. Identical in meaning to the dense
// denseContext.localCost, with every product routed through the
// low-rank middle so nothing n×m dense is ever formed.
//
// Complexity: O(nnz·(ds+k) + (n+m)·ds·dt) for factor widths ds, dt, k.
func (c *sparseContext) localCost(pi *plan.Sparse, transpose bool) *plan.Sparse {
	out := c.patt.Clone()
	ov := out.Values()
	for k := range ov {
		ov[k] = 0
	}
	rp, ci := out.RowPtr(), out.ColInd()
	n := out.Rows()

	pi1 := pi.RowSums(nil)
	pi2 := pi.ColSums(nil)

	if c.alpha != 1 && c.f != nil {
		w := (1 - c.alpha) / 2
		fa, fb := c.f.A.RawMatrix(), c.f.B.RawMatrix()
		for i := 0; i < n; i++ {
			for k := rp[i]; k < rp[i+1]; k++ {
				j := ci[k]
				var v float64
				for t := 0; t < fa.Cols; t++ {
					v += fa.Data[i*fa.Stride+t] * fb.Data[j*fb.Stride+t]
				}
				ov[k] += w * v
			}
		}
	}

	if c.alpha != 0 {
		x, xs, y, ys := c.ds, c.dsSqr, c.dt, c.dtSqr
		if transpose {
			x, xs, y, ys = x.t(), xs.t(), y.t(), ys.t()
		}

		a := lowRankMulVec(xs, pi1)
		b := lowRankMulVec(ys, pi2)

		// X·π·Yᵀ = x.A · (x.Bᵀ · π · y.B) · y.Aᵀ; evaluate the middle
		// once, then P = y.A·Mᵀ so each entry costs one factor dot.
		w := sparseMulDense(pi, y.B) // n×dy
		var m, pm mat.Dense
		m.Mul(x.B.T(), w)    // dx×dy
		pm.Mul(y.A, m.T())   // m×dx
		xa := x.A.RawMatrix()
		pr := pm.RawMatrix()

		for i := 0; i < n; i++ {
			for k := rp[i]; k < rp[i+1]; k++ {
				j := ci[k]
				var g float64
				for t := 0; t < xa.Cols; t++ {
					g += xa.Data[i*xa.Stride+t] * pr.Data[j*pr.Stride+t]
				}
				ov[k] += c.alpha * (a[i] + b[j] - 2*g)
			}
		}
	}

	var shift float64
	if !math.IsInf(c.rhoS, 1) && c.rhoS != 0 {
		shift += c.rhoS * divergence.ApproxKL(pi1, c.ws)
	}
	if !math.IsInf(c.rhoT, 1) && c.rhoT != 0 {
		shift += c.rhoT * divergence.ApproxKL(pi2, c.wt)
	}
	if c.reg == Joint {
		shift += c.eps * divergence.ApproxKL(pi.Values(), c.refPatt)
	}
	if shift != 0 {
		for k := range ov {
			ov[k] += shift
		}
	}

	return out
}

// loss evaluates the objective on the coupling pair, pattern-restricted.
func (c *sparseContext) loss(pi, gamma *plan.Sparse) (base, entropic float64) {
	pi1, pi2 := pi.RowSums(nil), pi.ColSums(nil)
	gamma1, gamma2 := gamma.RowSums(nil), gamma.ColSums(nil)

	if c.alpha != 1 && c.f != nil {
		base += (1 - c.alpha) / 2 * (sparseFrobLowRank(pi, *c.f) + sparseFrobLowRank(gamma, *c.f))
	}

	if c.alpha != 0 {
		a := dot(lowRankMulVec(c.dsSqr, gamma1), pi1)
		b := dot(lowRankMulVec(c.dtSqr, gamma2), pi2)

		// Σ (Ds·γ·Dtᵀ) ⊙ π over π's pattern.
		w := sparseMulDense(gamma, c.dt.B)
		var m, pm mat.Dense
		m.Mul(c.ds.B.T(), w)
		pm.Mul(c.dt.A, m.T())
		xa := c.ds.A.RawMatrix()
		pr := pm.RawMatrix()

		rp, ci := pi.RowPtr(), pi.ColInd()
		pv := pi.Values()
		var cc float64
		for i := 0; i < pi.Rows(); i++ {
			for k := rp[i]; k < rp[i+1]; k++ {
				j := ci[k]
				var g float64
				for t := 0; t < xa.Cols; t++ {
					g += xa.Data[i*xa.Stride+t] * pr.Data[j*pr.Stride+t]
				}
				cc += pv[k] * g
			}
		}

		base += c.alpha * (a + b - 2*cc)
	}

	if !math.IsInf(c.rhoS, 1) && c.rhoS != 0 {
		base += c.rhoS * divergence.QuadKL(pi1, gamma1, c.ws, c.ws)
	}
	if !math.IsInf(c.rhoT, 1) && c.rhoT != 0 {
		base += c.rhoT * divergence.QuadKL(pi2, gamma2, c.wt, c.wt)
	}

	// KL against the product measure: pattern entries carry the p·log
	// and −Σp parts, the +Σq part is the full product-measure mass.
	klPi := divergence.ApproxKL(pi.Values(), c.refPatt) + c.refMass
	klGamma := divergence.ApproxKL(gamma.Values(), c.refPatt) + c.refMass

	var reg float64
	if c.reg == Joint {
		mp, mg := pi.Sum(), gamma.Sum()
		reg = mg*klPi + mp*klGamma + (mp-c.refMass)*(mg-c.refMass)
	} else {
		reg = klPi + klGamma
	}

	return base, base + c.eps*reg
}

// lowRankMulVec returns (A·Bᵀ)·v without forming A·Bᵀ.
func lowRankMulVec(l LowRank, v []float64) []float64 {
	var t, out mat.VecDense
	t.MulVec(l.B.T(), mat.NewVecDense(len(v), v))
	out.MulVec(l.A, &t)

	return out.RawVector().Data
}

// sparseMulDense returns s·d for a pattern coupling s (n×m) and a
// dense factor d (m×k); the n×k result is tall-skinny, never n×m.
func sparseMulDense(s *plan.Sparse, d *mat.Dense) *mat.Dense {
	_, k := d.Dims()
	out := mat.NewDense(s.Rows(), k, nil)
	od := out.RawMatrix()
	dd := d.RawMatrix()
	rp, ci := s.RowPtr(), s.ColInd()
	sv := s.Values()

	for i := 0; i < s.Rows(); i++ {
		orow := od.Data[i*od.Stride : i*od.Stride+k]
		for p := rp[i]; p < rp[i+1]; p++ {
			v := sv[p]
			drow := dd.Data[ci[p]*dd.Stride : ci[p]*dd.Stride+k]
			for t, x := range drow {
				orow[t] += v * x
			}
		}
	}

	return out
}

// sparseFrobLowRank returns Σ (A·Bᵀ) ⊙ s over s's pattern.
func sparseFrobLowRank(s *plan.Sparse, l LowRank) float64 {
	la, lb := l.A.RawMatrix(), l.B.RawMatrix()
	rp, ci := s.RowPtr(), s.ColInd()
	sv := s.Values()

	var acc float64
	for i := 0; i < s.Rows(); i++ {
		for k := rp[i]; k < rp[i+1]; k++ {
			j := ci[k]
			var v float64
			for t := 0; t < la.Cols; t++ {
				v += la.Data[i*la.Stride+t] * lb.Data[j*lb.Stride+t]
			}
			acc += sv[k] * v
		}
	}

	return acc
}
