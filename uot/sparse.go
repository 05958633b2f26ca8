package uot

import (
	"math"

	"github.com/katalvlaran/fugw/plan"
)

// The sparse solvers below run the same fixed points as their dense
// twins, restricted to a fixed sparsity pattern: cost and coupling
// share one nonzero index set, entries outside it are structural zeros
// (equivalently, +Inf cost), and no update ever writes outside it.
//
// Contracts shared by all three:
//   - cost.SamePattern(coupling) must hold; the engine guarantees it by
//     deriving every cost and coupling from the initial plan's pattern,
//     and the solvers trust it.
//   - Inputs are not mutated; refined clones are returned.
//
// Complexity: O(Nits · nnz) time, O(nnz) space.

// rowIndex returns, for every stored entry in CSR order, its row.
func rowIndex(s *plan.Sparse) []int {
	rp := s.RowPtr()
	out := make([]int, s.NNZ())
	for i := 0; i < s.Rows(); i++ {
		for k := rp[i]; k < rp[i+1]; k++ {
			out[k] = i
		}
	}

	return out
}

// SinkhornSparse is the pattern-restricted log-domain Sinkhorn solver.
// Rows or columns with no pattern entry keep a zero potential, the
// finite stand-in for an empty logsumexp.
func SinkhornSparse(cost *plan.Sparse, duals *Duals, ws, wt []float64, p Params, cfg Config) (*Duals, *plan.Sparse) {
	n, m := cost.Rows(), cost.Cols()
	rp, ci := cost.RowPtr(), cost.ColInd()
	cp, csc := cost.ColPtr(), cost.CSCIndex()
	rowOf := rowIndex(cost)

	ce := append([]float64(nil), cost.Values()...)
	for k := range ce {
		ce[k] /= p.Eps
	}

	logWs := make([]float64, n)
	for i, w := range ws {
		logWs[i] = math.Log(w)
	}
	logWt := make([]float64, m)
	for j, w := range wt {
		logWt[j] = math.Log(w)
	}

	tauS := tau(p.RhoS, p.Eps)
	tauT := tau(p.RhoT, p.Eps)

	u := append([]float64(nil), duals.U...)
	v := append([]float64(nil), duals.V...)
	uPrev := make([]float64, n)

	for it := 0; it < cfg.Nits; it++ {
		copy(uPrev, u)

		if p.RhoT == 0 {
			for j := range v {
				v[j] = 0
			}
		} else {
			for j := 0; j < m; j++ {
				if cp[j] == cp[j+1] {
					v[j] = 0 // empty column: no evidence, keep neutral

					continue
				}
				cmax := math.Inf(-1)
				for k := cp[j]; k < cp[j+1]; k++ {
					pos := csc[k]
					if a := u[rowOf[pos]] + logWs[rowOf[pos]] - ce[pos]; a > cmax {
						cmax = a
					}
				}
				var csum float64
				for k := cp[j]; k < cp[j+1]; k++ {
					pos := csc[k]
					csum += math.Exp(u[rowOf[pos]] + logWs[rowOf[pos]] - ce[pos] - cmax)
				}
				v[j] = -tauT * (cmax + math.Log(csum))
			}
		}

		if p.RhoS == 0 {
			for i := range u {
				u[i] = 0
			}
		} else {
			for i := 0; i < n; i++ {
				if rp[i] == rp[i+1] {
					u[i] = 0

					continue
				}
				rmax := math.Inf(-1)
				for k := rp[i]; k < rp[i+1]; k++ {
					if a := v[ci[k]] + logWt[ci[k]] - ce[k]; a > rmax {
						rmax = a
					}
				}
				var rsum float64
				for k := rp[i]; k < rp[i+1]; k++ {
					rsum += math.Exp(v[ci[k]] + logWt[ci[k]] - ce[k] - rmax)
				}
				u[i] = -tauS * (rmax + math.Log(rsum))
			}
		}

		if it%cfg.EvalEvery == 0 {
			if maxAbsDiff(u, uPrev) < cfg.Tol {
				break
			}
		}
	}

	out := cost.Clone()
	ov := out.Values()
	for i := 0; i < n; i++ {
		for k := rp[i]; k < rp[i+1]; k++ {
			ov[k] = ws[i] * wt[ci[k]] * math.Exp(u[i]+v[ci[k]]-ce[k])
		}
	}

	return &Duals{U: u, V: v}, out
}

// MMSparse is the pattern-restricted majorization-minimization solver.
func MMSparse(cost *plan.Sparse, initPi *plan.Sparse, ws, wt []float64, p Params, cfg Config) *plan.Sparse {
	n := cost.Rows()
	rp, ci := cost.RowPtr(), cost.ColInd()

	s := p.RhoS + p.RhoT + p.Eps
	tauS := p.RhoS / s
	tauT := p.RhoT / s
	r := p.Eps / s

	wsPow := make([]float64, n)
	for i, w := range ws {
		wsPow[i] = math.Pow(w, tauS+r)
	}
	wtPow := make([]float64, cost.Cols())
	for j, w := range wt {
		wtPow[j] = math.Pow(w, tauT+r)
	}
	kv := append([]float64(nil), cost.Values()...)
	for i := 0; i < n; i++ {
		for k := rp[i]; k < rp[i+1]; k++ {
			kv[k] = wsPow[i] * wtPow[ci[k]] * math.Exp(-kv[k]/s)
		}
	}

	out := initPi.Clone()
	pd := out.Values()
	pi1 := out.RowSums(nil)
	pi2 := out.ColSums(nil)
	pi1Prev := make([]float64, len(pi1))
	pi2Prev := make([]float64, len(pi2))

	for it := 0; it < cfg.Nits; it++ {
		copy(pi1Prev, pi1)
		copy(pi2Prev, pi2)

		for j, p2 := range pi2 {
			pi2[j] = math.Pow(p2, tauT)
		}
		for i := 0; i < n; i++ {
			d1 := math.Pow(pi1[i], tauS)
			for k := rp[i]; k < rp[i+1]; k++ {
				pd[k] = math.Pow(pd[k], tauS+tauT) / (d1 * pi2[ci[k]]) * kv[k]
			}
		}
		out.RowSums(pi1)
		out.ColSums(pi2)

		if it%cfg.EvalEvery == 0 {
			if maxAbsDiff(pi1, pi1Prev)+maxAbsDiff(pi2, pi2Prev) < cfg.Tol {
				break
			}
		}
	}

	return out
}

// IBPPSparse is the pattern-restricted inexact Bregman proximal-point
// solver; see IBPP for the scheme.
func IBPPSparse(cost *plan.Sparse, initPi *plan.Sparse, duals *Duals, ws, wt []float64, p Params, cfg Config, nitsSinkhorn int, epsBase float64) (*Duals, *plan.Sparse) {
	n, m := cost.Rows(), cost.Cols()
	rp, ci := cost.RowPtr(), cost.ColInd()
	cp, csc := cost.ColPtr(), cost.CSCIndex()
	rowOf := rowIndex(cost)

	se := epsBase + p.Eps
	tauS := tau(p.RhoS, se)
	tauT := tau(p.RhoT, se)
	prox := epsBase / se

	kv := append([]float64(nil), cost.Values()...)
	for k := range kv {
		kv[k] = math.Exp(-kv[k] / se)
	}
	if p.Eps > 0 {
		re := p.Eps / se
		for i := 0; i < n; i++ {
			for k := rp[i]; k < rp[i+1]; k++ {
				kv[k] *= math.Pow(ws[i]*wt[ci[k]], re)
			}
		}
	}

	out := initPi.Clone()
	pd := out.Values()
	piPrev := make([]float64, len(pd))
	g := make([]float64, len(pd))

	u := append([]float64(nil), duals.U...)
	v := append([]float64(nil), duals.V...)

	for it := 0; it < cfg.Nits; it++ {
		copy(piPrev, pd)

		for k := range g {
			g[k] = kv[k] * math.Pow(pd[k], prox)
		}

		for s := 0; s < nitsSinkhorn; s++ {
			if p.RhoT == 0 {
				for j := range v {
					v[j] = 1
				}
			} else {
				for j := 0; j < m; j++ {
					var acc float64
					for k := cp[j]; k < cp[j+1]; k++ {
						pos := csc[k]
						acc += g[pos] * u[rowOf[pos]]
					}
					if acc == 0 {
						v[j] = 1 // empty or collapsed column stays neutral

						continue
					}
					v[j] = math.Pow(wt[j]/acc, tauT)
				}
			}

			if p.RhoS == 0 {
				for i := range u {
					u[i] = 1
				}
			} else {
				for i := 0; i < n; i++ {
					var acc float64
					for k := rp[i]; k < rp[i+1]; k++ {
						acc += g[k] * v[ci[k]]
					}
					if acc == 0 {
						u[i] = 1

						continue
					}
					u[i] = math.Pow(ws[i]/acc, tauS)
				}
			}
		}

		for i := 0; i < n; i++ {
			for k := rp[i]; k < rp[i+1]; k++ {
				pd[k] = u[i] * g[k] * v[ci[k]]
			}
		}

		if it%cfg.EvalEvery == 0 {
			if sumAbsDiff(pd, piPrev) < cfg.Tol {
				break
			}
		}
	}

	return &Duals{U: u, V: v}, out
}
