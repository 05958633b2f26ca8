package uot

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sinkhorn refines one UOT subproblem by log-domain dual scaling.
//
// Fixed point (tau_s = rho_s/(rho_s+eps), tau_t likewise, tau = 1 at
// rho = +Inf):
//
//	v_j = -tau_t · logsumexp_i( u_i + log ws_i − C_ij/eps )
//	u_i = -tau_s · logsumexp_j( v_j + log wt_j − C_ij/eps )
//	π_ij = ws_i·wt_j·exp( u_i + v_j − C_ij/eps )
//
// A fully relaxed marginal (rho = 0) pins the corresponding potential
// to zero, short-circuiting the 0·(−Inf) indeterminacy.
//
// Contracts:
//   - p.Eps must be strictly positive; the caller (engine or user) is
//     responsible for routing eps = 0 problems to IBPP.
//   - duals must be log-domain potentials of sizes (n, m); the input is
//     not mutated.
//
// Returns the updated duals and the coupling. Never errors on
// non-convergence: the last iterate is returned when cfg.Nits is
// exhausted.
//
// Complexity: O(cfg.Nits · n·m) time, O(n·m) space.
func Sinkhorn(cost *mat.Dense, duals *Duals, ws, wt []float64, p Params, cfg Config) (*Duals, *mat.Dense) {
	n, m := cost.Dims()

	// Cost scaled by 1/eps once; all iterations reuse it.
	ce := denseData(cost, nil)
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

	// Column/row logsumexp scratch.
	cmax := make([]float64, m)
	csum := make([]float64, m)

	for it := 0; it < cfg.Nits; it++ {
		copy(uPrev, u)

		// v-update: column logsumexp of u_i + log ws_i − C_ij/eps.
		if p.RhoT == 0 {
			for j := range v {
				v[j] = 0
			}
		} else {
			for j := 0; j < m; j++ {
				cmax[j] = math.Inf(-1)
				csum[j] = 0
			}
			for i := 0; i < n; i++ {
				t := u[i] + logWs[i]
				row := ce[i*m : (i+1)*m]
				for j, c := range row {
					if a := t - c; a > cmax[j] {
						cmax[j] = a
					}
				}
			}
			for i := 0; i < n; i++ {
				t := u[i] + logWs[i]
				row := ce[i*m : (i+1)*m]
				for j, c := range row {
					csum[j] += math.Exp(t - c - cmax[j])
				}
			}
			for j := 0; j < m; j++ {
				v[j] = -tauT * (cmax[j] + math.Log(csum[j]))
			}
		}

		// u-update: row logsumexp of v_j + log wt_j − C_ij/eps.
		if p.RhoS == 0 {
			for i := range u {
				u[i] = 0
			}
		} else {
			for i := 0; i < n; i++ {
				row := ce[i*m : (i+1)*m]
				rmax := math.Inf(-1)
				for j, c := range row {
					if a := v[j] + logWt[j] - c; a > rmax {
						rmax = a
					}
				}
				var rsum float64
				for j, c := range row {
					rsum += math.Exp(v[j] + logWt[j] - c - rmax)
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

	// Primal recovery: π = (ws⊗wt) ⊙ exp(u ⊕ v − C/eps).
	pi := mat.NewDense(n, m, nil)
	pd := pi.RawMatrix().Data
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			pd[i*m+j] = ws[i] * wt[j] * math.Exp(u[i]+v[j]-ce[i*m+j])
		}
	}

	return &Duals{U: u, V: v}, pi
}
