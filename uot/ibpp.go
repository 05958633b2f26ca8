package uot

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// IBPP refines one UOT subproblem by an inexact Bregman proximal-point
// scheme. Each outer step solves, inexactly, the proximal subproblem
//
//	min_π <C, π> + eps·KL(π ‖ ws⊗wt) + epsBase·KL(π ‖ π_prev)
//	       + rho_s·KL(π1 ‖ ws) + rho_t·KL(π2 ‖ wt)
//
// whose entropic kernel (with se = epsBase + eps) is
//
//	G_ij = exp(−C_ij/se) · π_ij^(epsBase/se) · (ws_i·wt_j)^(eps/se)
//
// relaxed by nitsSinkhorn multiplicative scaling sweeps
//
//	v_j = ( wt_j / Σ_i G_ij·u_i )^tau_t
//	u_i = ( ws_i / Σ_j G_ij·v_j )^tau_s
//	π_ij = u_i · G_ij · v_j
//
// with tau = rho/(rho+se), tau = 1 at rho = +Inf. The proximal term
// keeps every step well posed even at eps = 0 and under hard marginal
// constraints, which is why the engine falls back to IBPP in exactly
// those regimes. Convergence is checked on Σ|π−π_prev|.
//
// Contracts:
//   - epsBase > 0; nitsSinkhorn >= 1.
//   - duals must be multiplicative scalings of sizes (n, m), typically
//     from NewOneDuals; neither duals nor initPi is mutated.
//
// Complexity: O(cfg.Nits · nitsSinkhorn · n·m) time, O(n·m) space.
func IBPP(cost *mat.Dense, initPi *mat.Dense, duals *Duals, ws, wt []float64, p Params, cfg Config, nitsSinkhorn int, epsBase float64) (*Duals, *mat.Dense) {
	n, m := cost.Dims()

	se := epsBase + p.Eps
	tauS := tau(p.RhoS, se)
	tauT := tau(p.RhoT, se)
	prox := epsBase / se

	// Static kernel part: exp(−C/se), with the reference-measure factor
	// folded in only when the outer problem is itself entropic.
	k := denseData(cost, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			k[i*m+j] = math.Exp(-k[i*m+j] / se)
		}
	}
	if p.Eps > 0 {
		re := p.Eps / se
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				k[i*m+j] *= math.Pow(ws[i]*wt[j], re)
			}
		}
	}

	pi := denseData(initPi, nil)
	piPrev := make([]float64, len(pi))
	g := make([]float64, len(pi))

	u := append([]float64(nil), duals.U...)
	v := append([]float64(nil), duals.V...)
	denomU := make([]float64, n)
	denomV := make([]float64, m)

	for it := 0; it < cfg.Nits; it++ {
		copy(piPrev, pi)

		// Proximal kernel around the current iterate.
		for kk := range g {
			g[kk] = k[kk] * math.Pow(pi[kk], prox)
		}

		// Bounded inner scaling sweeps.
		for s := 0; s < nitsSinkhorn; s++ {
			if p.RhoT == 0 {
				for j := range v {
					v[j] = 1
				}
			} else {
				for j := range denomV {
					denomV[j] = 0
				}
				for i := 0; i < n; i++ {
					ui := u[i]
					row := g[i*m : (i+1)*m]
					for j, gij := range row {
						denomV[j] += gij * ui
					}
				}
				for j := range v {
					v[j] = math.Pow(wt[j]/denomV[j], tauT)
				}
			}

			if p.RhoS == 0 {
				for i := range u {
					u[i] = 1
				}
			} else {
				for i := 0; i < n; i++ {
					var acc float64
					row := g[i*m : (i+1)*m]
					for j, gij := range row {
						acc += gij * v[j]
					}
					denomU[i] = acc
				}
				for i := range u {
					u[i] = math.Pow(ws[i]/denomU[i], tauS)
				}
			}
		}

		for i := 0; i < n; i++ {
			row := pi[i*m : (i+1)*m]
			for j := range row {
				row[j] = u[i] * g[i*m+j] * v[j]
			}
		}

		if it%cfg.EvalEvery == 0 {
			if sumAbsDiff(pi, piPrev) < cfg.Tol {
				break
			}
		}
	}

	return &Duals{U: u, V: v}, mat.NewDense(n, m, pi)
}
