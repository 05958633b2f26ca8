package uot

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MM refines one UOT subproblem by majorization-minimization
// multiplicative updates, with no dual state.
//
// With s = rho_s + rho_t + eps, tau_s = rho_s/s, tau_t = rho_t/s and
// r = eps/s, the kernel and fixed point are
//
//	K_ij  = ws_i^(tau_s+r) · wt_j^(tau_t+r) · exp(−C_ij/s)
//	π_ij ← π_ij^(tau_s+tau_t) / (π1_i^tau_s · π2_j^tau_t) · K_ij
//
// where π1, π2 are the current row/column marginals. Convergence is
// checked on max|π1−π1_prev| + max|π2−π2_prev|.
//
// Contracts:
//   - p.RhoS and p.RhoT must be finite (the engine reroutes hard
//     marginal constraints to IBPP); p.Eps = 0 is allowed.
//   - initPi is not mutated; a refined copy is returned.
//
// Complexity: O(cfg.Nits · n·m) time, O(n·m) space.
func MM(cost *mat.Dense, initPi *mat.Dense, ws, wt []float64, p Params, cfg Config) *mat.Dense {
	n, m := cost.Dims()

	s := p.RhoS + p.RhoT + p.Eps
	tauS := p.RhoS / s
	tauT := p.RhoT / s
	r := p.Eps / s

	// Kernel, computed once.
	k := denseData(cost, nil)
	wsPow := make([]float64, n)
	for i, w := range ws {
		wsPow[i] = math.Pow(w, tauS+r)
	}
	wtPow := make([]float64, m)
	for j, w := range wt {
		wtPow[j] = math.Pow(w, tauT+r)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			k[i*m+j] = wsPow[i] * wtPow[j] * math.Exp(-k[i*m+j]/s)
		}
	}

	pi := mat.NewDense(n, m, denseData(initPi, nil))
	pd := pi.RawMatrix().Data

	pi1 := make([]float64, n)
	pi2 := make([]float64, m)
	marginals(pd, n, m, pi1, pi2)
	pi1Prev := make([]float64, n)
	pi2Prev := make([]float64, m)

	for it := 0; it < cfg.Nits; it++ {
		copy(pi1Prev, pi1)
		copy(pi2Prev, pi2)

		for j, p2 := range pi2 {
			pi2[j] = math.Pow(p2, tauT) // reuse as column denominator
		}
		for i := 0; i < n; i++ {
			d1 := math.Pow(pi1[i], tauS)
			row := pd[i*m : (i+1)*m]
			for j := range row {
				row[j] = math.Pow(row[j], tauS+tauT) / (d1 * pi2[j]) * k[i*m+j]
			}
		}
		marginals(pd, n, m, pi1, pi2)

		if it%cfg.EvalEvery == 0 {
			if maxAbsDiff(pi1, pi1Prev)+maxAbsDiff(pi2, pi2Prev) < cfg.Tol {
				break
			}
		}
	}

	return pi
}

// marginals computes row sums into p1 and column sums into p2 from a
// flat row-major n×m buffer.
func marginals(pd []float64, n, m int, p1, p2 []float64) {
	for j := range p2 {
		p2[j] = 0
	}
	for i := 0; i < n; i++ {
		var acc float64
		row := pd[i*m : (i+1)*m]
		for j, x := range row {
			acc += x
			p2[j] += x
		}
		p1[i] = acc
	}
}
