package divergence

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// KL returns the generalized Kullback-Leibler divergence
//
//	Σ p·log(p/q) − Σp + Σq
//
// between two non-negative slices of equal length. Entries where p == 0
// contribute nothing (0·log(0) = 0); an entry with p > 0 and q == 0
// yields +Inf, which is the correct limit and is left to the caller.
//
// Panics if len(p) != len(q), matching the misuse semantics of
// gonum/floats.
func KL(p, q []float64) float64 {
	if len(p) != len(q) {
		panic("divergence: slice length mismatch")
	}

	return ApproxKL(p, q) + floats.Sum(q)
}

// ApproxKL returns the surrogate divergence
//
//	Σ p·log(p/q) − Σp
//
// which drops the Σq term of KL. Inside a cost-matrix construction the
// reference measure q is constant with respect to the optimization
// variable, so the dropped term does not change the minimizer.
//
// Panics if len(p) != len(q).
func ApproxKL(p, q []float64) float64 {
	if len(p) != len(q) {
		panic("divergence: slice length mismatch")
	}

	var s float64
	for i, pi := range p {
		if pi == 0 {
			continue // 0·log(0) = 0 convention
		}
		s += pi*math.Log(pi/q[i]) - pi
	}

	return s
}

// QuadKL returns KL(p1⊗p2 ‖ q1⊗q2), the generalized KL divergence
// between two outer-product measures, computed in closed form:
//
//	Σ(p2)·KL(p1,q1) + Σ(p1)·KL(p2,q2) + (Σp1 − Σq1)·(Σp2 − Σq2)
//
// The outer products are never materialized, so p1 and p2 may be
// row-major flattened couplings far too large to multiply explicitly.
//
// Panics if len(p1) != len(q1) or len(p2) != len(q2).
func QuadKL(p1, p2, q1, q2 []float64) float64 {
	mp1, mp2 := floats.Sum(p1), floats.Sum(p2)
	mq1, mq2 := floats.Sum(q1), floats.Sum(q2)

	return mp2*KL(p1, q1) + mp1*KL(p2, q2) + (mp1-mq1)*(mp2-mq2)
}
