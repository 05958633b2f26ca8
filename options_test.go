package fugw_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvlaran/fugw"
)

// TestChooseSolver covers the automatic remap of unstable requests.
func TestChooseSolver(t *testing.T) {
	inf := math.Inf(1)
	cases := []struct {
		name       string
		requested  fugw.SolverKind
		rhoS, rhoT float64
		eps        float64
		want       fugw.SolverKind
	}{
		{"sinkhorn stays", fugw.Sinkhorn, 1, 1, 0.1, fugw.Sinkhorn},
		{"mm stays", fugw.MM, 1, 1, 0, fugw.MM},
		{"ibpp stays", fugw.IBPP, inf, 0, 0.1, fugw.IBPP},
		{"mm under hard source marginal", fugw.MM, inf, 1, 0.1, fugw.IBPP},
		{"mm under hard target marginal", fugw.MM, 1, inf, 0.1, fugw.IBPP},
		{"sinkhorn without entropy", fugw.Sinkhorn, 1, 1, 0, fugw.IBPP},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fugw.ChooseSolver(tc.requested, tc.rhoS, tc.rhoT, tc.eps)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSolverKindString(t *testing.T) {
	assert.Equal(t, "sinkhorn", fugw.Sinkhorn.String())
	assert.Equal(t, "mm", fugw.MM.String())
	assert.Equal(t, "ibpp", fugw.IBPP.String())
	assert.Equal(t, "unknown", fugw.SolverKind(99).String())
}

func TestRegModeString(t *testing.T) {
	assert.Equal(t, "joint", fugw.Joint.String())
	assert.Equal(t, "independent", fugw.Independent.String())
}

func TestDefaultOptions(t *testing.T) {
	o := fugw.DefaultOptions()
	assert.Equal(t, 0.5, o.Alpha)
	assert.Equal(t, fugw.Sinkhorn, o.Solver)
	assert.Equal(t, fugw.Joint, o.Reg)
	assert.Positive(t, o.Eps)
	assert.Positive(t, o.NitsBCD)
	assert.Positive(t, o.NitsUOT)
	assert.Positive(t, o.IBPPEpsBase)
}
