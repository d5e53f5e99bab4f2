package proportion

import (
	"math"
	"testing"

	"cepop/domain/core"
	"cepop/domain/estimate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_BoundsContainPoint(t *testing.T) {
	for _, n := range []int{1, 5, 13, 29, 30, 200} {
		for k := 0; k <= n; k++ {
			est, err := Estimate(k, n, DefaultConfidence)
			require.NoError(t, err, "k=%d n=%d", k, n)

			p := float64(k) / float64(n)
			assert.True(t, est.HasPoint)
			assert.InDelta(t, p, est.Point, 1e-12)
			assert.LessOrEqual(t, est.CILow, p+1e-12, "k=%d n=%d", k, n)
			assert.GreaterOrEqual(t, est.CIHigh, p-1e-12, "k=%d n=%d", k, n)
			assert.GreaterOrEqual(t, est.CILow, 0.0)
			assert.LessOrEqual(t, est.CIHigh, 1.0)
		}
	}
}

func TestEstimate_RuleOfThreeEdges(t *testing.T) {
	// Zero events out of n: upper bound is 1 - 0.05^(1/n) at 95%.
	est, err := Estimate(0, 200, 0.95)
	require.NoError(t, err)
	assert.Equal(t, estimate.MethodExactBeta, est.Method)
	assert.Equal(t, 0.0, est.CILow)
	assert.InDelta(t, 1-math.Pow(0.05, 1.0/200), est.CIHigh, 1e-12)
	assert.InDelta(t, 0.0148, est.CIHigh, 2e-4)

	// All events: symmetric lower bound.
	est, err = Estimate(200, 200, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(0.05, 1.0/200), est.CILow, 1e-12)
	assert.Equal(t, 1.0, est.CIHigh)

	// 0/29 survival: documented 0.0-9.8% bound.
	est, err = Estimate(0, 29, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 0.098, est.CIHigh, 5e-4)
}

func TestEstimate_NoData(t *testing.T) {
	est, err := Estimate(0, 0, 0.95)
	require.NoError(t, err)
	assert.False(t, est.HasPoint)
	assert.Equal(t, estimate.MethodNoData, est.Method)
	assert.Equal(t, 0.0, est.CILow)
	assert.Equal(t, 1.0, est.CIHigh)
}

func TestEstimate_InvalidInput(t *testing.T) {
	_, err := Estimate(5, 3, 0.95)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Estimate(-1, 3, 0.95)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Estimate(1, -3, 0.95)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Estimate(1, 3, 1.0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Estimate(1, 3, 0.0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestEstimate_WilsonInterior(t *testing.T) {
	est, err := Estimate(13, 200, 0.95)
	require.NoError(t, err)
	assert.Equal(t, estimate.MethodWilson, est.Method)
	// Wilson bounds for 13/200 at 95%.
	assert.InDelta(t, 0.0384, est.CILow, 1e-3)
	assert.InDelta(t, 0.1080, est.CIHigh, 2e-3)
}

func TestEstimateExact_PublishedFigures(t *testing.T) {
	// CE occurrence at solar metallicity: 13/200 -> 6.5% (3.5-10.9%).
	est, err := EstimateExact(13, 200, 0.95)
	require.NoError(t, err)
	assert.Equal(t, estimate.MethodExactBeta, est.Method)
	assert.InDelta(t, 0.065, est.Point, 1e-12)
	assert.InDelta(t, 0.0351, est.CILow, 1e-3)
	assert.InDelta(t, 0.1089, est.CIHigh, 1e-3)

	// Survival at solar metallicity: 1/13 -> 7.7% (0.2-36.0%).
	est, err = EstimateExact(1, 13, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/13, est.Point, 1e-12)
	assert.InDelta(t, 0.0019, est.CILow, 1e-3)
	assert.InDelta(t, 0.3603, est.CIHigh, 3e-3)
}

func TestEstimateExact_EdgesMatchEstimate(t *testing.T) {
	// Edge counts share the rule-of-three branch in both methods.
	a, err := Estimate(0, 50, 0.95)
	require.NoError(t, err)
	b, err := EstimateExact(0, 50, 0.95)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
