package stratify

import (
	"testing"

	"cepop/domain/ce"
	"cepop/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(lambda float64, survived bool, state string) ce.ResultRow {
	return ce.ResultRow{
		CEOccurred: true,
		Survived:   ce.BoolPtr(survived),
		LambdaCE:   ce.Float64Ptr(lambda),
		DonorState: ce.StringPtr(state),
	}
}

func lambdaOf(r ce.ResultRow) *float64 { return r.LambdaCE }
func stateOf(r ce.ResultRow) *string   { return r.DonorState }
func survived(r ce.ResultRow) bool     { return r.Survived != nil && *r.Survived }

func TestBinBy_PartitionIsComplete(t *testing.T) {
	rows := []ce.ResultRow{
		event(0.01, false, "HG"),
		event(0.03, false, "HG"), // boundary value goes to the higher bin
		event(0.05, true, "RGB"),
		event(0.10, false, "RGB"),
		event(0.24, true, "AGB"),
		event(1.0, false, "AGB"), // final bin is closed at its upper bound
		event(1.5, false, "AGB"), // out of range: excluded
		{CEOccurred: false},      // nil lambda: excluded
	}
	boundaries := []float64{0, 0.03, 0.06, 0.10, 0.15, 0.25, 1.0}

	res, err := BinBy(rows, lambdaOf, survived, boundaries, 0.95)
	require.NoError(t, err)
	require.Len(t, res.Bins, 6)

	total := res.ExcludedCount
	for _, bin := range res.Bins {
		total += bin.Count
	}
	assert.Equal(t, len(rows), total, "bins plus excluded must cover every row")
	assert.Equal(t, 2, res.ExcludedCount)

	// 0.03 sits on a boundary and must land in [0.03, 0.06).
	assert.Equal(t, 1, res.Bins[0].Count)
	assert.Equal(t, 2, res.Bins[1].Count)
	// 1.0 equals the final upper bound and must land in the closed last bin.
	assert.Equal(t, 2, res.Bins[5].Count)
}

func TestBinBy_EstimatesPerBin(t *testing.T) {
	rows := []ce.ResultRow{
		event(0.05, true, "HG"),
		event(0.055, false, "HG"),
		event(0.20, false, "AGB"),
	}
	res, err := BinBy(rows, lambdaOf, survived, []float64{0, 0.1, 0.25}, 0.95)
	require.NoError(t, err)

	first := res.Bins[0]
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, 1, first.Estimate.Successes)
	assert.Equal(t, 2, first.Estimate.Trials)
	assert.InDelta(t, 0.0525, first.MeanKey, 1e-9)

	// Empty bins report the explicit no-data estimate, not zero.
	empty, err := BinBy(rows, lambdaOf, survived, []float64{2, 3}, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Bins[0].Count)
	assert.False(t, empty.Bins[0].Estimate.HasPoint)
	assert.Equal(t, 3, empty.ExcludedCount)
}

func TestBinBy_InvalidBoundaries(t *testing.T) {
	rows := []ce.ResultRow{event(0.05, false, "HG")}

	_, err := BinBy(rows, lambdaOf, survived, []float64{0.1}, 0.95)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = BinBy(rows, lambdaOf, survived, []float64{0, 0.1, 0.1}, 0.95)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = BinBy(rows, lambdaOf, survived, []float64{0, 0.2, 0.1}, 0.95)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestGroupBy_FirstSeenOrder(t *testing.T) {
	rows := []ce.ResultRow{
		event(0.05, true, "RGB"),
		event(0.07, false, "HG"),
		event(0.09, false, "RGB"),
		event(0.02, false, "AGB"),
		event(0.03, true, "HG"),
	}

	res, err := GroupBy(rows, stateOf, survived, lambdaOf, 0.95)
	require.NoError(t, err)
	require.Len(t, res.Groups, 3)

	assert.Equal(t, "RGB", res.Groups[0].Key)
	assert.Equal(t, "HG", res.Groups[1].Key)
	assert.Equal(t, "AGB", res.Groups[2].Key)

	rgb := res.Groups[0]
	assert.Equal(t, 2, rgb.Count)
	assert.Equal(t, 1, rgb.Estimate.Successes)
	require.NotNil(t, rgb.Secondary)
	assert.InDelta(t, 0.07, rgb.Secondary.Mean, 1e-9)
	assert.InDelta(t, 0.02, rgb.Secondary.StdDev, 1e-9)
	assert.Equal(t, 2, rgb.Secondary.N)
}

func TestGroupBy_ExcludesNilCategories(t *testing.T) {
	rows := []ce.ResultRow{
		event(0.05, true, "RGB"),
		{CEOccurred: false},
		{CEOccurred: false},
	}

	res, err := GroupBy(rows, stateOf, survived, nil, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExcludedCount)
	require.Len(t, res.Groups, 1)
	assert.Nil(t, res.Groups[0].Secondary)

	total := res.ExcludedCount
	for _, g := range res.Groups {
		total += g.Count
	}
	assert.Equal(t, len(rows), total)
}
