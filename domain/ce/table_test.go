package ce

import (
	"testing"

	"cepop/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckNulls(t *testing.T) {
	ok := ResultRow{CEOccurred: true, Survived: BoolPtr(true), LambdaCE: Float64Ptr(0.05)}
	require.NoError(t, ok.CheckNulls())

	noEvent := ResultRow{CEOccurred: false}
	require.NoError(t, noEvent.CheckNulls())

	bad := ResultRow{CEOccurred: false, LambdaCE: Float64Ptr(0.05)}
	err := bad.CheckNulls()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidationFailure)

	bad = ResultRow{CEOccurred: false, Survived: BoolPtr(false)}
	assert.ErrorIs(t, bad.CheckNulls(), core.ErrValidationFailure)
}

func TestTable_Validate(t *testing.T) {
	var empty Table
	assert.ErrorIs(t, empty.Validate(), core.ErrValidationFailure)

	tbl := Table{Rows: []ResultRow{
		{CEOccurred: false},
		{CEOccurred: true, Survived: BoolPtr(false), LambdaCE: Float64Ptr(0.08)},
	}}
	require.NoError(t, tbl.Validate())

	tbl.Rows = append(tbl.Rows, ResultRow{CEOccurred: false, DonorState: StringPtr("HG")})
	assert.ErrorIs(t, tbl.Validate(), core.ErrValidationFailure)
}

func TestTable_Counts(t *testing.T) {
	tbl := Table{Rows: []ResultRow{
		{CEOccurred: false},
		{CEOccurred: true, Survived: BoolPtr(true), LambdaCE: Float64Ptr(0.12)},
		{CEOccurred: true, Survived: BoolPtr(false), LambdaCE: Float64Ptr(0.04)},
		{CEOccurred: false},
	}}

	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, 2, tbl.OccurredCount())
	assert.Equal(t, 1, tbl.SurvivedCount())
	assert.Len(t, tbl.CEEvents(), 2)
}
