package estimate

// Method identifies which interval construction produced an estimate.
// The set is closed: callers never branch on it, it exists for audit.
type Method string

const (
	MethodWilson    Method = "wilson"
	MethodExactBeta Method = "exact_beta"
	MethodNoData    Method = "no_data"
)

// ProportionEstimate is the single output shape shared by all estimator
// branches. Point is undefined (HasPoint false) only when Trials is zero.
type ProportionEstimate struct {
	Successes  int     `json:"successes"`
	Trials     int     `json:"trials"`
	Point      float64 `json:"point"`
	HasPoint   bool    `json:"has_point"`
	CILow      float64 `json:"ci_low"`
	CIHigh     float64 `json:"ci_high"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
}

// TableRow is the proportion-with-CI contract the reporting layer
// consumes; one row per group key.
type TableRow struct {
	GroupKey  string  `json:"group_key"`
	Successes int     `json:"successes"`
	Trials    int     `json:"trials"`
	Point     float64 `json:"point"`
	CILow     float64 `json:"ci_low"`
	CIHigh    float64 `json:"ci_high"`
	Method    Method  `json:"method"`
}

// Row converts an estimate into the output-table contract.
func (e ProportionEstimate) Row(groupKey string) TableRow {
	return TableRow{
		GroupKey:  groupKey,
		Successes: e.Successes,
		Trials:    e.Trials,
		Point:     e.Point,
		CILow:     e.CILow,
		CIHigh:    e.CIHigh,
		Method:    e.Method,
	}
}
