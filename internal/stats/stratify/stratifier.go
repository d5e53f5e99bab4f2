package stratify

import (
	"fmt"
	"math"

	"cepop/domain/core"
	"cepop/domain/estimate"
	"cepop/internal/stats/proportion"

	"github.com/montanaflynn/stats"
)

// Bin is one half-open interval [Lower, Upper); the final bin is closed at
// its upper bound. A value equal to an interior boundary falls in the
// higher bin.
type Bin struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Closed bool    `json:"closed"` // final bin includes Upper
}

// Contains reports whether v falls in the bin.
func (b Bin) Contains(v float64) bool {
	if b.Closed {
		return v >= b.Lower && v <= b.Upper
	}
	return v >= b.Lower && v < b.Upper
}

func (b Bin) String() string {
	if b.Closed {
		return fmt.Sprintf("[%g, %g]", b.Lower, b.Upper)
	}
	return fmt.Sprintf("[%g, %g)", b.Lower, b.Upper)
}

// BinResult pairs a bin with the proportion estimate over its rows.
type BinResult struct {
	Bin      Bin                         `json:"bin"`
	Count    int                         `json:"count"`
	Estimate estimate.ProportionEstimate `json:"estimate"`
	MeanKey  float64                     `json:"mean_key"` // mean of the binned value within the bin
}

// BinnedResult is the ordered output of BinBy. Rows with a nil key, or a
// key outside the boundary range, are counted in ExcludedCount rather than
// silently dropped or coerced into a default bin.
type BinnedResult struct {
	Bins          []BinResult `json:"bins"`
	ExcludedCount int         `json:"excluded_count"`
}

// BinBy partitions rows into fixed bins of the value under keyFn and
// estimates the proportion of rows matching the success criterion within
// each bin. Boundaries must be strictly increasing.
func BinBy[T any](rows []T, keyFn func(T) *float64, successFn func(T) bool, boundaries []float64, confidence float64) (*BinnedResult, error) {
	bins, err := makeBins(boundaries)
	if err != nil {
		return nil, err
	}

	assigned := make([][]T, len(bins))
	excluded := 0

	for _, row := range rows {
		key := keyFn(row)
		if key == nil {
			excluded++
			continue
		}
		placed := false
		for i, bin := range bins {
			if bin.Contains(*key) {
				assigned[i] = append(assigned[i], row)
				placed = true
				break
			}
		}
		if !placed {
			excluded++
		}
	}

	result := &BinnedResult{
		Bins:          make([]BinResult, 0, len(bins)),
		ExcludedCount: excluded,
	}
	for i, bin := range bins {
		successes := 0
		keySum := 0.0
		for _, row := range assigned[i] {
			if successFn(row) {
				successes++
			}
			keySum += *keyFn(row)
		}
		est, err := proportion.Estimate(successes, len(assigned[i]), confidence)
		if err != nil {
			return nil, err
		}
		meanKey := math.NaN()
		if len(assigned[i]) > 0 {
			meanKey = keySum / float64(len(assigned[i]))
		}
		result.Bins = append(result.Bins, BinResult{
			Bin:      bin,
			Count:    len(assigned[i]),
			Estimate: est,
			MeanKey:  meanKey,
		})
	}
	return result, nil
}

// SecondaryStats summarizes a numeric field within a group: mean plus
// population standard deviation, over the rows where the field is present.
type SecondaryStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	N      int     `json:"n"`
}

// GroupResult pairs a category with its proportion estimate.
type GroupResult struct {
	Key       string                      `json:"key"`
	Count     int                         `json:"count"`
	Estimate  estimate.ProportionEstimate `json:"estimate"`
	Secondary *SecondaryStats             `json:"secondary,omitempty"`
}

// GroupedResult is the output of GroupBy, groups in first-seen order.
type GroupedResult struct {
	Groups        []GroupResult `json:"groups"`
	ExcludedCount int           `json:"excluded_count"`
}

// GroupBy partitions rows by the category under catFn and estimates the
// proportion matching the success criterion within each group. Groups keep
// the insertion order of first appearance so output is deterministic on
// identical input. secondaryFn may be nil; when given, each group carries
// the mean and population standard deviation of that field.
func GroupBy[T any](rows []T, catFn func(T) *string, successFn func(T) bool, secondaryFn func(T) *float64, confidence float64) (*GroupedResult, error) {
	order := make([]string, 0)
	groups := make(map[string][]T)
	excluded := 0

	for _, row := range rows {
		cat := catFn(row)
		if cat == nil {
			excluded++
			continue
		}
		if _, seen := groups[*cat]; !seen {
			order = append(order, *cat)
		}
		groups[*cat] = append(groups[*cat], row)
	}

	result := &GroupedResult{
		Groups:        make([]GroupResult, 0, len(order)),
		ExcludedCount: excluded,
	}
	for _, key := range order {
		members := groups[key]
		successes := 0
		for _, row := range members {
			if successFn(row) {
				successes++
			}
		}
		est, err := proportion.Estimate(successes, len(members), confidence)
		if err != nil {
			return nil, err
		}
		group := GroupResult{Key: key, Count: len(members), Estimate: est}

		if secondaryFn != nil {
			values := make([]float64, 0, len(members))
			for _, row := range members {
				if v := secondaryFn(row); v != nil {
					values = append(values, *v)
				}
			}
			if len(values) > 0 {
				mean, _ := stats.Mean(values)
				stdDev, _ := stats.StandardDeviationPopulation(values)
				group.Secondary = &SecondaryStats{Mean: mean, StdDev: stdDev, N: len(values)}
			}
		}
		result.Groups = append(result.Groups, group)
	}
	return result, nil
}

// makeBins validates boundaries and builds the bin sequence.
func makeBins(boundaries []float64) ([]Bin, error) {
	if len(boundaries) < 2 {
		return nil, core.NewConfigurationError("boundaries", fmt.Sprintf("need at least 2, got %d", len(boundaries)))
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, core.NewConfigurationError("boundaries",
				fmt.Sprintf("must be strictly increasing, got %g after %g", boundaries[i], boundaries[i-1]))
		}
	}
	bins := make([]Bin, len(boundaries)-1)
	for i := range bins {
		bins[i] = Bin{
			Lower:  boundaries[i],
			Upper:  boundaries[i+1],
			Closed: i == len(bins)-1,
		}
	}
	return bins, nil
}
