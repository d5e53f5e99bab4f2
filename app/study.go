package app

import (
	"fmt"
	"strings"

	"cepop/domain/grid"
)

// studyGrid is the initial-condition sampling grid every job in the sweep
// shares: massive primaries paired with intermediate-mass secondaries at
// orbital periods wide enough to evolve into unstable mass transfer.
var studyGrid = grid.SamplingGrid{
	M1: grid.ParamRange{Min: 10, Max: 20, Samples: 10},
	M2: grid.ParamRange{Min: 8, Max: 15, Samples: 10},
	P:  grid.ParamRange{Min: 50, Max: 500, Samples: 20},
}

var studyMetallicities = []struct {
	label string
	z     float64
}{
	{"low_Z", 0.001},
	{"mid_Z", 0.006},
	{"solar_Z", 0.014},
}

var studyAlphas = []float64{1.0, 2.0}

// StudyRegistry builds the sweep's full job matrix: every metallicity at
// every common-envelope efficiency, 200 systems each. Declaration order is
// dispatch order.
func StudyRegistry() (*grid.Registry, error) {
	specs := make([]grid.JobSpec, 0, len(studyMetallicities)*len(studyAlphas))
	for _, m := range studyMetallicities {
		for _, alpha := range studyAlphas {
			specs = append(specs, grid.JobSpec{
				Name:        fmt.Sprintf("%s, alpha=%.1f", m.label, alpha),
				Metallicity: m.z,
				AlphaCE:     alpha,
				SampleSize:  200,
				Grid:        studyGrid,
				Artifact:    fmt.Sprintf("%s_alpha%s.csv", m.label, alphaTag(alpha)),
			})
		}
	}
	return grid.NewRegistry(specs...)
}

// alphaTag renders an alpha value as a filename-safe token, 1.0 -> "1p0".
func alphaTag(alpha float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%.1f", alpha), ".", "p")
}
