package simulator

import (
	"context"
	"testing"
	"time"

	"cepop/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	s := NewCommandSimulator("run_population", []string{"--quiet"}, "data")
	spec := testkit.Spec("solar", 0.014, 0.5, "solar.csv")

	args := s.buildArgs(spec, "data/solar.csv")

	assert.Equal(t, []string{
		"--quiet",
		"--metallicity", "0.014",
		"--alpha_CE", "0.5",
		"--n_systems", "200",
		"--output", "data/solar.csv",
		"--M1_min", "10", "--M1_max", "20", "--M1_samples", "10",
		"--M2_min", "8", "--M2_max", "15", "--M2_samples", "10",
		"--P_min", "50", "--P_max", "500", "--P_samples", "20",
	}, args)
}

func TestSimulate_MissingProgram(t *testing.T) {
	s := NewCommandSimulator("definitely-not-a-real-binary-7c1a", nil, t.TempDir())
	_, err := s.Simulate(context.Background(), testkit.Spec("solar", 0.014, 0.5, "solar.csv"))
	require.Error(t, err)
}

func TestSimulate_CancellationWins(t *testing.T) {
	// The job flags land as positional params the script ignores.
	s := NewCommandSimulator("sh", []string{"-c", "sleep 30"}, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Simulate(ctx, testkit.Spec("solar", 0.014, 0.5, "solar.csv"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
