package app

import (
	"context"
	"path/filepath"
	"testing"

	"cepop/adapters/artifact"
	"cepop/domain/estimate"
	"cepop/domain/grid"
	"cepop/internal/checkpoint"
	"cepop/internal/orchestrator"
	"cepop/internal/rng"
	"cepop/internal/stats/bootstrap"
	"cepop/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// population mirrors the published study: solar metallicity saw 13 CE
// events out of 200 with a single survivor, the lower metallicities saw
// 29 events each with none.
type population struct {
	spec               grid.JobSpec
	occurred, survived int
}

func analysisFixture(t *testing.T) (*AnalysisService, *grid.Registry) {
	t.Helper()
	dir := t.TempDir()

	store, err := checkpoint.NewFileStore(filepath.Join(dir, "checkpoint.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	populations := []population{
		{testkit.Spec("solar_Z, alpha=1.0", 0.014, 1.0, "solar.csv"), 13, 1},
		{testkit.Spec("mid_Z, alpha=1.0", 0.006, 1.0, "mid.csv"), 29, 0},
		{testkit.Spec("low_Z, alpha=1.0", 0.001, 1.0, "low.csv"), 29, 0},
	}

	sim := testkit.NewScriptedSimulator(filepath.Join(dir, "data"))
	specs := make([]grid.JobSpec, 0, len(populations))
	for i, p := range populations {
		sim.Script(p.spec.Key(), testkit.MakePopulation(p.spec.Key(), 200, p.occurred, p.survived, int64(i+1)))
		specs = append(specs, p.spec)
	}
	registry, err := grid.NewRegistry(specs...)
	require.NoError(t, err)

	reader := artifact.NewReader()
	orch := orchestrator.New(store, sim, reader, orchestrator.Policy{MaxAttempts: 2})
	boot := bootstrap.New(rng.New(), 500)

	service := NewAnalysisService(orch, store, reader, boot, AnalysisOptions{Seed: 42})
	return service, registry
}

func TestAnalysisService_ReproducesPublishedTable(t *testing.T) {
	service, registry := analysisFixture(t)

	report, err := service.Run(context.Background(), registry)
	require.NoError(t, err)
	require.NotNil(t, report.Summary)
	assert.Equal(t, 3, report.Summary.Complete)

	require.Len(t, report.Jobs, 3)
	solar := report.Jobs[0]
	assert.Equal(t, "solar_Z, alpha=1.0", solar.Name)
	assert.Equal(t, 200, solar.Total)

	// 13/200 occurrence: 6.5% [3.5%, 10.9%].
	assert.InDelta(t, 0.065, solar.Occurrence.Point, 1e-9)
	assert.InDelta(t, 0.035, solar.Occurrence.CILow, 1e-3)
	assert.InDelta(t, 0.109, solar.Occurrence.CIHigh, 1e-3)
	assert.Equal(t, estimate.MethodExactBeta, solar.Occurrence.Method)

	// 1/13 survival: 7.7% [0.2%, 36.0%].
	assert.InDelta(t, 1.0/13.0, solar.Survival.Point, 1e-9)
	assert.InDelta(t, 0.002, solar.Survival.CILow, 1e-3)
	assert.InDelta(t, 0.360, solar.Survival.CIHigh, 1e-3)

	// 0/29 survival at the lower metallicities: [0%, 9.8%] rule of three.
	for _, job := range report.Jobs[1:] {
		assert.Equal(t, 0, job.Survival.Successes)
		assert.Equal(t, 29, job.Survival.Trials)
		assert.Equal(t, 0.0, job.Survival.CILow)
		assert.InDelta(t, 0.098, job.Survival.CIHigh, 1e-3)
	}
}

func TestAnalysisService_PooledTables(t *testing.T) {
	service, registry := analysisFixture(t)

	report, err := service.Run(context.Background(), registry)
	require.NoError(t, err)

	// 13 + 29 + 29 CE events pooled.
	const pooledEvents = 71

	require.NotNil(t, report.LambdaBins)
	binned := 0
	for _, bin := range report.LambdaBins.Bins {
		binned += bin.Count
	}
	assert.Equal(t, pooledEvents, binned+report.LambdaBins.ExcludedCount)

	require.Len(t, report.LambdaBands, len(report.LambdaBins.Bins))
	for _, band := range report.LambdaBands {
		if band.Count == 0 {
			assert.Nil(t, band.Bootstrap)
			continue
		}
		require.NotNil(t, band.Bootstrap)
		assert.InDelta(t, band.Analytic.Point, band.Bootstrap.Point, 1e-9)
		assert.LessOrEqual(t, band.Bootstrap.CILow, band.Bootstrap.CIHigh)
	}

	require.NotNil(t, report.DonorStates)
	grouped := 0
	for _, g := range report.DonorStates.Groups {
		grouped += g.Count
		require.NotNil(t, g.Secondary)
		assert.Equal(t, g.Count, g.Secondary.N)
		assert.Greater(t, g.Secondary.Mean, 0.0)
	}
	assert.Equal(t, pooledEvents, grouped+report.DonorStates.ExcludedCount)

	require.NotNil(t, report.SurvivalBootstrap)
	assert.InDelta(t, 1.0/71.0, report.SurvivalBootstrap.Point, 1e-9)
}

func TestAnalysisService_AnalyzeOnlyIsDeterministic(t *testing.T) {
	service, registry := analysisFixture(t)
	ctx := context.Background()

	_, err := service.Run(ctx, registry)
	require.NoError(t, err)

	first, err := service.AnalyzeOnly(ctx, registry)
	require.NoError(t, err)
	second, err := service.AnalyzeOnly(ctx, registry)
	require.NoError(t, err)

	assert.Nil(t, first.Summary)
	assert.Equal(t, first.SurvivalBootstrap.CILow, second.SurvivalBootstrap.CILow)
	assert.Equal(t, first.SurvivalBootstrap.CIHigh, second.SurvivalBootstrap.CIHigh)
	require.Equal(t, len(first.LambdaBands), len(second.LambdaBands))
	for i := range first.LambdaBands {
		if first.LambdaBands[i].Bootstrap == nil {
			continue
		}
		assert.Equal(t, first.LambdaBands[i].Bootstrap.CILow, second.LambdaBands[i].Bootstrap.CILow)
	}
}

func TestAnalysisService_AnalyzeOnlyWithEmptyStore(t *testing.T) {
	service, registry := analysisFixture(t)

	_, err := service.AnalyzeOnly(context.Background(), registry)
	require.Error(t, err)
}

func TestStudyRegistry(t *testing.T) {
	registry, err := StudyRegistry()
	require.NoError(t, err)
	assert.Equal(t, 6, registry.Len())

	specs := registry.Specs()
	assert.Equal(t, "low_Z, alpha=1.0", specs[0].Name)
	assert.Equal(t, "low_Z_alpha1p0.csv", specs[0].Artifact)
	assert.Equal(t, "solar_Z, alpha=2.0", specs[5].Name)
	for _, s := range specs {
		assert.Equal(t, 200, s.SampleSize)
	}
}
