package app

import (
	"context"
	"log"
	"time"

	"cepop/domain/ce"
	"cepop/domain/core"
	"cepop/domain/estimate"
	"cepop/domain/grid"
	"cepop/internal/errors"
	"cepop/internal/orchestrator"
	"cepop/internal/stats/bootstrap"
	"cepop/internal/stats/proportion"
	"cepop/internal/stats/stratify"
	"cepop/ports"
)

// DefaultLambdaBoundaries are the study's binding-energy bins. The final
// bin is wide: lambda above 0.25 is rare and would otherwise fragment into
// empty bins.
var DefaultLambdaBoundaries = []float64{0, 0.03, 0.06, 0.10, 0.15, 0.25, 1.0}

// AnalysisOptions tunes the statistical stage.
type AnalysisOptions struct {
	Confidence          float64
	BootstrapIterations int
	Seed                int64
	LambdaBoundaries    []float64
}

func (o AnalysisOptions) normalized() AnalysisOptions {
	if o.Confidence <= 0 {
		o.Confidence = proportion.DefaultConfidence
	}
	if o.BootstrapIterations <= 0 {
		o.BootstrapIterations = bootstrap.DefaultIterations
	}
	if len(o.LambdaBoundaries) == 0 {
		o.LambdaBoundaries = DefaultLambdaBoundaries
	}
	return o
}

// JobAnalysis is one row of the sweep comparison table: occurrence among
// all sampled systems and survival among the systems that entered a
// common envelope.
type JobAnalysis struct {
	Key        core.JobKey                 `json:"key"`
	Name       string                      `json:"name"`
	Total      int                         `json:"total"`
	Occurrence estimate.ProportionEstimate `json:"occurrence"`
	Survival   estimate.ProportionEstimate `json:"survival"`
}

// LambdaBand pairs a lambda bin's analytic estimate with its bootstrap
// band. Bootstrap is nil for empty bins.
type LambdaBand struct {
	Bin       stratify.Bin                `json:"bin"`
	Count     int                         `json:"count"`
	Analytic  estimate.ProportionEstimate `json:"analytic"`
	Bootstrap *bootstrap.Result           `json:"bootstrap,omitempty"`
}

// Report is the full output of an analysis run. Jobs follow registry
// declaration order; the pooled tables combine CE events across all jobs.
type Report struct {
	Summary           *orchestrator.Summary   `json:"summary"`
	Jobs              []JobAnalysis           `json:"jobs"`
	LambdaBins        *stratify.BinnedResult  `json:"lambda_bins"`
	LambdaBands       []LambdaBand            `json:"lambda_bands"`
	DonorStates       *stratify.GroupedResult `json:"donor_states"`
	SurvivalBootstrap *bootstrap.Result       `json:"survival_bootstrap"`
	GeneratedAt       core.Timestamp          `json:"generated_at"`
	RuntimeMs         int64                   `json:"runtime_ms"`
}

// AnalysisService drives the whole study: sweep the registry through the
// orchestrator, then derive the population tables from the artifacts.
type AnalysisService struct {
	orch   *orchestrator.Orchestrator
	store  ports.CheckpointStore
	reader ports.ArtifactReader
	boot   *bootstrap.Engine
	opts   AnalysisOptions
}

// NewAnalysisService wires the analysis stage over an orchestrator and its
// checkpoint store.
func NewAnalysisService(orch *orchestrator.Orchestrator, store ports.CheckpointStore, reader ports.ArtifactReader, boot *bootstrap.Engine, opts AnalysisOptions) *AnalysisService {
	return &AnalysisService{
		orch:   orch,
		store:  store,
		reader: reader,
		boot:   boot,
		opts:   opts.normalized(),
	}
}

// Run executes the sweep from the current checkpoint state and analyzes
// whatever completed. Failed jobs appear in the summary and are absent
// from the tables.
func (s *AnalysisService) Run(ctx context.Context, registry *grid.Registry) (*Report, error) {
	summary, err := s.orch.Run(ctx, registry)
	if err != nil {
		return nil, errors.Wrap(err, "sweep failed")
	}
	return s.analyze(ctx, registry, summary)
}

// Resume retries non-complete jobs with remaining attempts, then analyzes.
func (s *AnalysisService) Resume(ctx context.Context, registry *grid.Registry) (*Report, error) {
	summary, err := s.orch.Resume(ctx, registry)
	if err != nil {
		return nil, errors.Wrap(err, "resumed sweep failed")
	}
	return s.analyze(ctx, registry, summary)
}

// AnalyzeOnly skips orchestration and derives the tables from whatever
// the checkpoint store already holds as complete.
func (s *AnalysisService) AnalyzeOnly(ctx context.Context, registry *grid.Registry) (*Report, error) {
	plan, err := s.orch.PlanRun(ctx, registry)
	if err != nil {
		return nil, errors.Wrap(err, "loading checkpoint state")
	}
	if len(plan.Complete) == 0 {
		return nil, errors.New(errors.CodeNotFound, "no complete jobs to analyze")
	}
	return s.analyze(ctx, registry, nil)
}

func (s *AnalysisService) analyze(ctx context.Context, registry *grid.Registry, summary *orchestrator.Summary) (*Report, error) {
	started := time.Now()

	report := &Report{
		Summary:     summary,
		GeneratedAt: core.Now(),
	}

	// Per-job comparison table plus the pooled CE-event set.
	pooled := make([]ce.ResultRow, 0)
	for _, spec := range registry.Specs() {
		rec, err := s.store.Get(ctx, spec.Key())
		if err != nil {
			continue
		}
		if rec.Status != ports.StatusComplete {
			continue
		}
		table, err := s.reader.Read(rec.ArtifactPath, spec.Key())
		if err != nil {
			log.Printf("[Analysis] job %s artifact unreadable, excluded: %v", spec.Key(), err)
			continue
		}

		occurrence, err := proportion.EstimateExact(table.OccurredCount(), table.Len(), s.opts.Confidence)
		if err != nil {
			return nil, err
		}
		survival, err := proportion.EstimateExact(table.SurvivedCount(), table.OccurredCount(), s.opts.Confidence)
		if err != nil {
			return nil, err
		}
		report.Jobs = append(report.Jobs, JobAnalysis{
			Key:        spec.Key(),
			Name:       spec.Name,
			Total:      table.Len(),
			Occurrence: occurrence,
			Survival:   survival,
		})
		pooled = append(pooled, table.CEEvents()...)
	}

	if len(pooled) == 0 {
		log.Printf("[Analysis] no common-envelope events across %d analyzed jobs", len(report.Jobs))
		report.RuntimeMs = time.Since(started).Milliseconds()
		return report, nil
	}

	survived := func(r ce.ResultRow) bool { return r.Survived != nil && *r.Survived }
	lambdaOf := func(r ce.ResultRow) *float64 { return r.LambdaCE }

	bins, err := stratify.BinBy(pooled, lambdaOf, survived, s.opts.LambdaBoundaries, s.opts.Confidence)
	if err != nil {
		return nil, errors.Wrap(err, "lambda binning failed")
	}
	report.LambdaBins = bins

	bands, err := s.lambdaBands(pooled, bins, survived)
	if err != nil {
		return nil, errors.Wrap(err, "lambda bootstrap bands failed")
	}
	report.LambdaBands = bands

	donors, err := stratify.GroupBy(pooled,
		func(r ce.ResultRow) *string { return r.DonorState },
		survived, lambdaOf, s.opts.Confidence)
	if err != nil {
		return nil, errors.Wrap(err, "donor-state grouping failed")
	}
	report.DonorStates = donors

	pooledBoot, err := bootstrap.Resample(s.boot, pooled, bootstrap.Rate(survived), bootstrap.Options{
		Iterations: s.opts.BootstrapIterations,
		Confidence: s.opts.Confidence,
		Seed:       s.opts.Seed,
	})
	if err != nil {
		return nil, errors.Wrap(err, "pooled survival bootstrap failed")
	}
	report.SurvivalBootstrap = pooledBoot

	report.RuntimeMs = time.Since(started).Milliseconds()
	log.Printf("[Analysis] %d jobs, %d pooled CE events, %d lambda bins (%d excluded)",
		len(report.Jobs), len(pooled), len(bins.Bins), bins.ExcludedCount)
	return report, nil
}

// lambdaBands computes a bootstrap survival band for each lambda bin that
// has members. Each bin gets its own derived seed so adding a bin never
// shifts the draws of its neighbors.
func (s *AnalysisService) lambdaBands(pooled []ce.ResultRow, binned *stratify.BinnedResult, survived func(ce.ResultRow) bool) ([]LambdaBand, error) {
	bands := make([]LambdaBand, 0, len(binned.Bins))
	for i, br := range binned.Bins {
		band := LambdaBand{Bin: br.Bin, Count: br.Count, Analytic: br.Estimate}
		if br.Count > 0 {
			members := make([]ce.ResultRow, 0, br.Count)
			for _, row := range pooled {
				if row.LambdaCE != nil && br.Bin.Contains(*row.LambdaCE) {
					members = append(members, row)
				}
			}
			result, err := bootstrap.Resample(s.boot, members, bootstrap.Rate(survived), bootstrap.Options{
				Iterations: s.opts.BootstrapIterations,
				Confidence: s.opts.Confidence,
				Seed:       s.opts.Seed + int64(i) + 1,
			})
			if err != nil {
				return nil, err
			}
			band.Bootstrap = result
		}
		bands = append(bands, band)
	}
	return bands, nil
}
