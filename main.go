package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cepop/adapters/artifact"
	"cepop/adapters/postgres"
	"cepop/adapters/simulator"
	"cepop/app"
	"cepop/internal/checkpoint"
	"cepop/internal/config"
	"cepop/internal/errors"
	"cepop/internal/orchestrator"
	"cepop/internal/rng"
	"cepop/internal/stats/bootstrap"
	"cepop/ports"
	"cepop/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// openStore picks the checkpoint backend: a shared postgres store when a
// database URL is configured, the local JSON file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (ports.CheckpointStore, error) {
	if cfg.Store.DatabaseURL != "" {
		db, err := sqlx.Connect("postgres", cfg.Store.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}
		store, err := postgres.NewCheckpointRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to open postgres checkpoint store")
		}
		log.Printf("[Main] checkpoint store: postgres")
		return store, nil
	}

	store, err := checkpoint.NewFileStore(cfg.Store.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open checkpoint file")
	}
	log.Printf("[Main] checkpoint store: %s", cfg.Store.Path)
	return store, nil
}

func main() {
	resume := flag.Bool("resume", false, "retry previously failed jobs with remaining attempts")
	dryRun := flag.Bool("dry-run", false, "report what would run without executing anything")
	analyzeOnly := flag.Bool("analyze-only", false, "skip orchestration, analyze completed artifacts")
	reportPath := flag.String("report", "analysis_report.json", "where to write the analysis report")
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	registry, err := app.StudyRegistry()
	if err != nil {
		log.Fatalf("Failed to build job registry: %v", err)
	}
	log.Printf("[Main] registry: %d jobs, fingerprint %s", registry.Len(), registry.Fingerprint())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open checkpoint store: %v", err)
	}
	defer store.Close()

	reader := artifact.NewReader()
	sim := simulator.NewCommandSimulator(cfg.Simulator.Program, nil, cfg.Simulator.ArtifactDir)
	orch := orchestrator.New(store, sim, reader, orchestrator.Policy{
		MaxAttempts: cfg.Sweep.MaxAttempts,
		StopOnError: cfg.Sweep.StopOnError,
		JobTimeout:  cfg.Sweep.JobTimeout,
	})

	if *dryRun {
		plan, err := orch.PlanRun(ctx, registry)
		if err != nil {
			log.Fatalf("Failed to plan run: %v", err)
		}
		log.Printf("[Main] dry run: %d to run, %d complete, %d exhausted",
			len(plan.ToRun), len(plan.Complete), len(plan.Exhausted))
		for _, key := range plan.ToRun {
			log.Printf("[Main]   would run %s", key)
		}
		return
	}

	status := ui.NewStatusServer(store)
	if cfg.Server.Enabled {
		go func() {
			if err := ui.Serve(ctx, ":"+cfg.Server.Port, status); err != nil {
				log.Printf("[Main] status server stopped: %v", err)
			}
		}()
	}

	boot := bootstrap.New(rng.New(), cfg.Analysis.BootstrapIterations)
	service := app.NewAnalysisService(orch, store, reader, boot, app.AnalysisOptions{
		Confidence:          cfg.Analysis.Confidence,
		BootstrapIterations: cfg.Analysis.BootstrapIterations,
		Seed:                cfg.Analysis.Seed,
	})

	var report *app.Report
	switch {
	case *analyzeOnly:
		report, err = service.AnalyzeOnly(ctx, registry)
	case *resume:
		report, err = service.Resume(ctx, registry)
	default:
		report, err = service.Run(ctx, registry)
	}
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	if report.Summary != nil {
		status.SetSummary(report.Summary)
		log.Printf("[Main] run %s: %d complete, %d failed, %d skipped",
			report.Summary.RunID, report.Summary.Complete, report.Summary.Failed, report.Summary.Skipped)
		for _, failure := range report.Summary.Failures() {
			log.Printf("[Main]   failed %s after %d attempts: %s", failure.Key, failure.Attempts, failure.Reason)
		}
	}

	for _, job := range report.Jobs {
		log.Printf("[Main] %s: occurrence %d/%d = %.1f%% [%.1f%%, %.1f%%], survival %d/%d",
			job.Name,
			job.Occurrence.Successes, job.Occurrence.Trials, job.Occurrence.Point*100,
			job.Occurrence.CILow*100, job.Occurrence.CIHigh*100,
			job.Survival.Successes, job.Survival.Trials)
	}

	if err := writeReport(*reportPath, report); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
	log.Printf("[Main] report written to %s", *reportPath)
}

func writeReport(path string, report *app.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
