package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"cepop/domain/core"
	"cepop/domain/grid"
	"cepop/ports"
)

// Policy bounds how hard the orchestrator pushes on failing jobs. It
// replaces the old workflow of an operator re-invoking a shell command
// until everything completed.
type Policy struct {
	// MaxAttempts is the total number of attempts a job gets before it
	// becomes permanently failed. Minimum 1.
	MaxAttempts int

	// StopOnError aborts the run when a job exhausts its attempts instead
	// of continuing to the next job.
	StopOnError bool

	// JobTimeout cancels a single simulation invocation. Zero disables
	// the timeout. A timed-out job is an ordinary retryable failure.
	JobTimeout time.Duration
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// JobOutcome reports what happened to one job during a run.
type JobOutcome struct {
	Key      core.JobKey     `json:"key"`
	Name     string          `json:"name"`
	Status   ports.JobStatus `json:"status"`
	Attempts int             `json:"attempts"`
	Reason   string          `json:"reason,omitempty"`
	Skipped  bool            `json:"skipped"`
	Duration time.Duration   `json:"duration"`
}

// Summary is the only required output of a run: counts plus the per-job
// reasons. Partial completion is an expected outcome, not an error.
type Summary struct {
	RunID    core.RunID     `json:"run_id"`
	Complete int            `json:"complete"`
	Failed   int            `json:"failed"`
	Skipped  int            `json:"skipped"`
	Outcomes []JobOutcome   `json:"outcomes"`
	Started  core.Timestamp `json:"started"`
	Finished core.Timestamp `json:"finished"`
}

// Failures returns the outcomes of jobs that did not complete.
func (s *Summary) Failures() []JobOutcome {
	failures := make([]JobOutcome, 0)
	for _, o := range s.Outcomes {
		if o.Status == ports.StatusFailed {
			failures = append(failures, o)
		}
	}
	return failures
}

// Plan describes what a run would do, with no side effects.
type Plan struct {
	ToRun     []core.JobKey `json:"to_run"`
	Complete  []core.JobKey `json:"complete"`
	Exhausted []core.JobKey `json:"exhausted"`
}

// Orchestrator drives a registry of simulation jobs against the external
// collaborator, strictly sequentially in declaration order, persisting
// every state transition to the checkpoint store before moving on.
type Orchestrator struct {
	store     ports.CheckpointStore
	simulator ports.Simulator
	reader    ports.ArtifactReader
	policy    Policy
}

// New wires an orchestrator. The store must already be exclusively held by
// this process.
func New(store ports.CheckpointStore, simulator ports.Simulator, reader ports.ArtifactReader, policy Policy) *Orchestrator {
	return &Orchestrator{
		store:     store,
		simulator: simulator,
		reader:    reader,
		policy:    policy.normalized(),
	}
}

// Run executes every registry job that is not already complete. Jobs left
// failed by earlier runs are reported but not retried; retrying them is
// what Resume is for.
func (o *Orchestrator) Run(ctx context.Context, registry *grid.Registry) (*Summary, error) {
	return o.run(ctx, registry, false)
}

// Resume reloads persisted records and re-runs the non-complete jobs,
// including previously failed ones that still have attempts left. Complete
// records keep their artifacts revalidated; a complete job whose artifact
// has gone invalid is reclassified and re-run.
func (o *Orchestrator) Resume(ctx context.Context, registry *grid.Registry) (*Summary, error) {
	return o.run(ctx, registry, true)
}

func (o *Orchestrator) run(ctx context.Context, registry *grid.Registry, retryFailed bool) (*Summary, error) {
	summary := &Summary{
		RunID:   core.NewRunID(),
		Started: core.Now(),
	}

	records, err := o.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.reclassifyInterrupted(ctx, records); err != nil {
		return nil, err
	}

	for _, spec := range registry.Specs() {
		key := spec.Key()
		rec, exists := records[key]
		if !exists {
			rec = ports.JobRecord{
				Key:       key,
				Status:    ports.StatusPending,
				CreatedAt: core.Now(),
				UpdatedAt: core.Now(),
			}
			if err := o.store.Put(ctx, rec); err != nil {
				return nil, err
			}
		}

		runNow := false
		switch rec.Status {
		case ports.StatusComplete:
			if err := o.revalidate(rec); err == nil {
				summary.Skipped++
				summary.Outcomes = append(summary.Outcomes, JobOutcome{
					Key: key, Name: spec.Name, Status: ports.StatusComplete,
					Attempts: rec.Attempts, Skipped: true,
				})
				continue
			} else {
				log.Printf("[Orchestrator] job %s artifact no longer valid, re-running: %v", key, err)
				rec.Status = ports.StatusFailed
				rec.LastError = err.Error()
				rec.UpdatedAt = core.Now()
				if err := o.store.Put(ctx, rec); err != nil {
					return nil, err
				}
				runNow = true
			}
		case ports.StatusFailed:
			if rec.Attempts >= o.policy.MaxAttempts {
				summary.Failed++
				summary.Outcomes = append(summary.Outcomes, JobOutcome{
					Key: key, Name: spec.Name, Status: ports.StatusFailed,
					Attempts: rec.Attempts, Skipped: true,
					Reason: fmt.Sprintf("max attempts exhausted: %s", rec.LastError),
				})
				continue
			}
			if !retryFailed {
				summary.Failed++
				summary.Outcomes = append(summary.Outcomes, JobOutcome{
					Key: key, Name: spec.Name, Status: ports.StatusFailed,
					Attempts: rec.Attempts, Skipped: true,
					Reason: rec.LastError,
				})
				continue
			}
			runNow = true
		case ports.StatusPending, ports.StatusRunning:
			// Running records were reclassified at load; the arm keeps the
			// switch total so a record can never fall out of the summary.
			runNow = true
		}
		if !runNow {
			continue
		}

		outcome, err := o.executeJob(ctx, spec, rec)
		summary.Outcomes = append(summary.Outcomes, outcome)
		if err != nil {
			summary.Finished = core.Now()
			return summary, err
		}
		if outcome.Status == ports.StatusComplete {
			summary.Complete++
		} else {
			summary.Failed++
			if o.policy.StopOnError {
				summary.Finished = core.Now()
				return summary, fmt.Errorf("stopping on first failure: job %s: %s", key, outcome.Reason)
			}
		}
	}

	summary.Finished = core.Now()
	log.Printf("[Orchestrator] run %s finished: %d complete, %d failed, %d skipped",
		summary.RunID, summary.Complete, summary.Failed, summary.Skipped)
	return summary, nil
}

// executeJob runs one job with the policy's retry budget. Every state
// transition is persisted before the next step: write-ahead of intent,
// write-after of outcome.
func (o *Orchestrator) executeJob(ctx context.Context, spec grid.JobSpec, rec ports.JobRecord) (JobOutcome, error) {
	key := spec.Key()
	outcome := JobOutcome{Key: key, Name: spec.Name}
	started := time.Now()

	for {
		rec.Status = ports.StatusRunning
		rec.Attempts++
		rec.UpdatedAt = core.Now()
		if err := o.store.Put(ctx, rec); err != nil {
			return outcome, err
		}
		log.Printf("[Orchestrator] job %s attempt %d/%d", key, rec.Attempts, o.policy.MaxAttempts)

		path, attemptErr := o.attempt(ctx, spec)
		if attemptErr == nil {
			rec.Status = ports.StatusComplete
			rec.ArtifactPath = path
			rec.LastError = ""
			rec.UpdatedAt = core.Now()
			if err := o.store.Put(ctx, rec); err != nil {
				return outcome, err
			}
			outcome.Status = ports.StatusComplete
			outcome.Attempts = rec.Attempts
			outcome.Duration = time.Since(started)
			log.Printf("[Orchestrator] job %s complete in %s", key, outcome.Duration.Round(time.Second))
			return outcome, nil
		}

		rec.Status = ports.StatusFailed
		rec.LastError = attemptErr.Error()
		rec.UpdatedAt = core.Now()
		if err := o.store.Put(ctx, rec); err != nil {
			return outcome, err
		}
		log.Printf("[Orchestrator] job %s attempt %d failed: %v", key, rec.Attempts, attemptErr)

		outcome.Status = ports.StatusFailed
		outcome.Attempts = rec.Attempts
		outcome.Reason = attemptErr.Error()
		outcome.Duration = time.Since(started)

		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		if rec.Attempts >= o.policy.MaxAttempts {
			return outcome, nil
		}
	}
}

// attempt invokes the collaborator once and validates its output. The
// collaborator is untrusted: returning without error is not success until
// the artifact checks out.
func (o *Orchestrator) attempt(ctx context.Context, spec grid.JobSpec) (string, error) {
	jobCtx := ctx
	if o.policy.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, o.policy.JobTimeout)
		defer cancel()
	}

	path, err := o.simulator.Simulate(jobCtx, spec)
	if err != nil {
		return "", core.NewSimulationError(spec.Key().String(), err)
	}

	table, err := o.reader.Read(path, spec.Key())
	if err != nil {
		return "", err
	}
	if err := table.Validate(); err != nil {
		return "", err
	}
	return path, nil
}

// revalidate re-checks a complete record's artifact.
func (o *Orchestrator) revalidate(rec ports.JobRecord) error {
	if rec.ArtifactPath == "" {
		return core.NewArtifactError("record", "complete record has no artifact path")
	}
	table, err := o.reader.Read(rec.ArtifactPath, rec.Key)
	if err != nil {
		return err
	}
	return table.Validate()
}

// reclassifyInterrupted turns running records left by a dead process into
// retryable failures. This is the main crash-recovery invariant: a job is
// never left stuck in running forever.
func (o *Orchestrator) reclassifyInterrupted(ctx context.Context, records map[core.JobKey]ports.JobRecord) error {
	for key, rec := range records {
		if rec.Status != ports.StatusRunning {
			continue
		}
		rec.Status = ports.StatusFailed
		rec.LastError = fmt.Sprintf("%v: process died mid-job", core.ErrInterrupted)
		rec.UpdatedAt = core.Now()
		if err := o.store.Put(ctx, rec); err != nil {
			return err
		}
		records[key] = rec
		log.Printf("[Orchestrator] reclassified interrupted job %s as retryable failure", key)
	}
	return nil
}

// PlanRun reports what Resume would do against the current store state,
// with no side effects.
func (o *Orchestrator) PlanRun(ctx context.Context, registry *grid.Registry) (*Plan, error) {
	records, err := o.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, spec := range registry.Specs() {
		key := spec.Key()
		rec, exists := records[key]
		switch {
		case !exists, rec.Status == ports.StatusPending, rec.Status == ports.StatusRunning:
			plan.ToRun = append(plan.ToRun, key)
		case rec.Status == ports.StatusComplete:
			plan.Complete = append(plan.Complete, key)
		case rec.Attempts >= o.policy.MaxAttempts:
			plan.Exhausted = append(plan.Exhausted, key)
		default:
			plan.ToRun = append(plan.ToRun, key)
		}
	}
	return plan, nil
}
