package ports

import (
	"context"

	"cepop/domain/grid"
)

// Simulator is the external population-synthesis collaborator. The
// orchestrator treats it as opaque and untrusted: its output artifact is
// validated, never its internals. Simulate blocks for the duration of the
// run (possibly tens of minutes) and must honor context cancellation.
type Simulator interface {
	// Simulate runs one job and returns the path of the produced artifact.
	Simulate(ctx context.Context, spec grid.JobSpec) (string, error)
}

// SimulatorFunc adapts a plain function to the Simulator interface.
type SimulatorFunc func(ctx context.Context, spec grid.JobSpec) (string, error)

func (f SimulatorFunc) Simulate(ctx context.Context, spec grid.JobSpec) (string, error) {
	return f(ctx, spec)
}
