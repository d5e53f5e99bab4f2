package orchestrator

import (
	"context"
	"fmt"

	"cepop/domain/core"
	"cepop/domain/grid"

	"golang.org/x/sync/errgroup"
)

// ShardRun pairs an orchestrator with the registry subset it owns. Each
// shard needs its own store (or a shared store with real mutual
// exclusion); the registries must be disjoint.
type ShardRun struct {
	Orchestrator *Orchestrator
	Registry     *grid.Registry
}

// RunShards executes independent orchestrators in parallel over disjoint
// registry subsets. Jobs within each shard stay strictly sequential; the
// parallelism lives entirely between shards.
func RunShards(ctx context.Context, shards []ShardRun) ([]*Summary, error) {
	if err := checkDisjoint(shards); err != nil {
		return nil, err
	}

	summaries := make([]*Summary, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			summary, err := shard.Orchestrator.Run(gctx, shard.Registry)
			summaries[i] = summary
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return summaries, err
	}
	return summaries, nil
}

func checkDisjoint(shards []ShardRun) error {
	seen := make(map[core.JobKey]int)
	for i, shard := range shards {
		if shard.Registry == nil || shard.Orchestrator == nil {
			return core.NewConfigurationError("shards", fmt.Sprintf("shard %d is incomplete", i))
		}
		for _, spec := range shard.Registry.Specs() {
			if prev, dup := seen[spec.Key()]; dup {
				return core.NewConfigurationError("shards",
					fmt.Sprintf("job %s appears in shards %d and %d", spec.Key(), prev, i))
			}
			seen[spec.Key()] = i
		}
	}
	return nil
}
