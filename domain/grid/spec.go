package grid

import (
	"fmt"
	"strings"

	"cepop/domain/core"
)

// ParamRange describes one axis of the initial-condition sampling grid.
type ParamRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// Validate checks the range is usable as a sampling axis.
func (r ParamRange) Validate(name string) error {
	if r.Samples <= 0 {
		return core.NewConfigurationError(name, fmt.Sprintf("samples must be positive, got %d", r.Samples))
	}
	if r.Max < r.Min {
		return core.NewConfigurationError(name, fmt.Sprintf("max %g < min %g", r.Max, r.Min))
	}
	return nil
}

// SamplingGrid is the primary-mass / secondary-mass / orbital-period grid
// handed to the population synthesis collaborator.
type SamplingGrid struct {
	M1 ParamRange `json:"m1"`
	M2 ParamRange `json:"m2"`
	P  ParamRange `json:"p"`
}

func (g SamplingGrid) validate() error {
	if err := g.M1.Validate("m1"); err != nil {
		return err
	}
	if err := g.M2.Validate("m2"); err != nil {
		return err
	}
	return g.P.Validate("p")
}

// JobSpec declares one simulation job. Immutable once registered.
type JobSpec struct {
	Name        string       `json:"name"`
	Metallicity float64      `json:"metallicity"`
	AlphaCE     float64      `json:"alpha_ce"`
	SampleSize  int          `json:"sample_size"`
	Grid        SamplingGrid `json:"grid"`

	// Artifact is the output identifier the collaborator writes to,
	// relative to the artifact directory.
	Artifact string `json:"artifact"`
}

// Key returns the identity of the job.
func (s JobSpec) Key() core.JobKey {
	return core.JobKey{Metallicity: s.Metallicity, AlphaCE: s.AlphaCE}
}

// Validate checks the spec before registration.
func (s JobSpec) Validate() error {
	if s.Metallicity <= 0 {
		return core.NewConfigurationError("metallicity", fmt.Sprintf("must be positive, got %g", s.Metallicity))
	}
	if s.AlphaCE <= 0 {
		return core.NewConfigurationError("alpha_ce", fmt.Sprintf("must be positive, got %g", s.AlphaCE))
	}
	if s.SampleSize <= 0 {
		return core.NewConfigurationError("sample_size", fmt.Sprintf("must be positive, got %d", s.SampleSize))
	}
	if strings.TrimSpace(s.Artifact) == "" {
		return core.NewConfigurationError("artifact", "output identifier cannot be empty")
	}
	return s.Grid.validate()
}

// Registry holds the full job matrix in declaration order. Built once at
// start; dispatch order is the declaration order.
type Registry struct {
	specs []JobSpec
	index map[core.JobKey]int
}

// NewRegistry validates the specs and builds the registry. Duplicate job
// keys are rejected.
func NewRegistry(specs ...JobSpec) (*Registry, error) {
	r := &Registry{
		specs: make([]JobSpec, 0, len(specs)),
		index: make(map[core.JobKey]int, len(specs)),
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("spec %q: %w", spec.Name, err)
		}
		key := spec.Key()
		if _, exists := r.index[key]; exists {
			return nil, core.NewConfigurationError("registry", fmt.Sprintf("duplicate job key %s", key))
		}
		r.index[key] = len(r.specs)
		r.specs = append(r.specs, spec)
	}
	return r, nil
}

// Specs returns the registered specs in declaration order.
func (r *Registry) Specs() []JobSpec {
	out := make([]JobSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int { return len(r.specs) }

// Lookup returns the spec for a key if registered.
func (r *Registry) Lookup(key core.JobKey) (JobSpec, bool) {
	i, ok := r.index[key]
	if !ok {
		return JobSpec{}, false
	}
	return r.specs[i], true
}

// Fingerprint computes a deterministic hash over the full parameter matrix,
// so a checkpoint store can be tied to the registry that produced it.
func (r *Registry) Fingerprint() core.Hash {
	var b strings.Builder
	for _, s := range r.specs {
		fmt.Fprintf(&b, "key:%s|n:%d|m1:%g-%g/%d|m2:%g-%g/%d|p:%g-%g/%d|out:%s\n",
			s.Key(), s.SampleSize,
			s.Grid.M1.Min, s.Grid.M1.Max, s.Grid.M1.Samples,
			s.Grid.M2.Min, s.Grid.M2.Max, s.Grid.M2.Samples,
			s.Grid.P.Min, s.Grid.P.Max, s.Grid.P.Samples,
			s.Artifact)
	}
	return core.HashOf(b.String())
}

// Shard splits the registry into n disjoint registries, round-robin over
// declaration order. Used to run independent orchestrators in parallel.
func (r *Registry) Shard(n int) ([]*Registry, error) {
	if n <= 0 {
		return nil, core.NewConfigurationError("shards", fmt.Sprintf("must be positive, got %d", n))
	}
	if n > len(r.specs) {
		n = len(r.specs)
	}
	buckets := make([][]JobSpec, n)
	for i, spec := range r.specs {
		buckets[i%n] = append(buckets[i%n], spec)
	}
	shards := make([]*Registry, 0, n)
	for _, b := range buckets {
		shard, err := NewRegistry(b...)
		if err != nil {
			return nil, err
		}
		shards = append(shards, shard)
	}
	return shards, nil
}
