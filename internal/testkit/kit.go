package testkit

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"cepop/domain/ce"
	"cepop/domain/core"
	"cepop/domain/grid"
)

// donorStates cycles through the evolutionary phases seen in real output.
var donorStates = []string{"HG", "RGB", "CHeB", "AGB"}

// MakePopulation builds a synthetic result table with exact occurrence and
// survival counts. Lambda values are drawn from a seeded stream so
// fixtures are reproducible.
func MakePopulation(key core.JobKey, total, occurred, survived int, seed int64) *ce.Table {
	if occurred > total || survived > occurred {
		panic(fmt.Sprintf("testkit: impossible population %d/%d/%d", total, occurred, survived))
	}
	r := rand.New(rand.NewSource(seed))

	table := &ce.Table{Rows: make([]ce.ResultRow, 0, total)}
	for i := 0; i < total; i++ {
		if i >= occurred {
			table.Rows = append(table.Rows, ce.ResultRow{Key: key})
			continue
		}
		row := ce.ResultRow{
			Key:        key,
			CEOccurred: true,
			Survived:   ce.BoolPtr(i < survived),
			LambdaCE:   ce.Float64Ptr(0.02 + 0.3*r.Float64()),
			DonorState: ce.StringPtr(donorStates[i%len(donorStates)]),
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// WriteCSV writes a table in the artifact schema the readers expect.
func WriteCSV(path string, table *ce.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ce_occurred", "survived_ce", "lambda_ce", "donor_state"}); err != nil {
		return err
	}
	for _, row := range table.Rows {
		rec := []string{strconv.FormatBool(row.CEOccurred), "", "", ""}
		if row.Survived != nil {
			rec[1] = strconv.FormatBool(*row.Survived)
		}
		if row.LambdaCE != nil {
			rec[2] = strconv.FormatFloat(*row.LambdaCE, 'g', -1, 64)
		}
		if row.DonorState != nil {
			rec[3] = *row.DonorState
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ScriptedSimulator is a stub collaborator: it writes a scripted CSV table
// per job, optionally failing a set number of times first, and counts
// every invocation so tests can assert on exactly-once semantics.
type ScriptedSimulator struct {
	Dir    string
	Tables map[core.JobKey]*ce.Table

	// FailuresBefore makes a job fail this many times before succeeding.
	FailuresBefore map[core.JobKey]int

	mu          sync.Mutex
	invocations map[core.JobKey]int
}

// NewScriptedSimulator creates a stub writing artifacts under dir.
func NewScriptedSimulator(dir string) *ScriptedSimulator {
	return &ScriptedSimulator{
		Dir:            dir,
		Tables:         make(map[core.JobKey]*ce.Table),
		FailuresBefore: make(map[core.JobKey]int),
		invocations:    make(map[core.JobKey]int),
	}
}

// Script registers the table a job should produce.
func (s *ScriptedSimulator) Script(key core.JobKey, table *ce.Table) {
	s.Tables[key] = table
}

// Simulate implements ports.Simulator.
func (s *ScriptedSimulator) Simulate(ctx context.Context, spec grid.JobSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := spec.Key()
	s.mu.Lock()
	s.invocations[key]++
	count := s.invocations[key]
	s.mu.Unlock()

	if count <= s.FailuresBefore[key] {
		return "", fmt.Errorf("scripted failure %d for %s", count, key)
	}

	table, ok := s.Tables[key]
	if !ok {
		return "", fmt.Errorf("no scripted table for %s", key)
	}
	path := filepath.Join(s.Dir, spec.Artifact)
	if err := WriteCSV(path, table); err != nil {
		return "", err
	}
	return path, nil
}

// Invocations reports how many times a job was dispatched.
func (s *ScriptedSimulator) Invocations(key core.JobKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invocations[key]
}

// TotalInvocations reports dispatches across all jobs.
func (s *ScriptedSimulator) TotalInvocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.invocations {
		total += n
	}
	return total
}

// Spec builds a job spec with the study's standard sampling grid.
func Spec(name string, z, alpha float64, artifact string) grid.JobSpec {
	return grid.JobSpec{
		Name:        name,
		Metallicity: z,
		AlphaCE:     alpha,
		SampleSize:  200,
		Grid: grid.SamplingGrid{
			M1: grid.ParamRange{Min: 10, Max: 20, Samples: 10},
			M2: grid.ParamRange{Min: 8, Max: 15, Samples: 10},
			P:  grid.ParamRange{Min: 50, Max: 500, Samples: 20},
		},
		Artifact: artifact,
	}
}
