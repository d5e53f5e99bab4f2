package simulator

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strconv"

	"cepop/domain/grid"
)

// CommandSimulator shells out to the external population-synthesis
// program. One invocation per job; the program writes the result artifact
// itself and its exit code is the only success signal we trust before
// validation.
type CommandSimulator struct {
	// Program is the executable to invoke, e.g. "run_population".
	Program string

	// Args are prepended before the per-job flags, e.g. a script path when
	// Program is an interpreter.
	Args []string

	// OutputDir is where artifacts land; JobSpec.Artifact is resolved
	// relative to it.
	OutputDir string
}

// NewCommandSimulator builds a simulator shelling out to program.
func NewCommandSimulator(program string, args []string, outputDir string) *CommandSimulator {
	return &CommandSimulator{Program: program, Args: args, OutputDir: outputDir}
}

// Simulate runs one job to completion. Cancellation of ctx kills the
// child process.
func (s *CommandSimulator) Simulate(ctx context.Context, spec grid.JobSpec) (string, error) {
	output := filepath.Join(s.OutputDir, spec.Artifact)
	args := s.buildArgs(spec, output)

	cmd := exec.CommandContext(ctx, s.Program, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Printf("[Simulator] exec %s %v", s.Program, args)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := stderr.String()
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return "", fmt.Errorf("%s exited: %w: %s", s.Program, err, msg)
	}
	return output, nil
}

// buildArgs renders a spec as the collaborator's flag set.
func (s *CommandSimulator) buildArgs(spec grid.JobSpec, output string) []string {
	args := append([]string{}, s.Args...)
	args = append(args,
		"--metallicity", formatFloat(spec.Metallicity),
		"--alpha_CE", formatFloat(spec.AlphaCE),
		"--n_systems", strconv.Itoa(spec.SampleSize),
		"--output", output,
	)
	args = appendRange(args, "M1", spec.Grid.M1)
	args = appendRange(args, "M2", spec.Grid.M2)
	args = appendRange(args, "P", spec.Grid.P)
	return args
}

func appendRange(args []string, name string, r grid.ParamRange) []string {
	return append(args,
		"--"+name+"_min", formatFloat(r.Min),
		"--"+name+"_max", formatFloat(r.Max),
		"--"+name+"_samples", strconv.Itoa(r.Samples),
	)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
