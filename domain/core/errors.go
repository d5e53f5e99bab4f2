package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Estimation errors: fatal to the call, never to the run
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientData     = errors.New("insufficient data for analysis")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNoData               = errors.New("no data")

	// Orchestration errors: recorded in the checkpoint store and
	// summarized at end of run
	ErrSimulationFailure = errors.New("simulation failure")
	ErrValidationFailure = errors.New("artifact validation failure")
	ErrInterrupted       = errors.New("job interrupted")

	// Store errors
	ErrRecordNotFound = errors.New("job record not found")
	ErrStoreLocked    = errors.New("checkpoint store held by another process")
)

// Error constructors with context
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfiguration, field, reason)
}

func NewSimulationError(job string, cause error) error {
	return fmt.Errorf("%w: job %s: %v", ErrSimulationFailure, job, cause)
}

func NewArtifactError(artifact string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidationFailure, artifact, reason)
}

// Error checking helpers
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSimulationFailure) ||
		errors.Is(err, ErrValidationFailure) ||
		errors.Is(err, ErrInterrupted)
}

func IsEstimationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidConfiguration)
}
