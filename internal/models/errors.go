package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced task or worker id is unknown.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed task or dependency input. Validation
// failures fail fast; they never enter the warnings stream.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Warning codes carried in result objects. Warnings record recoverable
// conditions; the run proceeds best-effort.
const (
	WarnCycleDetected        = "cycle_detected"
	WarnResourceConflict     = "resource_conflict"
	WarnOverload             = "overload"
	WarnNoFeasibleAssignment = "no_feasible_assignment"
	WarnOptimizationTimeout  = "optimization_timeout"
)

// Warning is a recoverable per-task or per-run condition accumulated into
// batch results instead of aborting the call.
type Warning struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	TaskIDs []string `json:"task_ids,omitempty"`
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}
