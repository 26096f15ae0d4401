package models

import "github.com/google/uuid"

// Dependency kinds. Hard edges participate in cycle detection and the
// critical-path passes; soft edges are advisory and only influence scoring.
const (
	DependencyHard = "hard"
	DependencySoft = "soft"
)

// Dependency is a directed edge: the dependent task may not start until the
// prerequisite task completes.
type Dependency struct {
	PrerequisiteID uuid.UUID `json:"prerequisite_id"`
	DependentID    uuid.UUID `json:"dependent_id"`
	Kind           string    `json:"kind"`
}

// Validate checks edge invariants. Self-edges are rejected outright; they
// would otherwise surface as single-node cycles.
func (d *Dependency) Validate() error {
	if d.PrerequisiteID == uuid.Nil || d.DependentID == uuid.Nil {
		return &ValidationError{Field: "dependency", Reason: "both edge endpoints are required"}
	}
	if d.PrerequisiteID == d.DependentID {
		return &ValidationError{Field: "dependency", Reason: "task cannot depend on itself"}
	}
	if d.Kind != "" && d.Kind != DependencyHard && d.Kind != DependencySoft {
		return &ValidationError{Field: "kind", Reason: "dependency kind must be hard or soft"}
	}
	return nil
}

// IsHard treats an unspecified kind as hard, the conservative default.
func (d *Dependency) IsHard() bool {
	return d.Kind == "" || d.Kind == DependencyHard
}
