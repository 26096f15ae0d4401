package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enums. The lifecycle is pending -> assigned -> in_progress ->
// {completed | blocked | cancelled}; blocked may return to in_progress.
const (
	TaskStatusPending    = "pending"
	TaskStatusAssigned   = "assigned"
	TaskStatusInProgress = "in_progress"
	TaskStatusBlocked    = "blocked"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Complexity levels, ordered simple -> expert.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
	ComplexityExpert   = "expert"
)

// Priority levels, ordered low -> critical.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Client tiers used by the business feature group of the priority scorer.
const (
	ClientTierStandard = "standard"
	ClientTierPremium  = "premium"
	ClientTierVIP      = "vip"
)

// ResourceRequirement declares how many units of a shared resource a task
// consumes while it runs. The leveling pass compares concurrent demand per
// resource against the modeled capacity.
type ResourceRequirement struct {
	Resource string  `json:"resource"`
	Units    float64 `json:"units"`
}

type Task struct {
	ID                 uuid.UUID             `json:"id"`
	ProjectID          uuid.UUID             `json:"project_id"`
	Title              string                `json:"title"`
	Category           string                `json:"category"`
	Complexity         string                `json:"complexity"`
	Priority           string                `json:"priority"`
	Status             string                `json:"status"`
	EstimatedHours     float64               `json:"estimated_hours"`
	DueDate            *time.Time            `json:"due_date,omitempty"`
	ComplianceRequired bool                  `json:"compliance_required"`
	ExternalDependency bool                  `json:"external_dependency"`
	ClientTier         string                `json:"client_tier,omitempty"`
	DependsOn          []uuid.UUID           `json:"depends_on,omitempty"`
	AssignedWorkerID   *uuid.UUID            `json:"assigned_worker_id,omitempty"`
	Resources          []ResourceRequirement `json:"resources,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// ComplexityScore maps the categorical complexity to a 1-4 numeric scale.
// Unknown values score as moderate.
func ComplexityScore(complexity string) float64 {
	switch complexity {
	case ComplexitySimple:
		return 1
	case ComplexityModerate:
		return 2
	case ComplexityComplex:
		return 3
	case ComplexityExpert:
		return 4
	}
	return 2
}

// PriorityRank maps the categorical priority to a 1-4 numeric scale.
func PriorityRank(priority string) float64 {
	switch priority {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 2
}

// allowedTransitions is the task status state machine. Initial state is
// always pending; completed and cancelled are terminal.
var allowedTransitions = map[string][]string{
	TaskStatusPending:    {TaskStatusAssigned, TaskStatusCancelled},
	TaskStatusAssigned:   {TaskStatusInProgress, TaskStatusBlocked, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusBlocked, TaskStatusCancelled},
	TaskStatusBlocked:    {TaskStatusInProgress, TaskStatusCancelled},
}

// CanTransition reports whether a task may move from one status to another.
// Self-transitions are rejected so repeated events stay idempotent at the
// coordinator level.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status admits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == TaskStatusCompleted || status == TaskStatusCancelled
}

// ValidStatus reports whether s is one of the six task statuses.
func ValidStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusBlocked, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Validate checks the structural task invariants before the task enters the
// graph. It returns a ValidationError on the first violation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return &ValidationError{Field: "id", Reason: "task id is required"}
	}
	if t.EstimatedHours < 0 {
		return &ValidationError{Field: "estimated_hours", Reason: "estimated duration must be >= 0"}
	}
	if t.Status != "" && !ValidStatus(t.Status) {
		return &ValidationError{Field: "status", Reason: "unknown status " + t.Status}
	}
	for _, r := range t.Resources {
		if r.Units < 0 {
			return &ValidationError{Field: "resources", Reason: "resource units must be >= 0"}
		}
	}
	return nil
}
