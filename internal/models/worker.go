package models

import (
	"time"

	"github.com/google/uuid"
)

// Worker roles.
const (
	WorkerRoleSpecialist = "specialist"
	WorkerRoleGeneralist = "generalist"
	WorkerRoleLead       = "lead"
)

// SkillRating is a per-category skill assessment. Score is 0-100; Confidence
// is 0-1 and decays with assessment age on the consumer side.
type SkillRating struct {
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	AssessedAt time.Time `json:"assessed_at"`
}

// AvailabilityWindow is a span of wall-clock time during which the worker
// accepts new work.
type AvailabilityWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PerformanceMetrics are rolling 0-100 aggregates maintained by the worker
// directory collaborator.
type PerformanceMetrics struct {
	Quality     float64 `json:"quality"`
	Speed       float64 `json:"speed"`
	Reliability float64 `json:"reliability"`
}

// WorkerPreferences influence the preference-match term of the composite
// assignment score; they never make a candidate infeasible on their own.
type WorkerPreferences struct {
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	AvoidCategories     []string `json:"avoid_categories,omitempty"`
	MaxConcurrentTasks  int      `json:"max_concurrent_tasks,omitempty"`
}

type WorkerProfile struct {
	ID                  uuid.UUID              `json:"id"`
	Name                string                 `json:"name"`
	Role                string                 `json:"role"`
	Skills              map[string]SkillRating `json:"skills"`
	CapacityUtilization float64                `json:"capacity_utilization"` // 0-100 percent
	OptimalCapacity     float64                `json:"optimal_capacity"`     // 0-100 percent
	Availability        []AvailabilityWindow   `json:"availability,omitempty"`
	Performance         PerformanceMetrics     `json:"performance"`
	Preferences         WorkerPreferences      `json:"preferences"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// SkillFor returns the worker's rating for a task category, or a zero rating
// when the category has never been assessed.
func (w *WorkerProfile) SkillFor(category string) SkillRating {
	if r, ok := w.Skills[category]; ok {
		return r
	}
	return SkillRating{}
}

// AvailableAt reports whether the instant falls inside any availability
// window. A worker with no declared windows is treated as always available.
func (w *WorkerProfile) AvailableAt(at time.Time) bool {
	if len(w.Availability) == 0 {
		return true
	}
	for _, win := range w.Availability {
		if !at.Before(win.Start) && at.Before(win.End) {
			return true
		}
	}
	return false
}

// Headroom is the unused share of the worker's capacity, 0-100.
func (w *WorkerProfile) Headroom() float64 {
	h := 100 - w.CapacityUtilization
	if h < 0 {
		return 0
	}
	return h
}

// PrefersCategory reports the worker's declared stance on a category:
// +1 preferred, -1 avoided, 0 neutral.
func (w *WorkerProfile) PrefersCategory(category string) int {
	for _, c := range w.Preferences.PreferredCategories {
		if c == category {
			return 1
		}
	}
	for _, c := range w.Preferences.AvoidCategories {
		if c == category {
			return -1
		}
	}
	return 0
}
