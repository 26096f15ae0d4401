// Package optimize computes task-to-worker assignments. Four strategies
// (greedy, weighted-heuristic, genetic, simulated annealing) share one
// composite candidate score and one feasibility rule, and all return the
// same result shape.
package optimize

import (
	"math"
	"time"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// Terms are the 0-100 components of the composite candidate score.
type Terms struct {
	SkillMatch   float64
	Availability float64
	Performance  float64
	Workload     float64
	Preference   float64
}

// skillStaleAfter is the assessment age past which a rating is discounted.
const skillStaleAfter = 180 * 24 * time.Hour

// Composite scores one worker for one task, 0-100. The skill term blends the
// raw rating with its assessment confidence and decays stale assessments;
// the workload term measures headroom against the worker's optimal capacity.
func Composite(task *models.Task, w *models.WorkerProfile, weights config.CompositeWeights, at time.Time) (float64, Terms) {
	t := Terms{
		SkillMatch:   skillTerm(task, w, at),
		Availability: availabilityTerm(w, at),
		Performance:  (w.Performance.Quality + w.Performance.Speed + w.Performance.Reliability) / 3,
		Workload:     workloadTerm(w),
		Preference:   preferenceTerm(task, w),
	}
	score := t.SkillMatch*weights.SkillMatch +
		t.Availability*weights.Availability +
		t.Performance*weights.Performance +
		t.Workload*weights.Workload +
		t.Preference*weights.Preference
	return score, t
}

func skillTerm(task *models.Task, w *models.WorkerProfile, at time.Time) float64 {
	r := w.SkillFor(task.Category)
	score := r.Score * (0.7 + 0.3*r.Confidence)
	if !r.AssessedAt.IsZero() && at.Sub(r.AssessedAt) > skillStaleAfter {
		score *= 0.9
	}
	if score > 100 {
		return 100
	}
	return score
}

func availabilityTerm(w *models.WorkerProfile, at time.Time) float64 {
	if at.IsZero() {
		at = time.Now()
	}
	if w.AvailableAt(at) {
		return 100
	}
	return 0
}

// workloadTerm is 100 at or below optimal capacity, falling linearly to 0 at
// full utilization.
func workloadTerm(w *models.WorkerProfile) float64 {
	optimal := w.OptimalCapacity
	if optimal <= 0 || optimal >= 100 {
		optimal = 80
	}
	if w.CapacityUtilization <= optimal {
		return 100
	}
	if w.CapacityUtilization >= 100 {
		return 0
	}
	return (100 - w.CapacityUtilization) / (100 - optimal) * 100
}

func preferenceTerm(task *models.Task, w *models.WorkerProfile) float64 {
	switch w.PrefersCategory(task.Category) {
	case 1:
		return 100
	case -1:
		return 0
	}
	return 50
}

// CapacityDemand is the share of a worker's capacity one task consumes,
// in percentage points, modeling a 40-hour planning week.
func CapacityDemand(task *models.Task) float64 {
	d := task.EstimatedHours / 40 * 100
	if d > 100 {
		return 100
	}
	return d
}

// assignmentImpact estimates the effect of placing the task on this worker.
func assignmentImpact(score float64, t Terms) models.AssignmentImpact {
	return models.AssignmentImpact{
		EfficiencyGain:     math.Max(0, (score-50)/5),
		QualityImpact:      (t.Performance - 50) / 10,
		SatisfactionImpact: (t.Preference - 50) / 10,
		RiskReduction:      math.Max(0, (t.SkillMatch-60)/8),
	}
}

// reasoning renders the hallmark score terms as human-readable strings.
func reasoning(t Terms) []string {
	var out []string
	if t.SkillMatch > 80 {
		out = append(out, "excellent skill match")
	} else if t.SkillMatch >= 60 {
		out = append(out, "good skill match")
	}
	if t.Availability > 90 {
		out = append(out, "immediately available")
	}
	if t.Performance > 80 {
		out = append(out, "strong recent performance")
	}
	if t.Workload > 80 {
		out = append(out, "ample capacity headroom")
	}
	if t.Preference > 80 {
		out = append(out, "preferred task category")
	}
	if len(out) == 0 {
		out = append(out, "best available candidate")
	}
	return out
}
