package optimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// Strategy names accepted by the registry.
const (
	StrategyGreedy    = "greedy"
	StrategyWeighted  = "weighted"
	StrategyGenetic   = "genetic"
	StrategyAnnealing = "annealing"
)

// ErrUnknownStrategy is returned for a strategy name the registry does not
// hold.
var ErrUnknownStrategy = errors.New("unknown optimization strategy")

// Constraints bound a single optimization run.
type Constraints struct {
	MaxUtilization float64 // percent; post-assignment ceiling
	MinSkillMatch  float64 // percent; candidates below are infeasible
	Now            time.Time
}

// Strategy is the pluggable optimization interface. Implementations must
// honor context cancellation and return the best solution found so far,
// flagged partial, when the budget expires mid-run.
type Strategy interface {
	Name() string
	Optimize(ctx context.Context, tasks []*models.Task, workers []*models.WorkerProfile, cons Constraints) (*models.OptimizationResult, error)
}

// Registry holds the configured strategies by name.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry constructs all four strategies from config. The annealing
// strategy seeds itself from a private greedy instance.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	greedy := NewGreedy(cfg.Composite, logger)
	r := &Registry{strategies: map[string]Strategy{}}
	r.register(greedy)
	r.register(NewWeighted(cfg.Composite, logger))
	r.register(NewGenetic(cfg.Composite, cfg.Genetic, logger))
	r.register(NewAnnealing(cfg.Composite, cfg.Annealing, greedy, logger))
	return r
}

func (r *Registry) register(s Strategy) { r.strategies[s.Name()] = s }

// Get resolves a strategy by name; an empty name resolves to greedy.
func (r *Registry) Get(name string) (Strategy, error) {
	if name == "" {
		name = StrategyGreedy
	}
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Names lists the registered strategy names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// sortTasks orders tasks by priority desc, then complexity desc, then id for
// determinism.
func sortTasks(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := models.PriorityRank(out[i].Priority), models.PriorityRank(out[j].Priority)
		if pi != pj {
			return pi > pj
		}
		ci, cj := models.ComplexityScore(out[i].Complexity), models.ComplexityScore(out[j].Complexity)
		if ci != cj {
			return ci > cj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// utilizationVariance is the population variance of worker utilization, with
// per-worker extra demand added on top.
func utilizationVariance(workers []*models.WorkerProfile, extra map[int]float64) float64 {
	if len(workers) == 0 {
		return 0
	}
	var sum float64
	utils := make([]float64, len(workers))
	for i, w := range workers {
		utils[i] = w.CapacityUtilization + extra[i]
		sum += utils[i]
	}
	mean := sum / float64(len(workers))
	var sq float64
	for _, u := range utils {
		d := u - mean
		sq += d * d
	}
	return sq / float64(len(workers))
}

// buildResult assembles the common result shape from per-task assignments.
// terms is aligned with assignments and feeds the skill-utilization metric.
func buildResult(strategy string, tasks []*models.Task, workers []*models.WorkerProfile,
	assignments []models.Assignment, terms []Terms, unassigned []models.UnassignedTask,
	warnings []models.Warning, iterations int, partial bool, now time.Time) *models.OptimizationResult {

	workerIdx := make(map[string]int, len(workers))
	for i, w := range workers {
		workerIdx[w.ID.String()] = i
	}
	extra := make(map[int]float64)
	var gain, skillSum float64
	for i, a := range assignments {
		gain += a.Impact.EfficiencyGain
		if i < len(terms) {
			skillSum += terms[i].SkillMatch
		}
		if wi, ok := workerIdx[a.WorkerID.String()]; ok {
			if t := taskByID(tasks, a.TaskID.String()); t != nil {
				extra[wi] += CapacityDemand(t)
			}
		}
	}

	before := utilizationVariance(workers, nil)
	after := utilizationVariance(workers, extra)

	metrics := models.OptimizationMetrics{
		TotalEfficiencyGain:       gain,
		WorkloadVarianceReduction: before - after,
		Iterations:                iterations,
	}
	// Improvement over the minimum acceptable match level.
	if len(assignments) > 0 && len(terms) > 0 {
		metrics.SkillUtilizationImprovement = skillSum/float64(len(assignments)) - 60
	}
	switch {
	case len(assignments) <= 3:
		metrics.ImplementationComplexity = "low"
	case len(assignments) <= 10:
		metrics.ImplementationComplexity = "medium"
	default:
		metrics.ImplementationComplexity = "high"
	}

	return &models.OptimizationResult{
		Strategy:    strategy,
		Assignments: assignments,
		Unassigned:  unassigned,
		Metrics:     metrics,
		Warnings:    warnings,
		Partial:     partial,
		Success:     true,
		ComputedAt:  now,
	}
}

func taskByID(tasks []*models.Task, id string) *models.Task {
	for _, t := range tasks {
		if t.ID.String() == id {
			return t
		}
	}
	return nil
}
