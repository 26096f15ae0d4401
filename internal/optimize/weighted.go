package optimize

import (
	"context"
	"log/slog"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// Weighted is the weighted-heuristic strategy: every task independently
// takes its max-scoring feasible candidate against the workers' profile
// utilization. Unlike greedy it never updates running capacity, so two tasks
// may both land on the same lightly loaded worker.
type Weighted struct {
	weights config.CompositeWeights
	logger  *slog.Logger
}

func NewWeighted(weights config.CompositeWeights, logger *slog.Logger) *Weighted {
	return &Weighted{weights: weights, logger: logger}
}

func (s *Weighted) Name() string { return StrategyWeighted }

func (s *Weighted) Optimize(ctx context.Context, tasks []*models.Task, workers []*models.WorkerProfile, cons Constraints) (*models.OptimizationResult, error) {
	if len(tasks) == 0 {
		return nil, &models.ValidationError{Field: "tasks", Reason: "task set is empty"}
	}

	var (
		assignments []models.Assignment
		terms       []Terms
		unassigned  []models.UnassignedTask
		warnings    []models.Warning
	)

	for _, task := range sortTasks(tasks) {
		if err := ctx.Err(); err != nil {
			return buildResult(s.Name(), tasks, workers, assignments, terms, unassigned, warnings, len(assignments), true, cons.Now), nil
		}

		demand := CapacityDemand(task)
		best := -1
		var bestScore float64
		var bestTerms Terms
		for i, w := range workers {
			if w.CapacityUtilization+demand > cons.MaxUtilization {
				continue
			}
			score, t := Composite(task, w, s.weights, cons.Now)
			if t.SkillMatch < cons.MinSkillMatch {
				continue
			}
			if best == -1 || score > bestScore {
				best, bestScore, bestTerms = i, score, t
			}
		}
		if best == -1 {
			unassigned = append(unassigned, models.UnassignedTask{
				TaskID: task.ID,
				Reason: "no feasible candidate under capacity and skill constraints",
			})
			warnings = append(warnings, models.Warning{
				Code:    models.WarnNoFeasibleAssignment,
				Message: "no feasible candidate for task",
				TaskIDs: []string{task.ID.String()},
			})
			continue
		}
		assignments = append(assignments, models.Assignment{
			TaskID:     task.ID,
			WorkerID:   workers[best].ID,
			Score:      bestScore,
			Confidence: confidenceFor(bestScore),
			Reasoning:  reasoning(bestTerms),
			Impact:     assignmentImpact(bestScore, bestTerms),
		})
		terms = append(terms, bestTerms)
	}

	return buildResult(s.Name(), tasks, workers, assignments, terms, unassigned, warnings, len(assignments), false, cons.Now), nil
}
