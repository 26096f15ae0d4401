package optimize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// Greedy assigns tasks in priority order, each to the highest-scoring
// feasible candidate, updating that worker's running capacity immediately.
// No backtracking.
type Greedy struct {
	weights config.CompositeWeights
	logger  *slog.Logger
}

func NewGreedy(weights config.CompositeWeights, logger *slog.Logger) *Greedy {
	return &Greedy{weights: weights, logger: logger}
}

func (g *Greedy) Name() string { return StrategyGreedy }

func (g *Greedy) Optimize(ctx context.Context, tasks []*models.Task, workers []*models.WorkerProfile, cons Constraints) (*models.OptimizationResult, error) {
	if len(tasks) == 0 {
		return nil, &models.ValidationError{Field: "tasks", Reason: "task set is empty"}
	}

	// Running utilization per worker, mutated as assignments land.
	running := make([]float64, len(workers))
	for i, w := range workers {
		running[i] = w.CapacityUtilization
	}

	var (
		assignments []models.Assignment
		terms       []Terms
		unassigned  []models.UnassignedTask
		warnings    []models.Warning
	)

	for _, task := range sortTasks(tasks) {
		if err := ctx.Err(); err != nil {
			// Budget expired: return what we have, flagged partial.
			res := buildResult(g.Name(), tasks, workers, assignments, terms, unassigned, warnings, len(assignments), true, cons.Now)
			return res, nil
		}

		demand := CapacityDemand(task)
		bestFeasible, bestAny := -1, -1
		var bestFeasibleScore, bestAnyScore float64
		var bestFeasibleTerms, bestAnyTerms Terms

		for i, w := range workers {
			score, t := compositeAt(task, w, running[i], g.weights, cons)
			if t.SkillMatch < cons.MinSkillMatch {
				continue
			}
			if score > bestAnyScore || bestAny == -1 {
				bestAny, bestAnyScore, bestAnyTerms = i, score, t
			}
			if running[i]+demand > cons.MaxUtilization {
				continue
			}
			if score > bestFeasibleScore || bestFeasible == -1 {
				bestFeasible, bestFeasibleScore, bestFeasibleTerms = i, score, t
			}
		}

		pick, score, pickTerms := bestFeasible, bestFeasibleScore, bestFeasibleTerms
		if pick == -1 && bestAny != -1 {
			// Every skill-eligible candidate would overload: proceed anyway
			// with an explicit warning rather than leaving the task stranded.
			pick, score, pickTerms = bestAny, bestAnyScore, bestAnyTerms
			warnings = append(warnings, models.Warning{
				Code: models.WarnOverload,
				Message: fmt.Sprintf("assigning task to worker %s pushes utilization to %.0f%%, above the %.0f%% ceiling",
					workers[pick].ID, running[pick]+demand, cons.MaxUtilization),
				TaskIDs: []string{task.ID.String()},
			})
			if g.logger != nil {
				g.logger.Warn("overloaded assignment", "task_id", task.ID, "worker_id", workers[pick].ID)
			}
		}
		if pick == -1 {
			unassigned = append(unassigned, models.UnassignedTask{
				TaskID: task.ID,
				Reason: "no candidate meets the minimum skill match",
			})
			warnings = append(warnings, models.Warning{
				Code:    models.WarnNoFeasibleAssignment,
				Message: "no feasible candidate for task",
				TaskIDs: []string{task.ID.String()},
			})
			continue
		}

		running[pick] += demand
		assignments = append(assignments, models.Assignment{
			TaskID:     task.ID,
			WorkerID:   workers[pick].ID,
			Score:      score,
			Confidence: confidenceFor(score),
			Reasoning:  reasoning(pickTerms),
			Impact:     assignmentImpact(score, pickTerms),
		})
		terms = append(terms, pickTerms)
	}

	return buildResult(g.Name(), tasks, workers, assignments, terms, unassigned, warnings, len(assignments), false, cons.Now), nil
}

// compositeAt recomputes the composite score with the worker's running
// utilization substituted for the profile value, so earlier assignments in
// the same run depress later candidacy.
func compositeAt(task *models.Task, w *models.WorkerProfile, runningUtil float64, weights config.CompositeWeights, cons Constraints) (float64, Terms) {
	if runningUtil == w.CapacityUtilization {
		return Composite(task, w, weights, cons.Now)
	}
	adjusted := *w
	adjusted.CapacityUtilization = runningUtil
	return Composite(task, &adjusted, weights, cons.Now)
}

// confidenceFor maps a composite score to a 0-1 assignment confidence.
func confidenceFor(score float64) float64 {
	c := 0.5 + score/200
	if c > 0.98 {
		return 0.98
	}
	return c
}
