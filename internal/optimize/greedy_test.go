package optimize

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

var optNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func defaultConstraints() Constraints {
	cfg := config.Default()
	return Constraints{
		MaxUtilization: cfg.Thresholds.MaxUtilization,
		MinSkillMatch:  cfg.Thresholds.MinSkillMatch,
		Now:            optNow,
	}
}

func optTask(hours float64, priority string) *models.Task {
	return &models.Task{
		ID:             uuid.New(),
		Category:       "backend",
		Complexity:     models.ComplexityModerate,
		Priority:       priority,
		Status:         models.TaskStatusPending,
		EstimatedHours: hours,
	}
}

func optWorker(name string, skill, util float64) *models.WorkerProfile {
	return &models.WorkerProfile{
		ID:                  uuid.New(),
		Name:                name,
		Skills:              map[string]models.SkillRating{"backend": {Score: skill, Confidence: 1, AssessedAt: optNow}},
		CapacityUtilization: util,
		OptimalCapacity:     80,
		Performance:         models.PerformanceMetrics{Quality: 75, Speed: 75, Reliability: 75},
	}
}

func findAssignment(res *models.OptimizationResult, taskID uuid.UUID) *models.Assignment {
	for i := range res.Assignments {
		if res.Assignments[i].TaskID == taskID {
			return &res.Assignments[i]
		}
	}
	return nil
}

func hasWarning(warnings []models.Warning, code string) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// 1. TestGreedyPicksBestFeasible
// ---------------------------------------------------------------------------

func TestGreedyPicksBestFeasible(t *testing.T) {
	task := optTask(8, models.PriorityHigh)
	strong := optWorker("strong", 95, 20)
	weak := optWorker("weak", 65, 20)

	g := NewGreedy(config.Default().Composite, nil)
	res, err := g.Optimize(context.Background(), []*models.Task{task}, []*models.WorkerProfile{weak, strong}, defaultConstraints())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	a := findAssignment(res, task.ID)
	if a == nil {
		t.Fatal("task should be assigned")
	}
	if a.WorkerID != strong.ID {
		t.Fatalf("expected the stronger candidate, got %s", a.WorkerID)
	}
	if a.Confidence <= 0 || a.Confidence > 0.98 {
		t.Fatalf("confidence %f out of range", a.Confidence)
	}
	if len(a.Reasoning) == 0 {
		t.Fatal("assignment should carry reasoning")
	}
	if !res.Success {
		t.Fatal("result should be successful")
	}
}

// ---------------------------------------------------------------------------
// 2. TestGreedyCapacityCeilingExcludes
// ---------------------------------------------------------------------------

// The best-scoring candidate would end above the utilization ceiling, so the
// assignment falls to the feasible runner-up.
func TestGreedyCapacityCeilingExcludes(t *testing.T) {
	task := optTask(16, models.PriorityHigh) // demands 40 points
	best := optWorker("best", 95, 60)       // 60+40 = 100 > 90
	runner := optWorker("runner", 70, 20)   // 20+40 = 60, fits

	g := NewGreedy(config.Default().Composite, nil)
	res, err := g.Optimize(context.Background(), []*models.Task{task}, []*models.WorkerProfile{best, runner}, defaultConstraints())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	a := findAssignment(res, task.ID)
	if a == nil {
		t.Fatal("task should be assigned")
	}
	if a.WorkerID != runner.ID {
		t.Fatalf("ceiling should exclude the top scorer, got %s", a.WorkerID)
	}
	if hasWarning(res.Warnings, models.WarnOverload) {
		t.Fatal("a feasible assignment must not warn about overload")
	}
}

// ---------------------------------------------------------------------------
// 3. TestGreedyOverloadFallbackWarns
// ---------------------------------------------------------------------------

// Only one skilled candidate exists and the assignment pushes them over the
// ceiling: the task is still assigned, with an explicit overload warning.
func TestGreedyOverloadFallbackWarns(t *testing.T) {
	task := optTask(16, models.PriorityCritical)
	only := optWorker("only", 90, 95)

	g := NewGreedy(config.Default().Composite, nil)
	res, err := g.Optimize(context.Background(), []*models.Task{task}, []*models.WorkerProfile{only}, defaultConstraints())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	a := findAssignment(res, task.ID)
	if a == nil || a.WorkerID != only.ID {
		t.Fatal("task should fall back to the overloaded candidate")
	}
	if !hasWarning(res.Warnings, models.WarnOverload) {
		t.Fatalf("expected an overload warning, got %v", res.Warnings)
	}
	if len(res.Unassigned) != 0 {
		t.Fatalf("task must not appear unassigned: %v", res.Unassigned)
	}
}

// ---------------------------------------------------------------------------
// 4. TestGreedyUnassignedBelowSkillFloor
// ---------------------------------------------------------------------------

func TestGreedyUnassignedBelowSkillFloor(t *testing.T) {
	task := optTask(8, models.PriorityMedium)
	unskilled := optWorker("unskilled", 30, 10)

	g := NewGreedy(config.Default().Composite, nil)
	res, err := g.Optimize(context.Background(), []*models.Task{task}, []*models.WorkerProfile{unskilled}, defaultConstraints())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if len(res.Assignments) != 0 {
		t.Fatalf("no assignment should be made: %v", res.Assignments)
	}
	if len(res.Unassigned) != 1 || res.Unassigned[0].TaskID != task.ID {
		t.Fatalf("task should be reported unassigned: %v", res.Unassigned)
	}
	if !hasWarning(res.Warnings, models.WarnNoFeasibleAssignment) {
		t.Fatal("expected a no_feasible_assignment warning")
	}
	if !res.Success {
		t.Fatal("partial placement failure is still a successful run")
	}
}

// ---------------------------------------------------------------------------
// 5. TestGreedyRunningCapacitySpreadsWork
// ---------------------------------------------------------------------------

// Two equal tasks and one strong worker: after the first assignment consumes
// the strong worker's headroom, the second task must land elsewhere.
func TestGreedyRunningCapacitySpreadsWork(t *testing.T) {
	t1 := optTask(20, models.PriorityHigh) // 50 points each
	t2 := optTask(20, models.PriorityHigh)
	strong := optWorker("strong", 95, 30) // fits one task (80), not two (130)
	backup := optWorker("backup", 70, 10)

	g := NewGreedy(config.Default().Composite, nil)
	res, err := g.Optimize(context.Background(), []*models.Task{t1, t2}, []*models.WorkerProfile{strong, backup}, defaultConstraints())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if len(res.Assignments) != 2 {
		t.Fatalf("both tasks should be assigned, got %d", len(res.Assignments))
	}
	workers := map[uuid.UUID]int{}
	for _, a := range res.Assignments {
		workers[a.WorkerID]++
	}
	if workers[strong.ID] != 1 || workers[backup.ID] != 1 {
		t.Fatalf("work should spread across both workers: %v", workers)
	}
}

// ---------------------------------------------------------------------------
// 6. TestGreedyRejectsEmptyTaskSet
// ---------------------------------------------------------------------------

func TestGreedyRejectsEmptyTaskSet(t *testing.T) {
	g := NewGreedy(config.Default().Composite, nil)
	if _, err := g.Optimize(context.Background(), nil, nil, defaultConstraints()); err == nil {
		t.Fatal("expected error for empty task set")
	}
}

// ---------------------------------------------------------------------------
// 7. TestGreedyCancelledContextReturnsPartial
// ---------------------------------------------------------------------------

func TestGreedyCancelledContextReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGreedy(config.Default().Composite, nil)
	res, err := g.Optimize(ctx, []*models.Task{optTask(8, models.PriorityLow)}, []*models.WorkerProfile{optWorker("w", 80, 10)}, defaultConstraints())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !res.Partial {
		t.Fatal("cancelled run must be flagged partial")
	}
	if len(res.Assignments) != 0 {
		t.Fatalf("nothing should have been assigned: %v", res.Assignments)
	}
}
