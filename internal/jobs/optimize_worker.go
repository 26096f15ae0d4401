// Package jobs runs optimization cycles off the request path as River
// background jobs, so the expensive strategies never block an HTTP handler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/taskloom/backend/internal/models"
)

// OptimizeArgs enqueues one optimization cycle for a project.
type OptimizeArgs struct {
	ProjectID uuid.UUID `json:"project_id"`
	Strategy  string    `json:"strategy"`
}

func (OptimizeArgs) Kind() string { return "optimize_assignments" }

// Engine is the coordinator surface the worker needs.
type Engine interface {
	OptimizeAssignments(ctx context.Context, tasks []*models.Task, strategyName string, now time.Time) (*models.OptimizationResult, error)
}

// TaskSource loads a project's tasks.
type TaskSource interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error)
}

// TaskSink persists assignment updates.
type TaskSink interface {
	Save(ctx context.Context, t *models.Task) error
}

// Notifier mirrors the coordinator's outbound-event collaborator.
type Notifier interface {
	Notify(ctx context.Context, eventType string, targets []string, payload any)
}

type OptimizeWorker struct {
	river.WorkerDefaults[OptimizeArgs]
	engine   Engine
	source   TaskSource
	sink     TaskSink
	notifier Notifier
	logger   *slog.Logger
}

func NewOptimizeWorker(engine Engine, source TaskSource, sink TaskSink, notifier Notifier, logger *slog.Logger) *OptimizeWorker {
	return &OptimizeWorker{engine: engine, source: source, sink: sink, notifier: notifier, logger: logger}
}

func (w *OptimizeWorker) Work(ctx context.Context, job *river.Job[OptimizeArgs]) error {
	args := job.Args

	tasks, err := w.source.ListByProject(ctx, args.ProjectID)
	if err != nil {
		return fmt.Errorf("load project tasks: %w", err)
	}

	var open []*models.Task
	for _, t := range tasks {
		if t.Status == models.TaskStatusPending || t.Status == models.TaskStatusAssigned {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		w.logger.Info("optimization job: nothing to assign", "project_id", args.ProjectID)
		return nil
	}

	res, err := w.engine.OptimizeAssignments(ctx, open, args.Strategy, time.Now())
	if err != nil {
		return fmt.Errorf("optimize project %s: %w", args.ProjectID, err)
	}

	for _, a := range res.Assignments {
		for _, t := range open {
			if t.ID != a.TaskID {
				continue
			}
			workerID := a.WorkerID
			t.AssignedWorkerID = &workerID
			if err := w.sink.Save(ctx, t); err != nil {
				return fmt.Errorf("persist assignment for task %s: %w", t.ID, err)
			}
			break
		}
	}

	w.logger.Info("optimization job finished",
		"project_id", args.ProjectID, "strategy", res.Strategy,
		"assignments", len(res.Assignments), "unassigned", len(res.Unassigned), "partial", res.Partial)
	if w.notifier != nil {
		w.notifier.Notify(ctx, "optimization_completed", []string{"project_lead"}, map[string]any{
			"project_id":  args.ProjectID,
			"strategy":    res.Strategy,
			"assignments": len(res.Assignments),
			"partial":     res.Partial,
		})
	}
	return nil
}
