// Package orchestrator drives the scheduling pipeline: it owns the mutable
// per-project task state, applies status transitions through the task state
// machine, triggers recomputation, and debounces asynchronous rebalance
// events. Graph mutation is serialized per project scope; scoring and
// prediction run concurrently against snapshots.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/graph"
	"github.com/taskloom/backend/internal/metrics"
	"github.com/taskloom/backend/internal/models"
	"github.com/taskloom/backend/internal/optimize"
	"github.com/taskloom/backend/internal/risk"
	"github.com/taskloom/backend/internal/routing"
	"github.com/taskloom/backend/internal/schedule"
	"github.com/taskloom/backend/internal/scoring"
)

// Store is the persistence collaborator at its interface boundary. All
// methods are best-effort from the coordinator's perspective: failures are
// logged, never fatal to a scheduling pass.
type Store interface {
	SaveTask(ctx context.Context, t *models.Task) error
	SaveSchedule(ctx context.Context, projectID uuid.UUID, res *models.OrchestrationResult) error
	ReplaceDependencies(ctx context.Context, projectID uuid.UUID, deps []*models.Dependency) error
}

// Directory is the worker-directory collaborator: skill ratings,
// availability, and performance history.
type Directory interface {
	ListWorkers(ctx context.Context) ([]*models.WorkerProfile, error)
}

// Notifier is the notification-dispatcher collaborator; fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, eventType string, targets []string, payload any)
}

// Options tune one orchestration pass.
type Options struct {
	Now        time.Time
	Capacities map[string]float64 // per-resource leveling capacity overrides
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// scopeState is the mutable graph state of one project. Its mutex enforces
// the single-writer discipline for all graph-mutating operations in the
// scope.
type scopeState struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
	deps  []*models.Dependency
	graph *graph.Graph
	last  *models.OrchestrationResult
}

// Coordinator is the top-level engine facade. Construct once at startup and
// share; there are no process-wide singletons.
type Coordinator struct {
	cfg         *config.Config
	builder     *graph.Builder
	scheduler   *schedule.Scheduler
	scorer      *scoring.Scorer
	assessor    *risk.Assessor
	strategies  *optimize.Registry
	recommender *routing.Recommender
	pool        *optimize.Pool
	cache       *Cache
	bus         *Bus
	debounce    *debouncer
	store       Store
	directory   Directory
	notifier    Notifier
	collector   *metrics.Collector
	logger      *slog.Logger

	mu     sync.Mutex
	scopes map[uuid.UUID]*scopeState
}

// Deps bundles the coordinator's constructor dependencies.
type Deps struct {
	Config      *config.Config
	Scorer      *scoring.Scorer
	Assessor    *risk.Assessor
	Strategies  *optimize.Registry
	Recommender *routing.Recommender
	Store       Store     // optional
	Directory   Directory // optional
	Notifier    Notifier  // optional
	Collector   *metrics.Collector
	Logger      *slog.Logger
}

func New(d Deps) *Coordinator {
	c := &Coordinator{
		cfg:         d.Config,
		builder:     graph.NewBuilder(),
		scheduler:   schedule.NewScheduler(d.Config.Leveling.DefaultCapacity, d.Logger),
		scorer:      d.Scorer,
		assessor:    d.Assessor,
		strategies:  d.Strategies,
		recommender: d.Recommender,
		pool:        optimize.NewPool(d.Config.Optimizer.PoolSize, d.Config.Optimizer.Budget, d.Logger),
		cache:       NewCache(d.Config.Cache.TTL),
		bus:         NewBus(d.Config.Events.QueueSize, d.Logger),
		store:       d.Store,
		directory:   d.Directory,
		notifier:    d.Notifier,
		collector:   d.Collector,
		logger:      d.Logger,
		scopes:      make(map[uuid.UUID]*scopeState),
	}
	c.debounce = newDebouncer(d.Config.Events.DebounceWindow, c.rebalance)
	return c
}

func (c *Coordinator) scope(projectID uuid.UUID) *scopeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.scopes[projectID]
	if !ok {
		sc = &scopeState{tasks: make(map[uuid.UUID]*models.Task)}
		c.scopes[projectID] = sc
	}
	return sc
}

// Orchestrate builds the dependency graph, runs the scheduling passes, and
// installs the result as the project's current state. An empty task set is
// a structural failure and aborts the call; per-task conditions accumulate
// into warnings.
func (c *Coordinator) Orchestrate(ctx context.Context, projectID uuid.UUID, tasks []*models.Task, deps []*models.Dependency, opts Options) (*models.OrchestrationResult, error) {
	started := time.Now()

	sc := c.scope(projectID)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	g, err := c.builder.Build(tasks, deps)
	if err != nil {
		return nil, err
	}

	now := opts.now()
	schedRes := c.scheduler.Schedule(g, now, opts.Capacities)
	res := assembleResult(g, schedRes, started)

	sc.tasks = make(map[uuid.UUID]*models.Task, len(tasks))
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		sc.tasks[t.ID] = t
	}
	sc.deps = deps
	sc.graph = g
	sc.last = res

	if c.store != nil {
		if err := c.store.SaveSchedule(ctx, projectID, res); err != nil {
			c.logger.Error("persist schedule failed", "project_id", projectID, "error", err)
		}
		if err := c.store.ReplaceDependencies(ctx, projectID, deps); err != nil {
			c.logger.Error("persist dependencies failed", "project_id", projectID, "error", err)
		}
	}
	if c.collector != nil {
		c.collector.RecordOrchestration(time.Since(started), len(res.Warnings))
		c.collector.SetTasksByStatus(countByStatus(sc.tasks))
	}
	return res, nil
}

func assembleResult(g *graph.Graph, schedRes *schedule.Result, started time.Time) *models.OrchestrationResult {
	res := &models.OrchestrationResult{
		CriticalPath:        schedRes.CriticalPath,
		EstimatedCompletion: schedRes.EstimatedCompletion,
		Warnings:            schedRes.Warnings,
		Success:             true,
	}
	var totalHours float64
	for _, n := range g.TopoOrder() {
		res.ScheduledTasks = append(res.ScheduledTasks, models.ScheduledTask{
			TaskID:         n.Task.ID,
			EstimatedStart: n.EstimatedStart,
			EstimatedEnd:   n.EstimatedEnd,
			SlackHours:     n.Slack.Hours(),
			CriticalPath:   n.CriticalPath,
			InCycle:        n.InCycle,
		})
		if n.CriticalPath {
			totalHours += n.Task.EstimatedHours
		}
	}
	res.Metrics = models.OrchestrationMetrics{
		TaskCount:          len(g.Nodes),
		CycleCount:         len(g.Cycles),
		CriticalPathLength: len(schedRes.CriticalPath),
		TotalDurationHours: totalHours,
		ElapsedMillis:      time.Since(started).Milliseconds(),
	}
	return res
}

func countByStatus(tasks map[uuid.UUID]*models.Task) map[string]int {
	out := make(map[string]int)
	for _, t := range tasks {
		out[t.Status]++
	}
	return out
}

// UpdateTaskStatus applies one transition through the state machine.
// A priority carried in the metadata is applied first, so re-prioritization
// works without a status change. Updating to the current status is otherwise
// an idempotent no-op, so repeated completion events never re-trigger
// dependents. On completion, dependents
// whose prerequisites are all satisfied auto-transition to assigned, and if
// the completed task sat on the critical path the schedule is recomputed.
func (c *Coordinator) UpdateTaskStatus(ctx context.Context, projectID, taskID uuid.UUID, newStatus string, metadata map[string]any) (*models.StatusUpdateResult, error) {
	if !models.ValidStatus(newStatus) {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown status " + newStatus}
	}

	sc := c.scope(projectID)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	task, ok := sc.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, models.ErrNotFound)
	}

	res := &models.StatusUpdateResult{TaskID: taskID, NewStatus: newStatus, Success: true}

	// Re-prioritization rides along on the status update and applies even
	// when the status itself stays the same.
	if pr, ok := metadata["priority"].(string); ok && pr != task.Priority {
		task.Priority = pr
		task.UpdatedAt = time.Now()
		c.cache.InvalidateEntity(taskID)
		c.persistTask(ctx, task)
		c.bus.Publish(Event{Type: EventPriorityChanged, Scope: projectID, TaskID: taskID})
	}

	if task.Status == newStatus {
		return res, nil
	}
	if !models.CanTransition(task.Status, newStatus) {
		return nil, &models.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot transition from %s to %s", task.Status, newStatus),
		}
	}

	wasCritical := false
	if sc.graph != nil {
		if n, ok := sc.graph.Nodes[taskID]; ok {
			wasCritical = n.CriticalPath
		}
	}

	task.Status = newStatus
	task.UpdatedAt = time.Now()
	c.cache.InvalidateEntity(taskID)
	c.persistTask(ctx, task)

	switch newStatus {
	case models.TaskStatusCompleted:
		res.TriggeredTasks = c.activateDependents(ctx, sc, taskID)
		if wasCritical {
			res.UpdatedSchedule = c.reschedule(sc, time.Now())
			if res.UpdatedSchedule != nil {
				res.Warnings = append(res.Warnings, res.UpdatedSchedule.Warnings...)
				if c.notifier != nil {
					c.notifier.Notify(ctx, "schedule_recomputed", []string{"project_lead"}, map[string]any{
						"project_id":           projectID,
						"completed_task":       taskID,
						"estimated_completion": res.UpdatedSchedule.EstimatedCompletion,
					})
				}
			}
		}
		c.bus.Publish(Event{Type: EventTaskCompleted, Scope: projectID, TaskID: taskID})
	case models.TaskStatusBlocked:
		c.bus.Publish(Event{Type: EventTaskBlocked, Scope: projectID, TaskID: taskID})
	}

	if c.collector != nil {
		c.collector.RecordStatusChange(newStatus)
		c.collector.SetTasksByStatus(countByStatus(sc.tasks))
	}
	return res, nil
}

// activateDependents promotes pending dependents whose hard prerequisites
// are now all completed, and emits an outbound notification per activation.
func (c *Coordinator) activateDependents(ctx context.Context, sc *scopeState, completed uuid.UUID) []uuid.UUID {
	if sc.graph == nil {
		return nil
	}
	node, ok := sc.graph.Nodes[completed]
	if !ok {
		return nil
	}

	var triggered []uuid.UUID
	for _, dep := range node.Dependents {
		t := sc.tasks[dep.Task.ID]
		if t == nil || t.Status != models.TaskStatusPending {
			continue
		}
		ready := true
		for _, prereq := range dep.Dependencies {
			pt := sc.tasks[prereq.Task.ID]
			if pt == nil || pt.Status != models.TaskStatusCompleted {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		t.Status = models.TaskStatusAssigned
		t.UpdatedAt = time.Now()
		triggered = append(triggered, t.ID)
		c.cache.InvalidateEntity(t.ID)
		c.persistTask(ctx, t)
		if c.notifier != nil {
			c.notifier.Notify(ctx, EventTaskActivated, []string{"assignee", "project_lead"}, map[string]any{
				"task_id":      t.ID,
				"unblocked_by": completed,
			})
		}
	}
	return triggered
}

// reschedule reruns the scheduling passes over the scope's current state.
// Callers hold the scope lock.
func (c *Coordinator) reschedule(sc *scopeState, now time.Time) *models.OrchestrationResult {
	tasks := make([]*models.Task, 0, len(sc.tasks))
	for _, t := range sc.tasks {
		tasks = append(tasks, t)
	}
	g, err := c.builder.Build(tasks, sc.deps)
	if err != nil {
		c.logger.Error("incremental reschedule failed", "error", err)
		return nil
	}
	started := time.Now()
	schedRes := c.scheduler.Schedule(g, now, nil)
	sc.graph = g
	sc.last = assembleResult(g, schedRes, started)
	return sc.last
}

func (c *Coordinator) persistTask(ctx context.Context, t *models.Task) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveTask(ctx, t); err != nil {
		c.logger.Error("persist task failed", "task_id", t.ID, "error", err)
	}
}

// ScorePriority computes (or serves from cache) the task's priority score.
func (c *Coordinator) ScorePriority(task *models.Task, sctx *scoring.Context) *models.PriorityScore {
	key := Key{Kind: "priority", EntityID: task.ID, ContextHash: scoreContextHash(task, sctx)}
	if v, ok := c.cache.Get(key); ok {
		if c.collector != nil {
			c.collector.RecordCache(true)
		}
		return v.(*models.PriorityScore)
	}
	if c.collector != nil {
		c.collector.RecordCache(false)
	}
	score := c.scorer.Score(task, sctx)
	c.cache.Put(key, score)
	return score
}

// PredictBottleneck computes (or serves from cache) the task's bottleneck
// prediction.
func (c *Coordinator) PredictBottleneck(task *models.Task, rctx *risk.Context) *models.BottleneckPrediction {
	key := Key{Kind: "bottleneck", EntityID: task.ID, ContextHash: riskContextHash(task, rctx)}
	if v, ok := c.cache.Get(key); ok {
		if c.collector != nil {
			c.collector.RecordCache(true)
		}
		return v.(*models.BottleneckPrediction)
	}
	if c.collector != nil {
		c.collector.RecordCache(false)
	}
	pred := c.assessor.Predict(task, rctx)
	c.cache.Put(key, pred)
	return pred
}

// scoreContextHash folds every scoring input that can change between two
// requests for the same task, so a cached score is only reused when the full
// context matches.
func scoreContextHash(task *models.Task, sctx *scoring.Context) uint64 {
	parts := []string{
		task.UpdatedAt.UTC().Format(time.RFC3339Nano), task.Status, task.Priority,
		strconv.FormatFloat(sctx.BusinessValue, 'f', 2, 64),
		strconv.FormatFloat(sctx.RiskProbability, 'f', 2, 64),
	}
	if sctx.Assignee != nil {
		parts = append(parts,
			sctx.Assignee.ID.String(),
			sctx.Assignee.UpdatedAt.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(sctx.Assignee.CapacityUtilization, 'f', 2, 64),
		)
	}
	for _, w := range sctx.Team {
		parts = append(parts, w.ID.String(), strconv.FormatFloat(w.CapacityUtilization, 'f', 2, 64))
	}
	cats := make([]string, 0, len(sctx.CategoryWeights))
	for cat := range sctx.CategoryWeights {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		parts = append(parts, cat, strconv.FormatFloat(sctx.CategoryWeights[cat], 'f', 2, 64))
	}
	return HashContext(parts...)
}

func riskContextHash(task *models.Task, rctx *risk.Context) uint64 {
	parts := []string{task.UpdatedAt.UTC().Format(time.RFC3339Nano), task.Status}
	if rctx.Assignee != nil {
		parts = append(parts, rctx.Assignee.ID.String(), rctx.Assignee.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	for _, w := range rctx.Team {
		parts = append(parts, w.ID.String(), strconv.FormatFloat(w.CapacityUtilization, 'f', 2, 64))
	}
	return HashContext(parts...)
}

// OptimizeAssignments refreshes worker profiles and runs the named strategy
// under the configured budget. When the budget expires the best solution so
// far is returned, flagged partial with an optimization_timeout warning.
func (c *Coordinator) OptimizeAssignments(ctx context.Context, tasks []*models.Task, strategyName string, now time.Time) (*models.OptimizationResult, error) {
	strategy, err := c.strategies.Get(strategyName)
	if err != nil {
		return nil, err
	}
	workers, err := c.workers(ctx)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if c.cfg.Optimizer.Budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Optimizer.Budget)
		defer cancel()
	}

	started := time.Now()
	res, err := strategy.Optimize(runCtx, tasks, workers, optimize.Constraints{
		MaxUtilization: c.cfg.Thresholds.MaxUtilization,
		MinSkillMatch:  c.cfg.Thresholds.MinSkillMatch,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	if res.Partial {
		res.Warnings = append(res.Warnings, models.Warning{
			Code:    models.WarnOptimizationTimeout,
			Message: "optimization budget expired; returning best solution found",
		})
	}
	if c.notifier != nil {
		for _, w := range res.Warnings {
			if w.Code == models.WarnOverload {
				c.notifier.Notify(ctx, "assignment_overload", []string{"project_lead"}, map[string]any{
					"task_ids": w.TaskIDs,
					"message":  w.Message,
				})
			}
		}
	}
	if c.collector != nil {
		c.collector.RecordOptimization(strategy.Name(), time.Since(started), res.Metrics.Iterations)
	}
	return res, nil
}

// RecommendRouting refreshes worker profiles and ranks the top candidates
// for one task.
func (c *Coordinator) RecommendRouting(ctx context.Context, task *models.Task, now time.Time) (*models.RoutingRecommendation, error) {
	workers, err := c.workers(ctx)
	if err != nil {
		return nil, err
	}
	return c.recommender.Recommend(task, workers, now)
}

func (c *Coordinator) workers(ctx context.Context) ([]*models.WorkerProfile, error) {
	if c.directory == nil {
		return nil, nil
	}
	workers, err := c.directory.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh worker profiles: %w", err)
	}
	// Refreshed profiles change the inputs of every cached score and
	// prediction.
	c.cache.InvalidateAll()
	return workers, nil
}

// Bus exposes the event queue so transports and collaborators can publish
// rebalance triggers.
func (c *Coordinator) Bus() *Bus { return c.bus }

// rebalance is the debouncer flush handler: one batched trigger per scope.
// The pool guarantees at most one in-flight rebalance per scope, superseding
// older runs.
func (c *Coordinator) rebalance(scope uuid.UUID, events []Event) {
	if c.collector != nil {
		c.collector.RecordRebalance(len(events))
	}
	c.pool.Submit(context.Background(), scope.String(), func(ctx context.Context) {
		c.runRebalance(ctx, scope, events)
	})
}

// runRebalance recomputes the scope's schedule and re-optimizes assignments
// for tasks that are not yet in progress.
func (c *Coordinator) runRebalance(ctx context.Context, scope uuid.UUID, events []Event) {
	sc := c.scope(scope)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if len(sc.tasks) == 0 {
		return
	}
	now := time.Now()
	c.reschedule(sc, now)

	var open []*models.Task
	for _, t := range sc.tasks {
		if t.Status == models.TaskStatusPending || t.Status == models.TaskStatusAssigned {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return
	}

	workers, err := c.workers(ctx)
	if err != nil || len(workers) == 0 {
		if err != nil {
			c.logger.Error("rebalance: worker refresh failed", "scope", scope, "error", err)
		}
		return
	}
	strategy, _ := c.strategies.Get(optimize.StrategyGreedy)
	res, err := strategy.Optimize(ctx, open, workers, optimize.Constraints{
		MaxUtilization: c.cfg.Thresholds.MaxUtilization,
		MinSkillMatch:  c.cfg.Thresholds.MinSkillMatch,
		Now:            now,
	})
	if err != nil {
		c.logger.Error("rebalance: optimization failed", "scope", scope, "error", err)
		return
	}
	for _, a := range res.Assignments {
		if t, ok := sc.tasks[a.TaskID]; ok {
			workerID := a.WorkerID
			t.AssignedWorkerID = &workerID
			t.UpdatedAt = now
			c.cache.InvalidateEntity(t.ID)
			c.persistTask(ctx, t)
		}
	}
	c.logger.Info("rebalance applied", "scope", scope, "events", len(events), "assignments", len(res.Assignments), "warnings", len(res.Warnings))
	if c.notifier != nil {
		c.notifier.Notify(ctx, "rebalance_completed", []string{"project_lead"}, map[string]any{
			"scope":       scope,
			"assignments": len(res.Assignments),
			"warnings":    len(res.Warnings),
		})
	}
}
