// Package schedule computes the critical-path schedule over a built task
// graph: a forward pass for earliest start/end, a backward pass for slack and
// critical-path membership, and a resource-leveling pass that shifts work
// within slack to respect shared-resource capacity.
package schedule

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/taskloom/backend/internal/graph"
	"github.com/taskloom/backend/internal/models"
)

// Result summarizes one scheduling pass. The per-task schedule lives on the
// graph nodes themselves.
type Result struct {
	CriticalPath        []uuid.UUID
	EstimatedCompletion time.Time
	Warnings            []models.Warning
}

// Scheduler runs the critical-path passes. It is stateless between calls and
// safe to share once constructed.
type Scheduler struct {
	defaultCapacity float64 // per-resource capacity when not modeled explicitly
	logger          *slog.Logger
}

func NewScheduler(defaultCapacity float64, logger *slog.Logger) *Scheduler {
	if defaultCapacity <= 0 {
		defaultCapacity = 1
	}
	return &Scheduler{defaultCapacity: defaultCapacity, logger: logger}
}

// Schedule runs forward pass, backward pass, and resource leveling in order.
// capacities overrides the default capacity per resource name; pass nil to
// model every resource at the default.
func (s *Scheduler) Schedule(g *graph.Graph, now time.Time, capacities map[string]float64) *Result {
	order := g.TopoOrder()
	s.forward(order, now)
	completion := s.backward(order, g)

	res := &Result{
		CriticalPath:        criticalChain(order),
		EstimatedCompletion: completion,
		Warnings:            g.CycleWarnings(),
	}
	res.Warnings = append(res.Warnings, s.level(order, capacities)...)
	return res
}

func durationOf(t *models.Task) time.Duration {
	return time.Duration(t.EstimatedHours * float64(time.Hour))
}

// forward computes estimatedStart/estimatedEnd in topological order. A task
// starts at the latest end among its prerequisites, or now when it has none.
// Completed prerequisites no longer gate their dependents.
func (s *Scheduler) forward(order []*graph.Node, now time.Time) {
	for _, n := range order {
		start := now
		for _, dep := range n.Dependencies {
			if dep.Task.Status == models.TaskStatusCompleted {
				continue
			}
			if dep.EstimatedEnd.After(start) {
				start = dep.EstimatedEnd
			}
		}
		n.EstimatedStart = start
		n.EstimatedEnd = start.Add(durationOf(n.Task))
	}
}

// backward computes slack in reverse topological order and flags the critical
// path. Tasks with no dependents measure slack against project completion.
// Cyclic tasks carry zero slack but are excluded from the critical path; the
// slack guarantee does not hold for them.
func (s *Scheduler) backward(order []*graph.Node, g *graph.Graph) time.Time {
	var completion time.Time
	for _, n := range order {
		if n.InCycle {
			continue
		}
		if n.EstimatedEnd.After(completion) {
			completion = n.EstimatedEnd
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if n.InCycle {
			n.Slack = 0
			n.CriticalPath = false
			continue
		}
		earliest := completion
		for _, dep := range n.Dependents {
			if dep.InCycle {
				continue
			}
			if dep.EstimatedStart.Before(earliest) {
				earliest = dep.EstimatedStart
			}
		}
		slack := earliest.Sub(n.EstimatedEnd)
		if slack < 0 {
			slack = 0
		}
		n.Slack = slack
		n.CriticalPath = slack == 0
	}
	return completion
}

// criticalChain lists the critical-path task ids ordered by start time.
func criticalChain(order []*graph.Node) []uuid.UUID {
	var chain []*graph.Node
	for _, n := range order {
		if n.CriticalPath {
			chain = append(chain, n)
		}
	}
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].EstimatedStart.Before(chain[j].EstimatedStart)
	})
	ids := make([]uuid.UUID, len(chain))
	for i, n := range chain {
		ids[i] = n.Task.ID
	}
	return ids
}
