// Package graph builds the task dependency graph the scheduling passes run
// over. Cycles are detected and reported, never fatal: cyclic tasks stay in
// the graph as best-effort schedulable nodes, excluded from slack guarantees.
package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskloom/backend/internal/models"
)

// Node wraps a task with its edges and the fields the scheduler computes.
// Nodes are rebuilt on every scheduling pass and never persisted.
type Node struct {
	Task *models.Task

	Dependencies []*Node // hard prerequisite edges
	Dependents   []*Node // hard downstream edges
	SoftDeps     []*Node // advisory edges, scoring only

	EstimatedStart time.Time
	EstimatedEnd   time.Time
	Slack          time.Duration
	CriticalPath   bool
	InCycle        bool
}

// Graph is the built dependency graph for one scheduling run.
type Graph struct {
	Nodes  map[uuid.UUID]*Node
	Cycles [][]uuid.UUID // each cycle is the task ids along one detected loop

	order []*Node // insertion order, for deterministic traversal
}

// Builder constructs graphs from flat task and dependency lists.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

// Build validates the inputs and assembles the graph. Task.DependsOn entries
// are treated as hard edges; the explicit dependency list may add hard or
// soft edges on top. Duplicate edges collapse to one.
func (b *Builder) Build(tasks []*models.Task, deps []*models.Dependency) (*Graph, error) {
	if len(tasks) == 0 {
		return nil, &models.ValidationError{Field: "tasks", Reason: "task set is empty"}
	}

	g := &Graph{Nodes: make(map[uuid.UUID]*Node, len(tasks))}
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := g.Nodes[t.ID]; dup {
			return nil, &models.ValidationError{Field: "tasks", Reason: "duplicate task id " + t.ID.String()}
		}
		n := &Node{Task: t}
		g.Nodes[t.ID] = n
		g.order = append(g.order, n)
	}

	seen := make(map[[2]uuid.UUID]bool)
	addHard := func(prereq, dependent uuid.UUID) error {
		from, ok := g.Nodes[prereq]
		if !ok {
			return fmt.Errorf("dependency prerequisite %s: %w", prereq, models.ErrNotFound)
		}
		to, ok := g.Nodes[dependent]
		if !ok {
			return fmt.Errorf("dependency dependent %s: %w", dependent, models.ErrNotFound)
		}
		key := [2]uuid.UUID{prereq, dependent}
		if seen[key] {
			return nil
		}
		seen[key] = true
		to.Dependencies = append(to.Dependencies, from)
		from.Dependents = append(from.Dependents, to)
		return nil
	}

	for _, t := range tasks {
		for _, prereq := range t.DependsOn {
			if prereq == t.ID {
				return nil, &models.ValidationError{Field: "depends_on", Reason: "task cannot depend on itself"}
			}
			if err := addHard(prereq, t.ID); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range deps {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if d.IsHard() {
			if err := addHard(d.PrerequisiteID, d.DependentID); err != nil {
				return nil, err
			}
			continue
		}
		from, ok := g.Nodes[d.PrerequisiteID]
		if !ok {
			return nil, fmt.Errorf("dependency prerequisite %s: %w", d.PrerequisiteID, models.ErrNotFound)
		}
		to, ok := g.Nodes[d.DependentID]
		if !ok {
			return nil, fmt.Errorf("dependency dependent %s: %w", d.DependentID, models.ErrNotFound)
		}
		to.SoftDeps = append(to.SoftDeps, from)
	}

	g.detectCycles()
	return g, nil
}

// detectCycles runs an iterative DFS over hard edges with an explicit frame
// stack, so arbitrarily deep chains never grow the goroutine stack. Every
// back-edge yields one reported cycle; the nodes along it are flagged.
func (g *Graph) detectCycles() {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[uuid.UUID]int, len(g.Nodes))

	type frame struct {
		node *Node
		next int // next dependent edge to examine
	}
	var frames []frame
	var path []uuid.UUID

	for _, root := range g.order {
		if color[root.Task.ID] != white {
			continue
		}
		color[root.Task.ID] = gray
		frames = append(frames[:0], frame{node: root})
		path = append(path[:0], root.Task.ID)

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.next < len(f.node.Dependents) {
				dep := f.node.Dependents[f.next]
				f.next++
				switch color[dep.Task.ID] {
				case white:
					color[dep.Task.ID] = gray
					frames = append(frames, frame{node: dep})
					path = append(path, dep.Task.ID)
				case gray:
					// Back-edge: the cycle is the path suffix from dep onward.
					start := 0
					for i, id := range path {
						if id == dep.Task.ID {
							start = i
							break
						}
					}
					cycle := make([]uuid.UUID, len(path)-start)
					copy(cycle, path[start:])
					g.Cycles = append(g.Cycles, cycle)
					for _, id := range cycle {
						g.Nodes[id].InCycle = true
					}
				}
				continue
			}
			color[f.node.Task.ID] = black
			frames = frames[:len(frames)-1]
			path = path[:len(path)-1]
		}
	}
}

// TopoOrder returns the acyclic nodes in topological order, followed by the
// cyclic nodes in insertion order. Edges into or out of cyclic nodes are
// ignored while ordering so the acyclic portion still sorts.
func (g *Graph) TopoOrder() []*Node {
	indegree := make(map[uuid.UUID]int, len(g.Nodes))
	for _, n := range g.order {
		if n.InCycle {
			continue
		}
		for _, dep := range n.Dependencies {
			if !dep.InCycle {
				indegree[n.Task.ID]++
			}
		}
	}

	var queue []*Node
	for _, n := range g.order {
		if !n.InCycle && indegree[n.Task.ID] == 0 {
			queue = append(queue, n)
		}
	}

	out := make([]*Node, 0, len(g.Nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		for _, dep := range n.Dependents {
			if dep.InCycle {
				continue
			}
			indegree[dep.Task.ID]--
			if indegree[dep.Task.ID] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	for _, n := range g.order {
		if n.InCycle {
			out = append(out, n)
		}
	}
	return out
}

// CycleWarnings renders detected cycles as result warnings.
func (g *Graph) CycleWarnings() []models.Warning {
	var out []models.Warning
	for _, cycle := range g.Cycles {
		ids := make([]string, len(cycle))
		for i, id := range cycle {
			ids[i] = id.String()
		}
		out = append(out, models.Warning{
			Code:    models.WarnCycleDetected,
			Message: fmt.Sprintf("dependency cycle detected across %d tasks; they are scheduled best-effort without slack guarantees", len(cycle)),
			TaskIDs: ids,
		})
	}
	return out
}
