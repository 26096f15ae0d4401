package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/taskloom/backend/internal/graph"
	"github.com/taskloom/backend/internal/models"
)

// level shifts tasks later within their slack so concurrent demand on each
// shared resource never exceeds its capacity. When no task has enough slack
// a resource_conflict warning is emitted and the schedule stands unchanged
// for that overlap; the conflict is never silently violated.
func (s *Scheduler) level(order []*graph.Node, capacities map[string]float64) []models.Warning {
	byResource := make(map[string][]*graph.Node)
	for _, n := range order {
		for _, r := range n.Task.Resources {
			if r.Units > 0 {
				byResource[r.Resource] = append(byResource[r.Resource], n)
			}
		}
	}

	var warnings []models.Warning
	resources := make([]string, 0, len(byResource))
	for r := range byResource {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	for _, resource := range resources {
		capacity := s.defaultCapacity
		if c, ok := capacities[resource]; ok && c > 0 {
			capacity = c
		}
		warnings = append(warnings, s.levelResource(resource, capacity, byResource[resource])...)
	}
	return warnings
}

func unitsFor(n *graph.Node, resource string) float64 {
	for _, r := range n.Task.Resources {
		if r.Resource == resource {
			return r.Units
		}
	}
	return 0
}

// levelResource sweeps the resource's consumers in start order. For each task
// whose interval overloads the resource, the task is pushed to the earliest
// end among overlapping placed tasks, as long as its slack budget covers the
// shift. Shifts consume slack, so a leveled task never delays its dependents.
func (s *Scheduler) levelResource(resource string, capacity float64, nodes []*graph.Node) []models.Warning {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].EstimatedStart.Before(nodes[j].EstimatedStart)
	})

	var warnings []models.Warning
	placed := make([]*graph.Node, 0, len(nodes))

	for _, n := range nodes {
		units := unitsFor(n, resource)
		// Retry until the interval fits or the slack budget runs out.
		for attempts := 0; attempts < len(nodes)+1; attempts++ {
			demand := units
			var earliestEnd time.Time
			for _, p := range placed {
				if overlaps(n, p) {
					demand += unitsFor(p, resource)
					if earliestEnd.IsZero() || p.EstimatedEnd.Before(earliestEnd) {
						earliestEnd = p.EstimatedEnd
					}
				}
			}
			if demand <= capacity {
				break
			}
			shift := earliestEnd.Sub(n.EstimatedStart)
			if shift <= 0 || n.Slack < shift {
				warnings = append(warnings, models.Warning{
					Code: models.WarnResourceConflict,
					Message: fmt.Sprintf("resource %q demand %.1f exceeds capacity %.1f and task has insufficient slack to shift",
						resource, demand, capacity),
					TaskIDs: []string{n.Task.ID.String()},
				})
				if s.logger != nil {
					s.logger.Warn("resource conflict, schedule proceeds unchanged",
						"resource", resource, "task_id", n.Task.ID, "demand", demand, "capacity", capacity)
				}
				break
			}
			n.EstimatedStart = n.EstimatedStart.Add(shift)
			n.EstimatedEnd = n.EstimatedEnd.Add(shift)
			n.Slack -= shift
			n.CriticalPath = n.Slack == 0 && !n.InCycle
		}
		placed = append(placed, n)
	}
	return warnings
}

func overlaps(a, b *graph.Node) bool {
	return a.EstimatedStart.Before(b.EstimatedEnd) && b.EstimatedStart.Before(a.EstimatedEnd)
}
