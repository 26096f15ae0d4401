// Package risk predicts delay bottlenecks. Six component scores (0-100) are
// blended into an overall delay probability, bucketed into a risk level, and
// expanded into an estimated delay, the impacted downstream task set, and
// templated mitigation recommendations.
package risk

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/graph"
	"github.com/taskloom/backend/internal/history"
	"github.com/taskloom/backend/internal/models"
)

// Context is the read-only snapshot one assessment runs against.
type Context struct {
	Graph    *graph.Graph
	Team     []*models.WorkerProfile
	Assignee *models.WorkerProfile
}

// Assessor computes bottleneck predictions. Safe for concurrent use; it
// holds no mutable state.
type Assessor struct {
	weights config.RiskWeights
	hist    history.Provider
	logger  *slog.Logger
}

func NewAssessor(cfg *config.Config, hist history.Provider, logger *slog.Logger) *Assessor {
	return &Assessor{weights: cfg.Risk, hist: hist, logger: logger}
}

// Predict assesses one task against the context snapshot.
func (a *Assessor) Predict(task *models.Task, ctx *Context) *models.BottleneckPrediction {
	st := a.hist.Stats(task.Category, task.Complexity)

	comp := models.RiskComponents{
		ResourceConstraints:  a.resourceConstraints(task, ctx),
		DependencyComplexity: a.dependencyComplexity(task, ctx),
		SkillGaps:            a.skillGaps(task, ctx),
		WorkloadImbalance:    a.workloadImbalance(ctx),
		ExternalDependencies: a.externalDependencies(task),
		HistoricalPattern:    clamp100(st.DelayFrequency*100*0.7 + st.ReworkRate*100*0.3),
	}

	prob := clamp100(comp.ResourceConstraints*a.weights.ResourceConstraints +
		comp.DependencyComplexity*a.weights.DependencyComplexity +
		comp.SkillGaps*a.weights.SkillGaps +
		comp.WorkloadImbalance*a.weights.WorkloadImbalance +
		comp.ExternalDependencies*a.weights.ExternalDependencies +
		comp.HistoricalPattern*a.weights.HistoricalPattern)

	pred := &models.BottleneckPrediction{
		TaskID:             task.ID,
		DelayProbability:   prob,
		RiskLevel:          models.RiskLevel(prob),
		EstimatedDelayDays: estimateDelay(task, prob, st),
		Components:         comp,
		ImpactedTaskIDs:    impactedSet(task.ID, ctx.Graph),
		Recommendations:    recommend(comp, prob),
		ComputedAt:         time.Now(),
	}
	return pred
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// resourceConstraints scores how contended the task's execution slot is:
// assignee (or team-average) utilization plus pressure from each declared
// shared-resource requirement.
func (a *Assessor) resourceConstraints(task *models.Task, ctx *Context) float64 {
	util := 50.0
	if ctx.Assignee != nil {
		util = ctx.Assignee.CapacityUtilization
	} else if len(ctx.Team) > 0 {
		var sum float64
		for _, w := range ctx.Team {
			sum += w.CapacityUtilization
		}
		util = sum / float64(len(ctx.Team))
	}
	score := util
	for _, r := range task.Resources {
		score += r.Units * 5
	}
	return clamp100(score)
}

// dependencyComplexity scores structural exposure: fan-in, fan-out, longest
// downstream chain, and cycle / critical-path membership.
func (a *Assessor) dependencyComplexity(task *models.Task, ctx *Context) float64 {
	if ctx.Graph == nil {
		return clamp100(float64(len(task.DependsOn)) * 8)
	}
	n, ok := ctx.Graph.Nodes[task.ID]
	if !ok {
		return 0
	}
	score := float64(len(n.Dependencies))*8 + float64(len(n.Dependents))*8
	score += float64(chainLength(n, make(map[uuid.UUID]int))) * 5
	if n.InCycle {
		score += 25
	}
	if n.CriticalPath {
		score += 15
	}
	return clamp100(score)
}

// chainLength is the longest downstream hard-edge path from n, memoized and
// guarded against cycles (cyclic nodes terminate the walk).
func chainLength(n *graph.Node, memo map[uuid.UUID]int) int {
	if v, ok := memo[n.Task.ID]; ok {
		return v
	}
	memo[n.Task.ID] = 0 // cycle guard: revisits see 0
	best := 0
	for _, dep := range n.Dependents {
		if dep.InCycle {
			continue
		}
		if l := 1 + chainLength(dep, memo); l > best {
			best = l
		}
	}
	memo[n.Task.ID] = best
	return best
}

// skillGaps measures required skill level (complexity-scaled) against the
// best available rating for the task's category.
func (a *Assessor) skillGaps(task *models.Task, ctx *Context) float64 {
	required := models.ComplexityScore(task.Complexity) * 25 // 25..100
	best := 0.0
	if ctx.Assignee != nil {
		best = ctx.Assignee.SkillFor(task.Category).Score
	} else {
		for _, w := range ctx.Team {
			if s := w.SkillFor(task.Category).Score; s > best {
				best = s
			}
		}
	}
	gap := required - best
	if gap <= 0 {
		return 0
	}
	return clamp100(gap * 1.5)
}

// workloadImbalance is the coefficient of variation of team utilization,
// scaled to 0-100. A lopsided team delays whatever lands on its busiest
// members.
func (a *Assessor) workloadImbalance(ctx *Context) float64 {
	if len(ctx.Team) < 2 {
		return 0
	}
	var sum float64
	for _, w := range ctx.Team {
		sum += w.CapacityUtilization
	}
	mean := sum / float64(len(ctx.Team))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, w := range ctx.Team {
		d := w.CapacityUtilization - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(ctx.Team)))
	return clamp100(std / mean * 100)
}

// externalDependencies scores exposure to parties outside the team's
// control: regulatory/compliance flags and external integration markers.
func (a *Assessor) externalDependencies(task *models.Task) float64 {
	score := 0.0
	if task.ComplianceRequired {
		score += 40
	}
	if task.ExternalDependency {
		score += 50
	}
	switch task.Category {
	case "legal", "regulatory":
		score += 10
	}
	return clamp100(score)
}

// estimateDelay converts probability and historical signal into days:
// a complexity-scaled fraction of the task's own effort, a probability-scaled
// term, and the blended historical average delay. Floored at half a day and
// rounded up to the next half day.
func estimateDelay(task *models.Task, prob float64, st history.Stats) float64 {
	effortDays := task.EstimatedHours / 8
	d := models.ComplexityScore(task.Complexity) / 4 * effortDays * 0.3
	d += prob / 100 * 2
	d += 0.5 * st.AvgDelayDays
	if d < 0.5 {
		d = 0.5
	}
	return math.Ceil(d*2) / 2
}

// impactedSet is the transitive closure of hard dependents from the task,
// guarded against cycles by the visited set.
func impactedSet(id uuid.UUID, g *graph.Graph) []uuid.UUID {
	if g == nil {
		return nil
	}
	start, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	visited := map[uuid.UUID]bool{id: true}
	var out []uuid.UUID
	stack := []*graph.Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range n.Dependents {
			if visited[dep.Task.ID] {
				continue
			}
			visited[dep.Task.ID] = true
			out = append(out, dep.Task.ID)
			stack = append(stack, dep)
		}
	}
	return out
}
