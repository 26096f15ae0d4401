// Package scoring implements the multi-factor priority model: feature
// extraction over five groups (temporal, task, business, user, historical),
// running z-score normalization, a sigmoid-weighted 0-100 score with a
// categorical confidence band, and a guarded online-learning weight update.
package scoring

import (
	"time"

	"github.com/taskloom/backend/internal/graph"
	"github.com/taskloom/backend/internal/history"
	"github.com/taskloom/backend/internal/models"
)

// Feature indices. The order is the contract between extraction, the weight
// vector, and the learning loop.
const (
	fDaysUntilDeadline = iota
	fDaysSinceCreation
	fBusinessHours
	fComplexity
	fCategoryWeight
	fDependencyCount
	fDependentCount
	fEstimatedHours
	fBusinessValue
	fRiskLevel
	fCompliance
	fClientTier
	fAssigneeWorkload
	fSkillMatch
	fHistoricalPerf
	fTeamCapacity
	fAvgCompletionHours
	fSuccessRate
	fReworkRate
	numFeatures
)

var featureNames = [numFeatures]string{
	"days_until_deadline",
	"days_since_creation",
	"business_hours",
	"complexity",
	"category_weight",
	"dependency_count",
	"dependent_count",
	"estimated_hours",
	"business_value",
	"risk_level",
	"compliance",
	"client_tier",
	"assignee_workload",
	"skill_match",
	"historical_performance",
	"team_capacity",
	"avg_completion_hours",
	"success_rate",
	"rework_rate",
}

// defaultDeadlineHorizonDays stands in when a task carries no due date, far
// enough out that undated work never outranks dated work on urgency alone.
const defaultDeadlineHorizonDays = 30

// Context carries the snapshot a scoring pass reads. All fields are optional;
// absent data falls back to neutral defaults.
type Context struct {
	Now      time.Time
	Graph    *graph.Graph          // dependency fan-in/out when available
	Assignee *models.WorkerProfile // current or candidate assignee
	Team     []*models.WorkerProfile

	BusinessValue   float64            // 0-100; 0 means derive from priority and tier
	RiskProbability float64            // 0-100, from the bottleneck assessor when available
	CategoryWeights map[string]float64 // relative category importance, default 1
}

func (c *Context) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

func clientTierRank(tier string) float64 {
	switch tier {
	case models.ClientTierVIP:
		return 2
	case models.ClientTierPremium:
		return 1
	}
	return 0
}

// extract builds the raw feature vector for one task.
func extract(task *models.Task, ctx *Context, hist history.Provider) [numFeatures]float64 {
	var v [numFeatures]float64
	now := ctx.now()

	// Temporal.
	days := float64(defaultDeadlineHorizonDays)
	if task.DueDate != nil {
		days = task.DueDate.Sub(now).Hours() / 24
	}
	v[fDaysUntilDeadline] = days
	if !task.CreatedAt.IsZero() {
		v[fDaysSinceCreation] = now.Sub(task.CreatedAt).Hours() / 24
	}
	if wd := now.Weekday(); wd != time.Saturday && wd != time.Sunday {
		if h := now.Hour(); h >= 9 && h < 17 {
			v[fBusinessHours] = 1
		}
	}

	// Task shape.
	v[fComplexity] = models.ComplexityScore(task.Complexity)
	v[fCategoryWeight] = 1
	if w, ok := ctx.CategoryWeights[task.Category]; ok {
		v[fCategoryWeight] = w
	}
	v[fDependencyCount] = float64(len(task.DependsOn))
	v[fEstimatedHours] = task.EstimatedHours
	if ctx.Graph != nil {
		if n, ok := ctx.Graph.Nodes[task.ID]; ok {
			v[fDependencyCount] = float64(len(n.Dependencies) + len(n.SoftDeps))
			v[fDependentCount] = float64(len(n.Dependents))
		}
	}

	// Business.
	bv := ctx.BusinessValue
	if bv == 0 {
		bv = models.PriorityRank(task.Priority)*20 + clientTierRank(task.ClientTier)*10
	}
	v[fBusinessValue] = bv
	risk := ctx.RiskProbability
	if risk == 0 {
		risk = models.ComplexityScore(task.Complexity) * 15
	}
	v[fRiskLevel] = risk
	if task.ComplianceRequired {
		v[fCompliance] = 1
	}
	v[fClientTier] = clientTierRank(task.ClientTier)

	// User.
	v[fAssigneeWorkload] = 50
	v[fSkillMatch] = 50
	v[fHistoricalPerf] = 70
	if a := ctx.Assignee; a != nil {
		v[fAssigneeWorkload] = a.CapacityUtilization
		v[fSkillMatch] = a.SkillFor(task.Category).Score
		v[fHistoricalPerf] = (a.Performance.Quality + a.Performance.Speed + a.Performance.Reliability) / 3
	}
	v[fTeamCapacity] = 50
	if len(ctx.Team) > 0 {
		var head float64
		for _, w := range ctx.Team {
			head += w.Headroom()
		}
		v[fTeamCapacity] = head / float64(len(ctx.Team))
	}

	// Historical.
	st := hist.Stats(task.Category, task.Complexity)
	v[fAvgCompletionHours] = st.AvgCompletionHours
	v[fSuccessRate] = st.SuccessRate
	v[fReworkRate] = st.ReworkRate

	return v
}
