package models

import (
	"time"

	"github.com/google/uuid"
)

// Confidence bands for scoring and prediction results.
const (
	ConfidenceLow      = "low"       // < 60%
	ConfidenceMedium   = "medium"    // < 80%
	ConfidenceHigh     = "high"      // < 95%
	ConfidenceVeryHigh = "very_high" // >= 95%
)

// ConfidenceBand buckets a 0-1 confidence value into its categorical band.
func ConfidenceBand(confidence float64) string {
	switch {
	case confidence < 0.60:
		return ConfidenceLow
	case confidence < 0.80:
		return ConfidenceMedium
	case confidence < 0.95:
		return ConfidenceHigh
	}
	return ConfidenceVeryHigh
}

// Risk levels for bottleneck predictions.
const (
	RiskLow      = "low"      // probability < 35
	RiskMedium   = "medium"   // < 65
	RiskHigh     = "high"     // < 85
	RiskCritical = "critical" // >= 85
)

// RiskLevel buckets a 0-100 delay probability into its categorical level.
func RiskLevel(probability float64) string {
	switch {
	case probability < 35:
		return RiskLow
	case probability < 65:
		return RiskMedium
	case probability < 85:
		return RiskHigh
	}
	return RiskCritical
}

// PriorityScore is the priority scorer's output for one task.
type PriorityScore struct {
	TaskID     uuid.UUID          `json:"task_id"`
	Score      float64            `json:"score"` // 0-100
	Confidence string             `json:"confidence"`
	Factors    map[string]float64 `json:"factors,omitempty"` // normalized feature contributions
	ComputedAt time.Time          `json:"computed_at"`
}

// RiskComponents are the six 0-100 factor scores behind a bottleneck
// prediction.
type RiskComponents struct {
	ResourceConstraints  float64 `json:"resource_constraints"`
	DependencyComplexity float64 `json:"dependency_complexity"`
	SkillGaps            float64 `json:"skill_gaps"`
	WorkloadImbalance    float64 `json:"workload_imbalance"`
	ExternalDependencies float64 `json:"external_dependencies"`
	HistoricalPattern    float64 `json:"historical_pattern"`
}

// BottleneckPrediction is the risk assessor's output for one task.
type BottleneckPrediction struct {
	TaskID             uuid.UUID      `json:"task_id"`
	DelayProbability   float64        `json:"delay_probability"` // 0-100
	RiskLevel          string         `json:"risk_level"`
	EstimatedDelayDays float64        `json:"estimated_delay_days"`
	Components         RiskComponents `json:"components"`
	ImpactedTaskIDs    []uuid.UUID    `json:"impacted_task_ids,omitempty"`
	Recommendations    []string       `json:"recommendations,omitempty"`
	ComputedAt         time.Time      `json:"computed_at"`
}

// AssignmentImpact estimates the effect of one assignment.
type AssignmentImpact struct {
	EfficiencyGain     float64 `json:"efficiency_gain"`
	QualityImpact      float64 `json:"quality_impact"`
	SatisfactionImpact float64 `json:"satisfaction_impact"`
	RiskReduction      float64 `json:"risk_reduction"`
}

// Assignment binds a task to a worker with the evidence behind the choice.
type Assignment struct {
	TaskID     uuid.UUID        `json:"task_id"`
	WorkerID   uuid.UUID        `json:"worker_id"`
	Score      float64          `json:"score"` // composite score, 0-100
	Confidence float64          `json:"confidence"`
	Reasoning  []string         `json:"reasoning,omitempty"`
	Impact     AssignmentImpact `json:"impact"`
}

// UnassignedTask records a task the optimizer could not place.
type UnassignedTask struct {
	TaskID uuid.UUID `json:"task_id"`
	Reason string    `json:"reason"`
}

// OptimizationMetrics are the aggregates over a full optimization run.
type OptimizationMetrics struct {
	TotalEfficiencyGain         float64 `json:"total_efficiency_gain"`
	WorkloadVarianceReduction   float64 `json:"workload_variance_reduction"`
	SkillUtilizationImprovement float64 `json:"skill_utilization_improvement"`
	ImplementationComplexity    string  `json:"implementation_complexity"` // low | medium | high
	Iterations                  int     `json:"iterations"`
}

// OptimizationResult is the common shape returned by every strategy.
type OptimizationResult struct {
	Strategy    string              `json:"strategy"`
	Assignments []Assignment        `json:"assignments"`
	Unassigned  []UnassignedTask    `json:"unassigned,omitempty"`
	Metrics     OptimizationMetrics `json:"metrics"`
	Warnings    []Warning           `json:"warnings,omitempty"`
	Partial     bool                `json:"partial"` // true when a budget expired before convergence
	Success     bool                `json:"success"`
	ComputedAt  time.Time           `json:"computed_at"`
}

// RankedWorker is one entry of a routing recommendation.
type RankedWorker struct {
	WorkerID uuid.UUID `json:"worker_id"`
	Score    float64   `json:"score"`
	Reasons  []string  `json:"reasons,omitempty"`
}

// RoutingRecommendation ranks the top candidates for a single task.
type RoutingRecommendation struct {
	TaskID     uuid.UUID      `json:"task_id"`
	Candidates []RankedWorker `json:"candidates"`
	Confidence float64        `json:"confidence"`
	ComputedAt time.Time      `json:"computed_at"`
}

// ScheduledTask is one task's computed schedule slot.
type ScheduledTask struct {
	TaskID         uuid.UUID `json:"task_id"`
	EstimatedStart time.Time `json:"estimated_start"`
	EstimatedEnd   time.Time `json:"estimated_end"`
	SlackHours     float64   `json:"slack_hours"`
	CriticalPath   bool      `json:"critical_path"`
	InCycle        bool      `json:"in_cycle"`
}

// OrchestrationMetrics summarize one orchestration run.
type OrchestrationMetrics struct {
	TaskCount          int     `json:"task_count"`
	CycleCount         int     `json:"cycle_count"`
	CriticalPathLength int     `json:"critical_path_length"`
	TotalDurationHours float64 `json:"total_duration_hours"`
	ElapsedMillis      int64   `json:"elapsed_ms"`
}

// OrchestrationResult is the full pipeline output.
type OrchestrationResult struct {
	ScheduledTasks      []ScheduledTask      `json:"scheduled_tasks"`
	CriticalPath        []uuid.UUID          `json:"critical_path"`
	EstimatedCompletion time.Time            `json:"estimated_completion"`
	Warnings            []Warning            `json:"warnings,omitempty"`
	Errors              []string             `json:"errors,omitempty"`
	Metrics             OrchestrationMetrics `json:"metrics"`
	Success             bool                 `json:"success"`
}

// StatusUpdateResult reports the effect of one status transition.
type StatusUpdateResult struct {
	TaskID          uuid.UUID            `json:"task_id"`
	NewStatus       string               `json:"new_status"`
	TriggeredTasks  []uuid.UUID          `json:"triggered_tasks,omitempty"`
	UpdatedSchedule *OrchestrationResult `json:"updated_schedule,omitempty"`
	Warnings        []Warning            `json:"warnings,omitempty"`
	Success         bool                 `json:"success"`
}
