package risk

import (
	"sort"

	"github.com/taskloom/backend/internal/models"
)

// maxRecommendations caps the advice list per prediction.
const maxRecommendations = 5

// factorThreshold is the component score above which its recommendation
// fires.
const factorThreshold = 60

type trigger struct {
	severity float64
	text     string
}

// recommend renders threshold-triggered, templated recommendations ordered
// by the severity of the triggering factor.
func recommend(comp models.RiskComponents, prob float64) []string {
	var triggers []trigger
	add := func(score float64, text string) {
		if score >= factorThreshold {
			triggers = append(triggers, trigger{severity: score, text: text})
		}
	}

	add(comp.ResourceConstraints, "free up capacity: reassign lower-priority work away from the contended resources")
	add(comp.DependencyComplexity, "decompose the task or parallelize prerequisites to shorten the dependency chain")
	add(comp.SkillGaps, "pair a specialist with the assignee or schedule targeted upskilling before the task starts")
	add(comp.WorkloadImbalance, "rebalance assignments: utilization varies widely across the team")
	add(comp.ExternalDependencies, "engage the external party early and agree an explicit SLA for their deliverable")
	add(comp.HistoricalPattern, "pad the estimate: this category has a history of late delivery at this complexity")
	if prob >= 85 {
		triggers = append(triggers, trigger{severity: prob, text: "escalate: delay risk is critical, add a daily checkpoint until the task completes"})
	}

	sort.SliceStable(triggers, func(i, j int) bool { return triggers[i].severity > triggers[j].severity })
	if len(triggers) > maxRecommendations {
		triggers = triggers[:maxRecommendations]
	}
	out := make([]string, len(triggers))
	for i, t := range triggers {
		out[i] = t.text
	}
	return out
}
