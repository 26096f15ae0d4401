package optimize

import (
	"math"
	"testing"
	"time"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// ---------------------------------------------------------------------------
// 1. TestSkillTermConfidenceAndStaleness
// ---------------------------------------------------------------------------

func TestSkillTermConfidenceAndStaleness(t *testing.T) {
	task := optTask(8, models.PriorityMedium)
	near := func(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

	fresh := optWorker("fresh", 80, 10)
	if got := skillTerm(task, fresh, optNow); !near(got, 80) {
		t.Fatalf("full-confidence fresh rating = %f, want 80", got)
	}

	// Confidence 0 discounts the rating to 70%.
	half := optWorker("half", 80, 10)
	half.Skills["backend"] = models.SkillRating{Score: 80, Confidence: 0, AssessedAt: optNow}
	if got := skillTerm(task, half, optNow); !near(got, 56) {
		t.Fatalf("zero-confidence rating = %f, want 56", got)
	}

	// A rating older than the staleness window loses another 10%.
	stale := optWorker("stale", 80, 10)
	stale.Skills["backend"] = models.SkillRating{Score: 80, Confidence: 1, AssessedAt: optNow.Add(-200 * 24 * time.Hour)}
	if got := skillTerm(task, stale, optNow); !near(got, 72) {
		t.Fatalf("stale rating = %f, want 72", got)
	}

	// Unknown category scores zero.
	task2 := optTask(8, models.PriorityMedium)
	task2.Category = "design"
	if got := skillTerm(task2, fresh, optNow); got != 0 {
		t.Fatalf("unrated category = %f, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// 2. TestWorkloadTerm
// ---------------------------------------------------------------------------

func TestWorkloadTerm(t *testing.T) {
	w := optWorker("w", 80, 50)
	if got := workloadTerm(w); got != 100 {
		t.Fatalf("below optimal = %f, want 100", got)
	}
	w.CapacityUtilization = 90 // halfway between optimal 80 and full
	if got := workloadTerm(w); got != 50 {
		t.Fatalf("halfway past optimal = %f, want 50", got)
	}
	w.CapacityUtilization = 100
	if got := workloadTerm(w); got != 0 {
		t.Fatalf("saturated = %f, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// 3. TestAvailabilityAndPreferenceTerms
// ---------------------------------------------------------------------------

func TestAvailabilityAndPreferenceTerms(t *testing.T) {
	w := optWorker("w", 80, 10)
	if got := availabilityTerm(w, optNow); got != 100 {
		t.Fatalf("no windows means always available, got %f", got)
	}

	w.Availability = []models.AvailabilityWindow{{Start: optNow.Add(time.Hour), End: optNow.Add(2 * time.Hour)}}
	if got := availabilityTerm(w, optNow); got != 0 {
		t.Fatalf("outside the window = %f, want 0", got)
	}
	if got := availabilityTerm(w, optNow.Add(90*time.Minute)); got != 100 {
		t.Fatalf("inside the window = %f, want 100", got)
	}

	task := optTask(8, models.PriorityMedium)
	if got := preferenceTerm(task, w); got != 50 {
		t.Fatalf("neutral preference = %f, want 50", got)
	}
	w.Preferences.PreferredCategories = []string{"backend"}
	if got := preferenceTerm(task, w); got != 100 {
		t.Fatalf("preferred category = %f, want 100", got)
	}
	w.Preferences = models.WorkerPreferences{AvoidCategories: []string{"backend"}}
	if got := preferenceTerm(task, w); got != 0 {
		t.Fatalf("avoided category = %f, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// 4. TestCapacityDemand
// ---------------------------------------------------------------------------

func TestCapacityDemand(t *testing.T) {
	if got := CapacityDemand(&models.Task{EstimatedHours: 20}); got != 50 {
		t.Fatalf("20h = %f points, want 50", got)
	}
	if got := CapacityDemand(&models.Task{EstimatedHours: 80}); got != 100 {
		t.Fatalf("demand must cap at 100, got %f", got)
	}
}

// ---------------------------------------------------------------------------
// 5. TestCompositeWeightsBlend
// ---------------------------------------------------------------------------

func TestCompositeWeightsBlend(t *testing.T) {
	weights := config.Default().Composite
	task := optTask(8, models.PriorityMedium)
	w := optWorker("w", 80, 50)

	score, terms := Composite(task, w, weights, optNow)
	want := terms.SkillMatch*weights.SkillMatch +
		terms.Availability*weights.Availability +
		terms.Performance*weights.Performance +
		terms.Workload*weights.Workload +
		terms.Preference*weights.Preference
	if score != want {
		t.Fatalf("score %f does not match the weighted terms %f", score, want)
	}
	if score < 0 || score > 100 {
		t.Fatalf("score %f out of range", score)
	}
}
