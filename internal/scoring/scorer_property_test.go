package scoring

import (
	"testing"

	"pgregory.net/rapid"
)

// For any pair of otherwise identical tasks, the one with the closer deadline
// never scores lower. Each score uses a fresh scorer warmed with the same
// samples so the normalization statistics are identical.
func TestPropertyDeadlineMonotonicity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d1 := rapid.Float64Range(-30, 60).Draw(rt, "sooner")
		gap := rapid.Float64Range(0, 30).Draw(rt, "gap")
		d2 := d1 + gap

		compliance := rapid.Bool().Draw(rt, "compliance")

		scoreAt := func(days float64) float64 {
			s := newTestScorer()
			warmup(s)
			task := scoringTask(days)
			task.ComplianceRequired = compliance
			return s.Score(task, &Context{Now: scoreNow}).Score
		}

		sooner := scoreAt(d1)
		later := scoreAt(d2)
		if sooner < later {
			rt.Errorf("due in %.2f days scored %.4f, below %.4f for %.2f days", d1, sooner, later, d2)
		}
		if sooner < 0 || sooner > 100 || later < 0 || later > 100 {
			rt.Errorf("scores out of range: %.4f %.4f", sooner, later)
		}
	})
}
