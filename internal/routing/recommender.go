// Package routing ranks candidate workers for a single task using the same
// composite score the assignment optimizer uses.
package routing

import (
	"log/slog"
	"sort"
	"time"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
	"github.com/taskloom/backend/internal/optimize"
)

// topK is how many ranked candidates a recommendation carries.
const topK = 3

// Recommender produces per-task top-K worker rankings. Stateless and safe
// for concurrent use.
type Recommender struct {
	weights config.CompositeWeights
	logger  *slog.Logger
}

func NewRecommender(cfg *config.Config, logger *slog.Logger) *Recommender {
	return &Recommender{weights: cfg.Composite, logger: logger}
}

type scored struct {
	worker *models.WorkerProfile
	score  float64
	terms  optimize.Terms
}

// Recommend scores every available worker for the task and returns the top
// three with generated reasoning. Confidence blends the mean candidate score
// with the spread: a tight, high-scoring field is a confident recommendation.
func (r *Recommender) Recommend(task *models.Task, workers []*models.WorkerProfile, now time.Time) (*models.RoutingRecommendation, error) {
	if task == nil {
		return nil, &models.ValidationError{Field: "task", Reason: "task is required"}
	}

	var candidates []scored
	for _, w := range workers {
		if !w.AvailableAt(now) {
			continue
		}
		score, terms := optimize.Composite(task, w, r.weights, now)
		candidates = append(candidates, scored{worker: w, score: score, terms: terms})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	n := len(candidates)
	if n > topK {
		candidates = candidates[:topK]
	}

	rec := &models.RoutingRecommendation{
		TaskID:     task.ID,
		Confidence: confidence(candidates),
		ComputedAt: now,
	}
	for _, c := range candidates {
		rec.Candidates = append(rec.Candidates, models.RankedWorker{
			WorkerID: c.worker.ID,
			Score:    c.score,
			Reasons:  reasonsFor(c.terms),
		})
	}
	if r.logger != nil && len(rec.Candidates) == 0 {
		r.logger.Warn("no available workers to rank", "task_id", task.ID)
	}
	return rec, nil
}

// confidence = min(0.95, mean·0.8 + (1 − variance)·0.2), with scores scaled
// to 0-1 first.
func confidence(candidates []scored) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += c.score / 100
	}
	mean := sum / float64(len(candidates))
	var sq float64
	for _, c := range candidates {
		d := c.score/100 - mean
		sq += d * d
	}
	variance := sq / float64(len(candidates))

	conf := mean*0.8 + (1-variance)*0.2
	if conf > 0.95 {
		return 0.95
	}
	if conf < 0 {
		return 0
	}
	return conf
}

func reasonsFor(t optimize.Terms) []string {
	var out []string
	if t.SkillMatch > 80 {
		out = append(out, "excellent skill match")
	} else if t.SkillMatch >= 60 {
		out = append(out, "good skill match")
	} else {
		out = append(out, "partial skill match")
	}
	if t.Availability > 90 {
		out = append(out, "immediately available")
	}
	if t.Workload > 80 {
		out = append(out, "ample capacity headroom")
	} else if t.Workload < 30 {
		out = append(out, "limited capacity headroom")
	}
	if t.Performance > 80 {
		out = append(out, "strong recent performance")
	}
	if t.Preference > 80 {
		out = append(out, "preferred task category")
	}
	return out
}
