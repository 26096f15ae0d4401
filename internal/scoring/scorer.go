package scoring

import (
	"log/slog"
	"math"
	"sync"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/history"
	"github.com/taskloom/backend/internal/models"
)

// Scorer computes 0-100 priority scores. Construct once and share; all
// methods are safe for concurrent use.
type Scorer struct {
	mu       sync.Mutex
	weights  [numFeatures]float64
	bias     float64
	norm     *normalizer
	hist     history.Provider
	learning config.LearningParams
	baseConf float64
	examples []example
	logger   *slog.Logger
}

func NewScorer(cfg *config.Config, hist history.Provider, logger *slog.Logger) *Scorer {
	s := &Scorer{
		norm:     newNormalizer(),
		hist:     hist,
		learning: cfg.Learning,
		baseConf: cfg.Thresholds.BaseConfidence,
		logger:   logger,
	}
	s.weights = weightsFromConfig(cfg.Priority)
	s.bias = cfg.Priority.Bias
	return s
}

func weightsFromConfig(w config.PriorityWeights) [numFeatures]float64 {
	var out [numFeatures]float64
	out[fDaysUntilDeadline] = w.DaysUntilDeadline
	out[fDaysSinceCreation] = w.DaysSinceCreation
	out[fBusinessHours] = w.BusinessHours
	out[fComplexity] = w.Complexity
	out[fCategoryWeight] = w.CategoryWeight
	out[fDependencyCount] = w.DependencyCount
	out[fDependentCount] = w.DependentCount
	out[fEstimatedHours] = w.EstimatedHours
	out[fBusinessValue] = w.BusinessValue
	out[fRiskLevel] = w.RiskLevel
	out[fCompliance] = w.Compliance
	out[fClientTier] = w.ClientTier
	out[fAssigneeWorkload] = w.AssigneeWorkload
	out[fSkillMatch] = w.SkillMatch
	out[fHistoricalPerf] = w.HistoricalPerf
	out[fTeamCapacity] = w.TeamCapacity
	out[fAvgCompletionHours] = w.AvgCompletionHours
	out[fSuccessRate] = w.SuccessRate
	out[fReworkRate] = w.ReworkRate
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Score computes the task's priority from the given context snapshot. The
// raw vector is normalized against statistics that do not yet include it,
// then folded into the running stats afterwards.
func (s *Scorer) Score(task *models.Task, ctx *Context) *models.PriorityScore {
	raw := extract(task, ctx, s.hist)

	s.mu.Lock()
	norm := s.norm.normalize(raw)
	logit := s.bias
	for i, w := range s.weights {
		logit += w * norm[i]
	}
	s.norm.observe(raw)
	s.mu.Unlock()

	score := sigmoid(logit) * 100
	score = s.escalate(score, raw)

	factors := make(map[string]float64, numFeatures)
	for i, name := range featureNames {
		factors[name] = norm[i]
	}

	return &models.PriorityScore{
		TaskID:     task.ID,
		Score:      score,
		Confidence: models.ConfidenceBand(s.confidence(raw)),
		Factors:    factors,
		ComputedAt: ctx.now(),
	}
}

// escalate applies the hard floors the linear model must not undercut.
// Overdue compliance work is always in the critical bracket. The floor only
// raises scores, so deadline monotonicity is preserved.
func (s *Scorer) escalate(score float64, raw [numFeatures]float64) float64 {
	if raw[fDaysUntilDeadline] < 0 && raw[fCompliance] > 0 && score < 85 {
		return 85
	}
	return score
}

// confidence derives a 0-1 confidence from the base value with edge-case
// penalties and evidence bonuses.
func (s *Scorer) confidence(raw [numFeatures]float64) float64 {
	conf := s.baseConf
	if raw[fDaysUntilDeadline] < 0 {
		conf -= 0.10 // overdue estimates are unreliable
	}
	if raw[fDependencyCount] > 10 {
		conf -= 0.10
	}
	if raw[fCompliance] > 0 {
		conf += 0.05
	}
	if raw[fSuccessRate] > 0.90 {
		conf += 0.05
	}
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
