package scoring

import "math"

// example pairs a normalized feature vector with the observed outcome
// (0-1, e.g. delivered-on-time share or reviewer-ranked urgency).
type example struct {
	features [numFeatures]float64
	outcome  float64
}

// RecordOutcome feeds one (task features, actual outcome) observation into
// the training buffer. The task is re-extracted and normalized under the
// current statistics so examples stay comparable. The buffer is bounded;
// the oldest examples fall off first.
func (s *Scorer) RecordOutcome(raw map[string]float64, outcome float64) {
	if outcome < 0 {
		outcome = 0
	}
	if outcome > 1 {
		outcome = 1
	}
	var vec [numFeatures]float64
	for i, name := range featureNames {
		vec[i] = raw[name]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.examples = append(s.examples, example{features: vec, outcome: outcome})
	if max := s.learning.MaxExamples; max > 0 && len(s.examples) > max {
		s.examples = s.examples[len(s.examples)-max:]
	}
}

// Update runs a bounded gradient-descent pass over the accumulated examples
// and adopts the new weights only when they reduce mean-squared error on the
// held-out tail. Returns true when new weights were adopted.
func (s *Scorer) Update() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	holdout := int(float64(len(s.examples)) * s.learning.HoldoutRatio)
	if holdout < 1 || len(s.examples)-holdout < 2 {
		return false
	}
	train := s.examples[:len(s.examples)-holdout]
	held := s.examples[len(s.examples)-holdout:]

	weights := s.weights
	bias := s.bias
	lr := s.learning.LearningRate

	for iter := 0; iter < s.learning.MaxIterations; iter++ {
		var gradW [numFeatures]float64
		var gradB float64
		for _, ex := range train {
			logit := bias
			for i, w := range weights {
				logit += w * ex.features[i]
			}
			pred := sigmoid(logit)
			// d(MSE)/d(logit) for one example.
			d := 2 * (pred - ex.outcome) * pred * (1 - pred)
			gradB += d
			for i := range gradW {
				gradW[i] += d * ex.features[i]
			}
		}
		n := float64(len(train))
		bias -= lr * gradB / n
		for i := range weights {
			weights[i] -= lr * gradW[i] / n
		}
	}

	before := mse(held, s.weights, s.bias)
	after := mse(held, weights, bias)
	if after >= before {
		if s.logger != nil {
			s.logger.Info("priority weight update rejected", "holdout_mse_before", before, "holdout_mse_after", after)
		}
		return false
	}
	s.weights = weights
	s.bias = bias
	if s.logger != nil {
		s.logger.Info("priority weights updated", "holdout_mse_before", before, "holdout_mse_after", after)
	}
	return true
}

func mse(exs []example, weights [numFeatures]float64, bias float64) float64 {
	if len(exs) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, ex := range exs {
		logit := bias
		for i, w := range weights {
			logit += w * ex.features[i]
		}
		diff := sigmoid(logit) - ex.outcome
		sum += diff * diff
	}
	return sum / float64(len(exs))
}
