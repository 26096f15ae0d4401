package scoring

import "math"

// normalizer keeps running per-feature statistics and produces z-scores.
// When a feature's variance is still zero it falls back to min-max
// normalization against the tracked range, and to 0 when no range exists.
// Not safe for concurrent use; the owning scorer serializes access.
type normalizer struct {
	count float64
	mean  [numFeatures]float64
	m2    [numFeatures]float64 // sum of squared deviations (Welford)
	min   [numFeatures]float64
	max   [numFeatures]float64
}

func newNormalizer() *normalizer {
	n := &normalizer{}
	for i := range n.min {
		n.min[i] = math.Inf(1)
		n.max[i] = math.Inf(-1)
	}
	return n
}

// observe folds one raw vector into the running statistics.
func (n *normalizer) observe(v [numFeatures]float64) {
	n.count++
	for i := range v {
		delta := v[i] - n.mean[i]
		n.mean[i] += delta / n.count
		n.m2[i] += delta * (v[i] - n.mean[i])
		if v[i] < n.min[i] {
			n.min[i] = v[i]
		}
		if v[i] > n.max[i] {
			n.max[i] = v[i]
		}
	}
}

// normalize maps a raw vector through the current statistics. The transform
// is monotonically non-decreasing per feature, which is what preserves the
// scorer's deadline-monotonicity guarantee.
func (n *normalizer) normalize(v [numFeatures]float64) [numFeatures]float64 {
	var out [numFeatures]float64
	for i := range v {
		out[i] = n.normalizeOne(i, v[i])
	}
	return out
}

func (n *normalizer) normalizeOne(i int, x float64) float64 {
	if n.count >= 2 {
		if std := math.Sqrt(n.m2[i] / (n.count - 1)); std > 0 {
			return (x - n.mean[i]) / std
		}
	}
	// Zero variance: min-max against the tracked range.
	if n.max[i] > n.min[i] {
		r := (x - n.min[i]) / (n.max[i] - n.min[i])
		if r < 0 {
			return 0
		}
		if r > 1 {
			return 1
		}
		return r
	}
	return 0
}
