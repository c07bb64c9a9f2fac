package features

import "math"

// minSigma floors the rolling standard deviation to avoid divide-by-
// zero and to give a defined (zero) output on a degenerate window,
// per spec §4.6.3.
const minSigma = 1e-9

// RollingZScore maintains count ≤ W, a running sum and running
// sum-of-squares over the last W samples in insertion order. Update
// adjusts the running statistics by delta (not by recomputation), but
// remains bit-equivalent to recomputing from the window's current
// contents up to floating-point order (spec §4.6.3's invariant).
type RollingZScore struct {
	window []float64
	cap    int
	head   int
	count  int
	sum    float64
	sumSq  float64
}

// NewRollingZScore builds a z-score tracker over the last w samples.
func NewRollingZScore(w int) *RollingZScore {
	return &RollingZScore{window: make([]float64, w), cap: w}
}

// Update appends x, evicting the oldest sample if the window is at
// capacity, and returns (x − μ) / σ computed from the window's
// contents *after* the append (including x itself), with σ floored at
// minSigma. The very first sample (count transitions 0→1) always
// yields 0 since a single-point window has no spread to normalize
// against.
func (z *RollingZScore) Update(x float64) float64 {
	if z.count < z.cap {
		z.window[(z.head+z.count)%z.cap] = x
		z.count++
		z.sum += x
		z.sumSq += x * x
	} else {
		old := z.window[z.head]
		z.window[z.head] = x
		z.head = (z.head + 1) % z.cap
		z.sum += x - old
		z.sumSq += x*x - old*old
	}

	if z.count < 2 {
		return 0
	}
	mean := z.sum / float64(z.count)
	variance := z.sumSq/float64(z.count) - mean*mean
	if variance < 0 {
		variance = 0 // floating-point drift guard; true variance is never negative
	}
	sigma := math.Sqrt(variance)
	if sigma < minSigma {
		sigma = minSigma
	}
	return (x - mean) / sigma
}

// Count reports how many samples are currently in the window.
func (z *RollingZScore) Count() int { return z.count }
