package bleed

import "math"

// WindowSize converts a smoothing duration into a sample count: round(seconds*fps), at least 1.
// Halves round to even.
func WindowSize(smoothSeconds, fps float64) int {
	w := int(math.RoundToEven(smoothSeconds * fps))
	if w < 1 {
		return 1
	}
	return w
}

// Smooth returns the centered moving average of values. Each output i averages
// values[max(0, i-w/2) : min(n, i+w/2+1)], so the window shrinks at both ends.
// A window of 1 or less returns a copy of the input.
func Smooth(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if window <= 1 {
		copy(out, values)
		return out
	}
	half := window / 2
	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > n {
			hi = n
		}
		sum := 0.0
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
