package scoring

import "math"

// logistic maps a raw weighted sum onto (0,1), centered on the midpoint.
func logistic(raw float64, l Logistic) float64 {
	return 1.0 / (1.0 + math.Exp(-l.Steepness*(raw-l.Midpoint)))
}

// clamp01 pins v into [0,1]. NaN passes through so the caller can reject it.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
