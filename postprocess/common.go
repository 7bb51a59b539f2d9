package postprocess

import (
	"github.com/chewxy/math32"
)

// sigmoid maps a logit to a probability
func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + math32.Exp(-x))
}

// unsigmoid converts a probability into log-odds space, the domain the heat
// map is output in
func unsigmoid(p float32) float32 {
	return math32.Log(p / (1.0 - p))
}

// clamp restricts the value x to be within the range min and max
func clamp(val, min, max float32) float32 {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}

// normalizeAngle wraps an angle into the range (-Pi, Pi]
func normalizeAngle(r float32) float32 {

	for r > math32.Pi {
		r -= 2 * math32.Pi
	}

	for r <= -math32.Pi {
		r += 2 * math32.Pi
	}

	return r
}

// isFinite reports whether f is neither NaN nor infinite
func isFinite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}
