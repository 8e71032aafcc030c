package reembed

import "math"

// NormalizeVector returns v scaled to unit length. A zero or empty vector
// is returned as a zero vector of the same length.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
