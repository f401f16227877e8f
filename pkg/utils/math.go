package utils

import "math"

// minNorm keeps NormalizeL2 from dividing by zero.
const minNorm = 1e-9

// NormalizeL2 scales x in place to unit L2 norm. A zero vector stays zero.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < minNorm {
		norm = minNorm
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / norm)
	}
}

// Dot returns the inner product of a and b over their common prefix,
// accumulated in float64.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
