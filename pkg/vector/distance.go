package vector

import "math"

// CosineSimilarity returns dot(a,b) / (|a|*|b|).
//
// Degenerate inputs are scored, not rejected: an empty vector, a length
// mismatch, a zero-magnitude vector or a non-finite component all yield 0.
// Documents embedded by different models can therefore share a shop without
// breaking a query.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	denom := math.Sqrt(na2) * math.Sqrt(nb2)
	if denom == 0 || !finite(dot) || !finite(denom) {
		return 0
	}
	return dot / denom
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
