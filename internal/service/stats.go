package service

import (
	"math"
	"sort"
)

// robustZThreshold is the score at which a point counts as an outlier.
const robustZThreshold = 3.0

// average returns nil for an empty slice.
func average(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// percentile picks sorted[min(n-1, floor(p*n))]; nil when empty.
func percentile(sorted []int64, p float64) *int64 {
	n := len(sorted)
	if n == 0 {
		return nil
	}
	idx := int(math.Floor(p * float64(n)))
	if idx > n-1 {
		idx = n - 1
	}
	v := sorted[idx]
	return &v
}

// robustZScores scores values against the upper median. The dispersion is
// the mean absolute deviation from that median, replaced by 1 when zero.
func robustZScores(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	dev := 0.0
	for _, v := range values {
		dev += math.Abs(v - median)
	}
	mad := dev / float64(len(values))
	if mad == 0 {
		mad = 1
	}

	z := make([]float64, len(values))
	for i, v := range values {
		z[i] = (v - median) / (1.4826 * mad)
	}
	return z
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
