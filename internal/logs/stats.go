package logs

import (
	"math"
	"sort"
)

// Stats summarizes a series of measurements.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	StdDev float64 `json:"std_dev"`
}

// computeStats returns descriptive statistics for values. A nil or empty
// input yields the zero Stats.
func computeStats(values []float64) Stats {
	n := len(values)
	if n == 0 {
		return Stats{}
	}

	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	avg := sum / float64(n)

	variance := 0.0
	for _, v := range sorted {
		variance += (v - avg) * (v - avg)
	}
	stddev := 0.0
	if n > 1 {
		stddev = math.Sqrt(variance / float64(n-1))
	}

	return Stats{
		Count:  n,
		Min:    round2(sorted[0]),
		Max:    round2(sorted[n-1]),
		Avg:    round2(avg),
		Median: round2(medianOfSorted(sorted)),
		P95:    round2(percentileOfSorted(sorted, 95)),
		P99:    round2(percentileOfSorted(sorted, 99)),
		StdDev: round2(stddev),
	}
}

func medianOfSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentileOfSorted uses linear interpolation between closest ranks.
func percentileOfSorted(sorted []float64, pct float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(n-1)
	lower := int(rank)
	if lower >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
