package safety

import "math"

// DefaultScore is returned when there are no samples or no incidents loaded.
// "Reasonably safe, insufficient data" rather than a spurious perfect score.
const DefaultScore = 85.0

// Grade maps a 0-100 safety score to a letter grade. Thresholds are shared
// between area and route scoring; inclusive on the lower bound, contiguous,
// and exhaustive.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// routeScore converts sampled risk values into a 0-100 safety score. The
// average drives the baseline while the capped maximum adds a hotspot
// penalty; the caps keep a single extreme cluster from saturating the score.
func routeScore(samples []float64, incidentsLoaded int) float64 {
	if len(samples) == 0 || incidentsLoaded == 0 {
		return DefaultScore
	}

	var sum, max float64
	for _, v := range samples {
		sum += v
		if v > max {
			max = v
		}
	}
	avg := sum / float64(len(samples))

	normAvg := math.Min(avg/20, 5)
	normMax := math.Min(max/50, 4)

	raw := 100 - (normAvg*10 + normMax*15)
	return clampScore(raw)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
