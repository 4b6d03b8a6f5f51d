package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
)

// RiskPoint is an evaluated sample on or near a route.
type RiskPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	RiskValue float64 `json:"risk_value"`
}

// HighRiskArea marks a sampled point whose local density exceeded the
// hotspot threshold. Immutable after creation; reported in path order.
type HighRiskArea struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	RiskLevel        string  `json:"risk_level"` // "medium" or "high"
	IncidentCount    int     `json:"incident_count"`
	DominantCategory string  `json:"dominant_category"`
	Description      string  `json:"description"`
}

// CrimeStatistics aggregates incident exposure over a whole route.
type CrimeStatistics struct {
	// TotalIncidents counts distinct incidents within AreaRadius of any
	// path point. An incident near two path points counts once.
	TotalIncidents int `json:"total_incidents"`
	// ByCategory breaks the distinct incidents down by category.
	ByCategory map[string]int `json:"by_category"`
	// HighDensityPoints counts path points whose local density exceeds the
	// hotspot threshold. Every path point is evaluated, not just samples.
	HighDensityPoints int `json:"high_density_points"`
}

// RouteSafety is the computed safety annotation for one path.
type RouteSafety struct {
	Score         float64         `json:"score"`
	Grade         string          `json:"grade"`
	SampleCount   int             `json:"sample_count"`
	HighRiskAreas []HighRiskArea  `json:"high_risk_areas"`
	Statistics    CrimeStatistics `json:"crime_statistics"`
}

// Annotate walks a route's coordinate sequence and produces its safety
// fields. The path is read-only; degenerate paths (zero or one coordinate)
// yield an empty high-risk list and a score derived from whatever single
// sample exists. The context is checked between path points so a large
// analysis can be cancelled per-request.
func (a *Analyzer) Annotate(ctx context.Context, path []Point) (*RouteSafety, error) {
	samples, err := a.sampleScores(ctx, path)
	if err != nil {
		return nil, err
	}

	areas, err := a.detectHighRisk(ctx, path)
	if err != nil {
		return nil, err
	}

	stats, err := a.routeStatistics(ctx, path)
	if err != nil {
		return nil, err
	}

	score := routeScore(samples, a.snap.Len())
	return &RouteSafety{
		Score:         score,
		Grade:         Grade(score),
		SampleCount:   len(samples),
		HighRiskAreas: areas,
		Statistics:    stats,
	}, nil
}

// sampleScores evaluates density at every ScoreStride-th coordinate. Short
// paths are sampled in full so a two-block walk is not scored from a single
// endpoint.
func (a *Analyzer) sampleScores(ctx context.Context, path []Point) ([]float64, error) {
	stride := a.params.ScoreStride
	if len(path) < stride {
		stride = 1
	}

	var samples []float64
	for i := 0; i < len(path); i += stride {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "safety: route sampling cancelled")
		}
		samples = append(samples, a.DensityAt(path[i].Lat, path[i].Lon))
	}
	return samples, nil
}

// detectHighRisk samples the path at the coarser HotspotStride and emits a
// HighRiskArea wherever density exceeds the hotspot threshold. Results stay
// in ascending sample-index order. A path with fewer than two coordinates
// has no segments, so no high-risk areas.
func (a *Analyzer) detectHighRisk(ctx context.Context, path []Point) ([]HighRiskArea, error) {
	if len(path) < 2 {
		return nil, nil
	}

	var areas []HighRiskArea
	for i := 0; i < len(path); i += a.params.HotspotStride {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "safety: hotspot detection cancelled")
		}

		p := path[i]
		density := a.DensityAt(p.Lat, p.Lon)
		if density <= a.params.HotspotThreshold {
			continue
		}

		level := "medium"
		if density > a.params.HighRiskThreshold {
			level = "high"
		}

		nearby := a.snap.Nearby(p.Lat, p.Lon, a.params.AreaRadius)
		dominant := dominantCategory(nearby)

		areas = append(areas, HighRiskArea{
			Lat:              p.Lat,
			Lng:              p.Lon,
			RiskLevel:        level,
			IncidentCount:    len(nearby),
			DominantCategory: dominant,
			Description:      describeArea(level, len(nearby), dominant),
		})
	}
	return areas, nil
}

// routeStatistics aggregates exposure over every path point. Incidents are
// deduplicated by batch index so one incident near several path points
// counts once.
func (a *Analyzer) routeStatistics(ctx context.Context, path []Point) (CrimeStatistics, error) {
	stats := CrimeStatistics{ByCategory: map[string]int{}}
	seen := make(map[int]struct{})
	records := a.snap.Records()

	for _, p := range path {
		if err := ctx.Err(); err != nil {
			return CrimeStatistics{}, eris.Wrap(err, "safety: route statistics cancelled")
		}

		for _, idx := range a.snap.NearbyIndices(p.Lat, p.Lon, a.params.AreaRadius) {
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			stats.TotalIncidents++
			stats.ByCategory[records[idx].Category]++
		}

		if a.DensityAt(p.Lat, p.Lon) > a.params.HotspotThreshold {
			stats.HighDensityPoints++
		}
	}
	return stats, nil
}

// dominantCategory returns the most frequent category among nearby records.
// Ties go to the category seen first in the batch, which is the order the
// records slice arrives in.
func dominantCategory(records []incident.Record) string {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.Category]++
	}

	best := ""
	bestCount := 0
	visited := make(map[string]bool)
	for _, rec := range records {
		if visited[rec.Category] {
			continue
		}
		visited[rec.Category] = true
		if counts[rec.Category] > bestCount {
			best = rec.Category
			bestCount = counts[rec.Category]
		}
	}
	return best
}

func describeArea(level string, count int, dominant string) string {
	desc := fmt.Sprintf("%d incidents reported nearby", count)
	if dominant != "" {
		desc += fmt.Sprintf(", mostly %s", strings.ToLower(dominant))
	}
	if level == "high" {
		desc = "High risk: " + desc
	} else {
		desc = "Elevated risk: " + desc
	}
	return desc
}
