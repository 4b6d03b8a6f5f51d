package safety

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
)

func snapshotOf(records ...incident.Record) *incident.Snapshot {
	return incident.BuildFromRecords(records, nil)
}

func crimeAt(lat, lon float64, category string) incident.Record {
	return incident.Record{Latitude: lat, Longitude: lon, Category: category}
}

// straightPath returns n points spaced far enough apart that incident
// clusters near one point never bleed into another's radius.
func straightPath(n int) []Point {
	path := make([]Point, n)
	for i := range path {
		path[i] = Point{Lat: 40.70 + float64(i)*0.02, Lon: -74.00}
	}
	return path
}

func clusterAt(lat, lon float64, category string, n int) []incident.Record {
	out := make([]incident.Record, n)
	for i := range out {
		out[i] = crimeAt(lat, lon, category)
	}
	return out
}

func TestAnnotateEmptyBatchReturnsDefault(t *testing.T) {
	a := NewAnalyzer(snapshotOf(), DefaultParams())

	rs, err := a.Annotate(context.Background(), straightPath(20))
	require.NoError(t, err)

	assert.Equal(t, DefaultScore, rs.Score)
	assert.Equal(t, "B", rs.Grade)
	assert.Empty(t, rs.HighRiskAreas)
	assert.Zero(t, rs.Statistics.TotalIncidents)
}

func TestAnnotateDeterministic(t *testing.T) {
	records := append(
		clusterAt(40.70, -74.00, "Assault", 3),
		clusterAt(40.72, -74.00, "Theft", 4)...,
	)
	a := NewAnalyzer(snapshotOf(records...), DefaultParams())
	path := straightPath(17)

	first, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)
	second, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnnotateShortPathSamplesAllPoints(t *testing.T) {
	// Three points, one incident cluster at the middle point. With stride 5
	// a path this short is sampled in full, so the cluster must register.
	path := []Point{
		{Lat: 40.70, Lon: -74.00},
		{Lat: 40.72, Lon: -74.00},
		{Lat: 40.74, Lon: -74.00},
	}
	a := NewAnalyzer(snapshotOf(clusterAt(40.72, -74.00, "Assault", 3)...), DefaultParams())

	rs, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.SampleCount)
	assert.Less(t, rs.Score, 100.0)
}

func TestAnnotateDegenerateInputs(t *testing.T) {
	// Weight-40 cluster: hot enough to trip hotspot detection on any
	// sampled point of a real path.
	a := NewAnalyzer(snapshotOf(clusterAt(40.70, -74.00, "Assault", 5)...), DefaultParams())

	// Zero coordinates: no samples, default score, empty high-risk list.
	rs, err := a.Annotate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultScore, rs.Score)
	assert.Empty(t, rs.HighRiskAreas)

	// One coordinate sitting on the cluster: the score comes from the single
	// sample, but a path without segments has no high-risk areas.
	rs, err = a.Annotate(context.Background(), []Point{{Lat: 40.70, Lon: -74.00}})
	require.NoError(t, err)
	assert.Equal(t, 1, rs.SampleCount)
	assert.Less(t, rs.Score, 100.0)
	assert.Empty(t, rs.HighRiskAreas)
}

func TestHighRiskDetection(t *testing.T) {
	// 11 points: hotspot sampling hits indices 0 and 10. A weight-40
	// cluster sits at index 0 (5 assaults x 8), exceeding both the hotspot
	// threshold (15) and the high boundary (30). Index 10 is clean.
	path := straightPath(11)
	records := clusterAt(path[0].Lat, path[0].Lon, "Assault", 5)
	a := NewAnalyzer(snapshotOf(records...), DefaultParams())

	rs, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, rs.HighRiskAreas, 1)
	area := rs.HighRiskAreas[0]
	assert.Equal(t, "high", area.RiskLevel)
	assert.Equal(t, path[0].Lat, area.Lat)
	assert.Equal(t, path[0].Lon, area.Lng)
	assert.Equal(t, 5, area.IncidentCount)
	assert.Equal(t, "Assault", area.DominantCategory)
}

func TestHighRiskMediumLevel(t *testing.T) {
	// Weight 16: above the 15 threshold, at or below the 30 boundary.
	path := straightPath(11)
	records := clusterAt(path[0].Lat, path[0].Lon, "Assault", 2)     // 16
	a := NewAnalyzer(snapshotOf(records...), DefaultParams())

	rs, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, rs.HighRiskAreas, 1)
	assert.Equal(t, "medium", rs.HighRiskAreas[0].RiskLevel)
}

func TestHighRiskAreasInPathOrder(t *testing.T) {
	path := straightPath(21) // hotspot samples at indices 0, 10, 20
	records := append(
		clusterAt(path[0].Lat, path[0].Lon, "Burglary", 4), // weight 20, medium
		clusterAt(path[20].Lat, path[20].Lon, "Murder", 6)..., // weight 48, high
	)
	a := NewAnalyzer(snapshotOf(records...), DefaultParams())

	rs, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)

	// Path order, not severity order: the medium area comes first.
	require.Len(t, rs.HighRiskAreas, 2)
	assert.Equal(t, "medium", rs.HighRiskAreas[0].RiskLevel)
	assert.Equal(t, "high", rs.HighRiskAreas[1].RiskLevel)
}

func TestDominantCategoryTieBreak(t *testing.T) {
	// Theft and Assault tie 2-2 at the hotspot-sampled index 0 (combined
	// weight 26, above the 15 threshold); the category seen first in the
	// batch wins the tie.
	path := straightPath(11)
	lat, lon := path[0].Lat, path[0].Lon
	records := []incident.Record{
		crimeAt(lat, lon, "Theft"),
		crimeAt(lat, lon, "Assault"),
		crimeAt(lat, lon, "Assault"),
		crimeAt(lat, lon, "Theft"),
	}
	a := NewAnalyzer(snapshotOf(records...), DefaultParams())

	rs, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rs.HighRiskAreas, 1)
	assert.Equal(t, "Theft", rs.HighRiskAreas[0].DominantCategory)
}

func TestRouteStatisticsDeduplicate(t *testing.T) {
	// A tight path whose points all see the same incident: it must count
	// once, not once per point.
	path := []Point{
		{Lat: 40.7000, Lon: -74.0000},
		{Lat: 40.7005, Lon: -74.0000},
		{Lat: 40.7010, Lon: -74.0000},
	}
	a := NewAnalyzer(snapshotOf(crimeAt(40.7005, -74.0000, "Robbery")), DefaultParams())

	rs, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, rs.Statistics.TotalIncidents)
	assert.Equal(t, map[string]int{"Robbery": 1}, rs.Statistics.ByCategory)
}

func TestRouteStatisticsHighDensityPoints(t *testing.T) {
	path := straightPath(6)
	// Cluster of weight 24 (> 15) at point 2 only.
	records := clusterAt(path[2].Lat, path[2].Lon, "Assault", 3)
	a := NewAnalyzer(snapshotOf(records...), DefaultParams())

	rs, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Statistics.HighDensityPoints)
}

func TestAnnotateDoesNotMutatePath(t *testing.T) {
	path := straightPath(12)
	orig := make([]Point, len(path))
	copy(orig, path)

	a := NewAnalyzer(snapshotOf(crimeAt(path[0].Lat, path[0].Lon, "Assault")), DefaultParams())
	_, err := a.Annotate(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, orig, path)
}

func TestAnnotateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAnalyzer(snapshotOf(crimeAt(40.70, -74.00, "Assault")), DefaultParams())
	_, err := a.Annotate(ctx, straightPath(50))
	assert.Error(t, err)
}
