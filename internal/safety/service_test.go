package safety

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
)

func storeWith(records ...incident.Record) *incident.Store {
	store := incident.NewStore(nil)
	store.Swap(incident.BuildFromRecords(records, nil))
	return store
}

func TestServiceScoreRouteEmptyBatch(t *testing.T) {
	svc := NewService(incident.NewStore(nil), DefaultParams())

	rs, err := svc.ScoreRoute(context.Background(), straightPath(30))
	require.NoError(t, err)
	assert.Equal(t, DefaultScore, rs.Score)
}

func TestServiceAnalyzeRoutes(t *testing.T) {
	// Route A passes a heavy cluster; route B is clean but slower; route C
	// is clean and slowest.
	dirty := straightPath(11)
	cleanB := make([]Point, 11)
	cleanC := make([]Point, 11)
	for i := range cleanB {
		cleanB[i] = Point{Lat: 41.50 + float64(i)*0.02, Lon: -73.50}
		cleanC[i] = Point{Lat: 42.50 + float64(i)*0.02, Lon: -73.00}
	}

	svc := NewService(storeWith(clusterAt(dirty[0].Lat, dirty[0].Lon, "Assault", 50)...), DefaultParams())

	ranking, err := svc.AnalyzeRoutes(context.Background(), []RouteCandidate{
		{ID: "dirty", Path: dirty, DurationSeconds: 500},
		{ID: "clean_b", Path: cleanB, DurationSeconds: 700},
		{ID: "clean_c", Path: cleanC, DurationSeconds: 900},
	})
	require.NoError(t, err)

	types := routeTypes(ranking)
	assert.Equal(t, RouteTypeFastest, types["dirty"])
	assert.Equal(t, RouteTypeSafest, types["clean_b"])
	assert.Equal(t, RouteTypeBalanced, types["clean_c"])

	for _, rt := range ranking.Routes {
		assert.NotEmpty(t, rt.SafetyGrade)
		assert.GreaterOrEqual(t, rt.SafetyScore, 0.0)
		assert.LessOrEqual(t, rt.SafetyScore, 100.0)
		if rt.ID == "dirty" {
			assert.NotEmpty(t, rt.HighRiskAreas)
		}
	}
}

func TestServiceAnalyzeRoutesZeroCandidates(t *testing.T) {
	svc := NewService(incident.NewStore(nil), DefaultParams())
	_, err := svc.AnalyzeRoutes(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRoutes)
}

func TestServiceAnalyzeRoutesCancelled(t *testing.T) {
	svc := NewService(storeWith(crimeAt(40.7, -74.0, "Assault")), DefaultParams())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AnalyzeRoutes(ctx, []RouteCandidate{
		{ID: "a", Path: straightPath(100), DurationSeconds: 100},
	})
	assert.Error(t, err)
}

func TestServicePinsSnapshotPerCall(t *testing.T) {
	store := incident.NewStore(nil)
	svc := NewService(store, DefaultParams())

	before := svc.ScoreArea(40.7, -74.0)
	assert.True(t, before.Insufficient)

	store.Swap(incident.BuildFromRecords(clusterAt(40.7, -74.0, "Assault", 10), nil))

	after := svc.ScoreArea(40.7, -74.0)
	assert.False(t, after.Insufficient)
	assert.Equal(t, 10, after.TotalComplaints)
}

func TestServiceCompareBoroughs(t *testing.T) {
	svc := NewService(storeWith(
		incident.Record{Latitude: 40.71, Longitude: -74.00, Category: "Noise", Borough: "QUEENS"},
	), DefaultParams())

	got := svc.CompareBoroughs()
	require.Contains(t, got, "QUEENS")
	assert.Equal(t, 1, got["QUEENS"].TotalComplaints)
}
