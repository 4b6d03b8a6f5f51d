package incident

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
)

func rawAt(lat, lon, category string) RawRecord {
	return RawRecord{Latitude: lat, Longitude: lon, Category: category}
}

func recAt(lat, lon float64, category string) Record {
	return Record{Latitude: lat, Longitude: lon, Category: category}
}

func TestBuildDropsInvalidCoordinates(t *testing.T) {
	raw := []RawRecord{
		rawAt("40.7128", "-74.0060", "Assault"),
		rawAt("", "-74.0", "Robbery"),
		rawAt("not-a-number", "-74.0", "Robbery"),
		rawAt("40.7", "", "Theft"),
		rawAt("40.7130", "-74.0062", "Noise - Residential"),
	}

	snap := Build(raw, nil)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 3, snap.Dropped())
}

func TestBuildParsesTimestampAndFields(t *testing.T) {
	raw := []RawRecord{{
		Latitude:   "40.7128",
		Longitude:  "-74.0060",
		Category:   " Assault ",
		OccurredAt: "2025-06-01T12:30:00.000",
		Borough:    "MANHATTAN",
		Zip:        "10007",
	}}

	snap := Build(raw, nil)
	require.Equal(t, 1, snap.Len())

	rec := snap.Records()[0]
	assert.Equal(t, "Assault", rec.Category)
	assert.Equal(t, "MANHATTAN", rec.Borough)
	assert.Equal(t, "10007", rec.Zip)
	require.NotNil(t, rec.OccurredAt)
	assert.Equal(t, 2025, rec.OccurredAt.Year())
}

func TestQueryRadiusEmpty(t *testing.T) {
	snap := BuildFromRecords(nil, nil)
	assert.Zero(t, snap.QueryRadius(40.7, -74.0, 0.003, severity.ScaleRoute))
	assert.Empty(t, snap.Nearby(40.7, -74.0, 0.003))
}

func TestQueryRadiusWeights(t *testing.T) {
	snap := BuildFromRecords([]Record{
		recAt(40.7000, -74.0000, "Assault"),          // high: 8 route / 3 map
		recAt(40.7001, -74.0001, "Burglary"),         // medium: 5 / 2
		recAt(40.7002, -74.0002, "Noise - Street"),   // low: 1 / 1
		recAt(40.9000, -74.0000, "Murder"),           // out of range
	}, nil)

	route := snap.QueryRadius(40.7000, -74.0000, 0.003, severity.ScaleRoute)
	assert.Equal(t, 14.0, route)

	mapScale := snap.QueryRadius(40.7000, -74.0000, 0.003, severity.ScaleMap)
	assert.Equal(t, 6.0, mapScale)
}

func TestQueryRadiusBoundary(t *testing.T) {
	snap := BuildFromRecords([]Record{
		recAt(40.7029, -74.0000, "Noise"),
		recAt(40.7032, -74.0000, "Noise"),
	}, nil)
	// Just inside counts, just outside does not.
	got := snap.QueryRadius(40.7000, -74.0000, 0.003, severity.ScaleRoute)
	assert.Equal(t, 1.0, got)
}

func TestQueryRadiusMonotonicInRadius(t *testing.T) {
	var records []Record
	for i := 0; i < 50; i++ {
		records = append(records, recAt(40.70+float64(i)*0.0004, -74.00, "Theft"))
	}
	snap := BuildFromRecords(records, nil)

	var prev float64
	for _, radius := range []float64{0, 0.001, 0.003, 0.005, 0.01, 0.05} {
		got := snap.QueryRadius(40.705, -74.0, radius, severity.ScaleRoute)
		assert.GreaterOrEqual(t, got, prev, "radius %v", radius)
		prev = got
	}
}

func TestQueryRadiusNonNegative(t *testing.T) {
	snap := BuildFromRecords([]Record{recAt(40.7, -74.0, "Assault")}, nil)
	assert.GreaterOrEqual(t, snap.QueryRadius(0, 0, 0.003, severity.ScaleRoute), 0.0)
	assert.Zero(t, snap.QueryRadius(40.7, -74.0, -1, severity.ScaleRoute))
}

func TestNearbyBatchOrder(t *testing.T) {
	// Records span multiple grid cells; Nearby must still come back in
	// first-seen batch order.
	records := []Record{
		recAt(40.7040, -74.0000, "First"),
		recAt(40.7000, -74.0040, "Second"),
		recAt(40.7000, -74.0000, "Third"),
		recAt(40.7020, -74.0020, "Fourth"),
	}
	snap := BuildFromRecords(records, nil)

	got := snap.Nearby(40.702, -74.002, 0.01)
	require.Len(t, got, 4)
	for i, rec := range got {
		assert.Equal(t, records[i].Category, rec.Category, "index %d", i)
	}
}

func TestNegativeCoordinateBucketing(t *testing.T) {
	// Southern/western hemisphere points must not straddle cell boundaries.
	snap := BuildFromRecords([]Record{recAt(-33.8688, 151.2093, "Theft")}, nil)
	got := snap.QueryRadius(-33.8688, 151.2093, 0.003, severity.ScaleRoute)
	assert.Equal(t, 5.0, got)
}

func TestStoreSwap(t *testing.T) {
	store := NewStore(nil)
	assert.Zero(t, store.Current().Len())

	snap := BuildFromRecords([]Record{recAt(40.7, -74.0, "Assault")}, nil)
	store.Swap(snap)
	assert.Equal(t, 1, store.Current().Len())

	// Swapping nil is a no-op, never clears the active batch.
	store.Swap(nil)
	assert.Equal(t, 1, store.Current().Len())
}

func TestStoreSwapLeavesOldSnapshotIntact(t *testing.T) {
	store := NewStore(nil)
	old := store.Current()

	store.Swap(BuildFromRecords([]Record{recAt(40.7, -74.0, "Assault")}, nil))
	assert.Zero(t, old.Len(), "pre-swap reference must keep seeing the old batch")
}

func TestLargeBatchQuery(t *testing.T) {
	var raw []RawRecord
	for i := 0; i < 15000; i++ {
		lat := 40.55 + float64(i%300)*0.001
		lon := -74.15 + float64(i/300)*0.001
		raw = append(raw, rawAt(
			fmt.Sprintf("%.6f", lat),
			fmt.Sprintf("%.6f", lon),
			"Theft",
		))
	}
	snap := Build(raw, nil)
	require.Equal(t, 15000, snap.Len())

	// Thousands of queries over the indexed batch should be instantaneous.
	for i := 0; i < 2000; i++ {
		snap.QueryRadius(40.65, -74.10, 0.003, severity.ScaleRoute)
	}
}
