package incident

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
)

// gridCell is the spatial index bucket size in degrees. Chosen to match the
// largest query radius used by the scorers so a radius query touches at most
// a 3x3 neighborhood of cells.
const gridCell = 0.005

type cellKey struct {
	row, col int
}

// Snapshot is an immutable view of one fetched incident batch plus a spatial
// index over it. All methods are safe for concurrent use; a Snapshot is never
// modified after Build returns.
type Snapshot struct {
	records    []Record
	dropped    int
	fetchedAt  time.Time
	classifier *severity.Classifier
	grid       map[cellKey][]int
}

// Build validates a raw batch into a Snapshot. Records with missing or
// non-numeric coordinates are skipped; the count is retained for diagnostics.
func Build(raw []RawRecord, classifier *severity.Classifier) *Snapshot {
	if classifier == nil {
		classifier = severity.NewClassifier()
	}

	snap := &Snapshot{
		fetchedAt:  time.Now().UTC(),
		classifier: classifier,
		grid:       make(map[cellKey][]int),
	}

	for _, rr := range raw {
		rec, ok := parseRecord(rr)
		if !ok {
			snap.dropped++
			continue
		}
		idx := len(snap.records)
		snap.records = append(snap.records, rec)
		key := cellFor(rec.Latitude, rec.Longitude)
		snap.grid[key] = append(snap.grid[key], idx)
	}

	if snap.dropped > 0 {
		zap.L().Info("incident: dropped records with invalid coordinates",
			zap.Int("dropped", snap.dropped),
			zap.Int("loaded", len(snap.records)),
		)
	}

	return snap
}

// BuildFromRecords constructs a Snapshot from already-validated records.
// Used by tests and by callers that synthesize incidents directly.
func BuildFromRecords(records []Record, classifier *severity.Classifier) *Snapshot {
	if classifier == nil {
		classifier = severity.NewClassifier()
	}
	snap := &Snapshot{
		fetchedAt:  time.Now().UTC(),
		classifier: classifier,
		grid:       make(map[cellKey][]int),
	}
	for i, rec := range records {
		snap.records = append(snap.records, rec)
		snap.grid[cellFor(rec.Latitude, rec.Longitude)] = append(snap.grid[cellFor(rec.Latitude, rec.Longitude)], i)
	}
	return snap
}

func cellFor(lat, lon float64) cellKey {
	return cellKey{
		row: int(floorDiv(lat, gridCell)),
		col: int(floorDiv(lon, gridCell)),
	}
}

// floorDiv floors v/cell toward negative infinity so southern/western
// hemisphere coordinates bucket consistently.
func floorDiv(v, cell float64) float64 {
	q := v / cell
	f := float64(int(q))
	if q < 0 && q != f {
		f--
	}
	return f
}

// Len returns the number of valid records in the snapshot.
func (s *Snapshot) Len() int { return len(s.records) }

// Dropped returns how many raw records were rejected at load time.
func (s *Snapshot) Dropped() int { return s.dropped }

// FetchedAt returns when the snapshot was built.
func (s *Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// Records returns the full batch in first-seen order. Callers must not
// modify the returned slice.
func (s *Snapshot) Records() []Record { return s.records }

// Classifier returns the severity classifier bound to this snapshot.
func (s *Snapshot) Classifier() *severity.Classifier { return s.classifier }

// QueryRadius sums, over incidents within radius of (lat, lon), the severity
// weight of each incident under the given scale. Distance is planar Euclidean
// on raw degrees; at the radii involved (0.003-0.005 degrees, roughly
// 300-500m at NYC latitudes) this tracks true distance closely and the
// simplification is load-bearing for score parity with the map clients.
// Returns 0 when nothing is in range.
func (s *Snapshot) QueryRadius(lat, lon, radius float64, scale severity.Scale) float64 {
	var total float64
	s.scanRadius(lat, lon, radius, func(idx int) {
		total += float64(s.classifier.WeightFor(s.records[idx].Category, scale))
	})
	return total
}

// Nearby returns the records within radius of (lat, lon), in first-seen
// batch order. The ordering is relied on for dominant-category tie-breaks.
func (s *Snapshot) Nearby(lat, lon, radius float64) []Record {
	var idxs []int
	s.scanRadius(lat, lon, radius, func(idx int) {
		idxs = append(idxs, idx)
	})
	// The grid walk visits cells in row/column order; re-sort into batch order.
	sort.Ints(idxs)

	out := make([]Record, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.records[i])
	}
	return out
}

// NearbyIndices returns indices of records within radius, in batch order.
// Useful for deduplicating across many query points without copying records.
func (s *Snapshot) NearbyIndices(lat, lon, radius float64) []int {
	var idxs []int
	s.scanRadius(lat, lon, radius, func(idx int) {
		idxs = append(idxs, idx)
	})
	sort.Ints(idxs)
	return idxs
}

// scanRadius visits each record index within radius of (lat, lon). The grid
// walk covers every cell intersecting the bounding square, then filters by
// true planar distance.
func (s *Snapshot) scanRadius(lat, lon, radius float64, visit func(idx int)) {
	if len(s.records) == 0 || radius < 0 {
		return
	}

	minCell := cellFor(lat-radius, lon-radius)
	maxCell := cellFor(lat+radius, lon+radius)
	r2 := radius * radius

	for row := minCell.row; row <= maxCell.row; row++ {
		for col := minCell.col; col <= maxCell.col; col++ {
			for _, idx := range s.grid[cellKey{row, col}] {
				rec := s.records[idx]
				dLat := rec.Latitude - lat
				dLon := rec.Longitude - lon
				if dLat*dLat+dLon*dLon <= r2 {
					visit(idx)
				}
			}
		}
	}
}
