package safety

import (
	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
)

// Point is a geographic coordinate on a path.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Analyzer evaluates risk against one immutable incident snapshot. It is
// stateless beyond the snapshot reference and safe for concurrent use.
type Analyzer struct {
	snap   *incident.Snapshot
	params Params
}

// NewAnalyzer binds an analyzer to a snapshot. Zero-valued params fall back
// to the contractual defaults.
func NewAnalyzer(snap *incident.Snapshot, params Params) *Analyzer {
	return &Analyzer{snap: snap, params: params.withDefaults()}
}

// DensityAt returns the route-scale weighted incident density at a point.
// This is the raw risk signal: both point lookups and route sampling go
// through here.
func (a *Analyzer) DensityAt(lat, lon float64) float64 {
	return a.snap.QueryRadius(lat, lon, a.params.DensityRadius, severity.ScaleRoute)
}

// Snapshot returns the bound snapshot.
func (a *Analyzer) Snapshot() *incident.Snapshot { return a.snap }
