// Package borough resolves coordinates to NYC boroughs. With a boundary
// shapefile loaded it does a real point-in-polygon test; without one it
// falls back to coarse bounding rules good enough for labeling.
package borough

import (
	"github.com/twpayne/go-geom"
)

// Borough names as they appear in the incident feed.
const (
	Manhattan    = "MANHATTAN"
	Brooklyn     = "BROOKLYN"
	Queens       = "QUEENS"
	Bronx        = "BRONX"
	StatenIsland = "STATEN ISLAND"
)

// Resolver maps coordinates to borough names.
type Resolver struct {
	shapes []shape
}

// shape is one named boundary: every ring of every part, containment by
// even-odd parity so holes need no special casing.
type shape struct {
	name   string
	rings  []*geom.LinearRing
	bounds *geom.Bounds
}

// NewResolver returns a resolver with no boundary data, using only the
// coarse fallback rules.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the borough containing the point. Boundary data wins when
// present; otherwise the fallback estimate is used.
func (r *Resolver) Resolve(lat, lon float64) string {
	for _, s := range r.shapes {
		if !s.bounds.OverlapsPoint(geom.XY, geom.Coord{lon, lat}) {
			continue
		}
		if containsEvenOdd(s.rings, lon, lat) {
			return s.name
		}
	}
	return Estimate(lat, lon)
}

// HasBoundaries reports whether shapefile boundaries are loaded.
func (r *Resolver) HasBoundaries() bool { return len(r.shapes) > 0 }

// Estimate classifies a point with the coarse NYC bounding rules. Rough by
// construction; only used when no boundary data is available.
func Estimate(lat, lon float64) string {
	switch {
	case lat > 40.8 && lon > -73.9:
		return Bronx
	case lat < 40.7 && lon < -74.0:
		return StatenIsland
	case lat < 40.7 && lon > -73.9:
		return Brooklyn
	case lon < -73.9:
		return Queens
	default:
		return Manhattan
	}
}

// containsEvenOdd ray-casts against every ring; an odd crossing count means
// the point is inside the filled area.
func containsEvenOdd(rings []*geom.LinearRing, x, y float64) bool {
	inside := false
	for _, ring := range rings {
		coords := ring.FlatCoords()
		stride := ring.Stride()
		n := len(coords) / stride
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			xi, yi := coords[i*stride], coords[i*stride+1]
			xj, yj := coords[j*stride], coords[j*stride+1]
			if (yi > y) != (yj > y) &&
				x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
	}
	return inside
}
