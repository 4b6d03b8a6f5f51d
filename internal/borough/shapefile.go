package borough

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// boroNameFields are the attribute names, in preference order, that carry
// the borough name across the common NYC boundary shapefile releases.
var boroNameFields = []string{"boro_name", "boroname", "name"}

// LoadShapefile reads borough boundary polygons into a Resolver. Records
// without geometry or a recognizable name attribute are skipped.
func LoadShapefile(path string) (*Resolver, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "borough: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		for _, want := range boroNameFields {
			if name == want {
				nameIdx = i
				break
			}
		}
		if nameIdx >= 0 {
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.New("borough: no borough name field in shapefile")
	}

	r := &Resolver{}
	var skipped int

	for reader.Next() {
		_, shpShape := reader.Shape()
		poly, ok := shpShape.(*shp.Polygon)
		if !ok || len(poly.Points) == 0 {
			skipped++
			continue
		}

		name := strings.ToUpper(strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00")))
		if name == "" {
			skipped++
			continue
		}

		s := shape{name: name, bounds: geom.NewBounds(geom.XY)}
		for _, ring := range polygonRings(poly) {
			s.rings = append(s.rings, ring)
			s.bounds.Extend(ring)
		}
		if len(s.rings) == 0 {
			skipped++
			continue
		}
		r.shapes = append(r.shapes, s)
	}

	if skipped > 0 {
		zap.L().Debug("borough: skipped shapefile records", zap.Int("skipped", skipped))
	}
	zap.L().Info("borough: loaded boundaries",
		zap.String("path", path),
		zap.Int("shapes", len(r.shapes)),
	)
	return r, nil
}

// polygonRings splits a shapefile polygon's parts into linear rings.
func polygonRings(poly *shp.Polygon) []*geom.LinearRing {
	var rings []*geom.LinearRing
	numParts := int(poly.NumParts)

	for p := 0; p < numParts; p++ {
		start := int(poly.Parts[p])
		end := len(poly.Points)
		if p+1 < numParts {
			end = int(poly.Parts[p+1])
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for _, pt := range poly.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		rings = append(rings, geom.NewLinearRingFlat(geom.XY, flat))
	}
	return rings
}
