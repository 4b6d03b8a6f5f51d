package directions

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dwellsafe/dwellsafe-cli/internal/safety"
)

// DecodePolyline decodes a Google encoded polyline into path points.
// Coordinates are delta-encoded at 1e-5 precision.
func DecodePolyline(encoded string) ([]safety.Point, error) {
	var points []safety.Point
	var lat, lng int64

	i := 0
	for i < len(encoded) {
		dLat, n, err := decodeVarint(encoded[i:])
		if err != nil {
			return nil, eris.Wrap(err, "directions: decode polyline")
		}
		i += n
		lat += dLat

		dLng, n, err := decodeVarint(encoded[i:])
		if err != nil {
			return nil, eris.Wrap(err, "directions: decode polyline")
		}
		i += n
		lng += dLng

		points = append(points, safety.Point{
			Lat: float64(lat) / 1e5,
			Lon: float64(lng) / 1e5,
		})
	}
	return points, nil
}

// EncodePolyline is the inverse of DecodePolyline, used by tests and fixtures.
func EncodePolyline(points []safety.Point) string {
	var sb strings.Builder
	var prevLat, prevLng int64
	for _, p := range points {
		lat := int64(round(p.Lat * 1e5))
		lng := int64(round(p.Lon * 1e5))
		encodeVarint(&sb, lat-prevLat)
		encodeVarint(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return sb.String()
}

func decodeVarint(s string) (value int64, n int, err error) {
	var result int64
	var shift uint
	for i := 0; i < len(s); i++ {
		b := int64(s[i]) - 63
		if b < 0 {
			return 0, 0, eris.New("invalid polyline character")
		}
		result |= (b & 0x1f) << shift
		if b < 0x20 {
			// Lowest bit flags a negative value.
			if result&1 != 0 {
				return ^(result >> 1), i + 1, nil
			}
			return result >> 1, i + 1, nil
		}
		shift += 5
	}
	return 0, 0, eris.New("truncated polyline")
}

func encodeVarint(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte((u&0x1f)|0x20) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int64(f - 0.5))
	}
	return float64(int64(f + 0.5))
}
