package geom

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ParsePolygons accepts a GeoJSON FeatureCollection and returns every
// polygon and multipolygon member, concatenated in document order. Empty or
// unparseable input yields an empty slice; malformed non-empty input is
// logged and degraded to "no polygons" rather than failing the request,
// per the boundary-parser degrade-silently policy.
func ParsePolygons(logger *slog.Logger, data []byte) []orb.Polygon {
	if logger == nil {
		logger = slog.Default()
	}
	if len(data) == 0 {
		return nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		logger.Warn("polyMask: failed to parse GeoJSON, treating as absent", "error", err)
		return nil
	}

	var polys []orb.Polygon
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = append(polys, g)
		case orb.MultiPolygon:
			polys = append(polys, g...)
		default:
			logger.Warn("polyMask: skipping non-polygon feature geometry", "type", f.Geometry.GeoJSONType())
		}
	}
	return polys
}

// PointInPolygons reports whether pt lies inside the union of polys, using
// even-odd ray casting per ring (holes subtract from their parent ring).
func PointInPolygons(pt orb.Point, polys []orb.Polygon) bool {
	for _, poly := range polys {
		if pointInPolygon(pt, poly) {
			return true
		}
	}
	return false
}

func pointInPolygon(pt orb.Point, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	inside := pointInRing(pt, poly[0])
	if !inside {
		return false
	}
	for _, hole := range poly[1:] {
		if pointInRing(pt, hole) {
			return false
		}
	}
	return true
}

func pointInRing(pt orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	x, y := pt[0], pt[1]
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) {
			xCross := xi + (y-yi)/(yj-yi)*(xj-xi)
			if x < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
