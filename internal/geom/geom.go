// Package geom handles coordinate reference systems, polygon/point
// reprojection, and GeoJSON mask parsing for the overlay pipeline.
package geom

import (
	"math"

	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/paulmach/orb"
)

// CRS identifies one of the two coordinate reference systems the pipeline
// understands.
type CRS int

const (
	// CRS4326 is geographic WGS84 lon/lat.
	CRS4326 CRS = 4326
	// CRS3857 is Web Mercator, the CRS all internal computation occurs in.
	CRS3857 CRS = 3857
)

const earthRadius = 6378137.0

// ParseCRS validates a raw srid integer against the two supported systems.
func ParseCRS(srid int) (CRS, error) {
	switch CRS(srid) {
	case CRS4326:
		return CRS4326, nil
	case CRS3857:
		return CRS3857, nil
	default:
		return 0, apperr.New(apperr.UnsupportedCRS, "unsupported srid %d (want 4326 or 3857)", srid)
	}
}

// ReprojectPoint reprojects pt, expressed in srid, into Web Mercator
// (3857). srid == 3857 is the identity case.
func ReprojectPoint(pt orb.Point, srid CRS) (orb.Point, error) {
	switch srid {
	case CRS3857:
		return pt, nil
	case CRS4326:
		return lonLatToMercator(pt), nil
	default:
		return orb.Point{}, apperr.New(apperr.UnsupportedCRS, "unsupported srid %d (want 4326 or 3857)", srid)
	}
}

// ReprojectPolygons reprojects every vertex of every polygon, expressed in
// srid, into Web Mercator. No densification is performed.
func ReprojectPolygons(polys []orb.Polygon, srid CRS) ([]orb.Polygon, error) {
	if srid == CRS3857 {
		return polys, nil
	}
	if srid != CRS4326 {
		return nil, apperr.New(apperr.UnsupportedCRS, "unsupported srid %d (want 4326 or 3857)", srid)
	}
	out := make([]orb.Polygon, len(polys))
	for i, poly := range polys {
		rings := make(orb.Polygon, len(poly))
		for j, ring := range poly {
			pts := make(orb.Ring, len(ring))
			for k, pt := range ring {
				pts[k] = lonLatToMercator(pt)
			}
			rings[j] = pts
		}
		out[i] = rings
	}
	return out, nil
}

// MercatorToLonLat reprojects a Web Mercator point back to geographic
// lon/lat, the inverse of the 4326 case of ReprojectPoint. Used by the
// reprojection round-trip test.
func MercatorToLonLat(pt orb.Point) orb.Point {
	lon := pt[0] / earthRadius * 180.0 / math.Pi
	lat := math.Atan(math.Sinh(pt[1]/earthRadius)) * 180.0 / math.Pi
	return orb.Point{lon, lat}
}

func lonLatToMercator(pt orb.Point) orb.Point {
	lon, lat := pt[0], pt[1]
	x := lon * math.Pi / 180.0 * earthRadius
	latRad := lat * math.Pi / 180.0
	y := math.Log(math.Tan(math.Pi/4.0+latRad/2.0)) * earthRadius
	return orb.Point{x, y}
}
