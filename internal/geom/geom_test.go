package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestParseCRS(t *testing.T) {
	if _, err := ParseCRS(4326); err != nil {
		t.Fatalf("4326 should be supported: %v", err)
	}
	if _, err := ParseCRS(3857); err != nil {
		t.Fatalf("3857 should be supported: %v", err)
	}
	if _, err := ParseCRS(2154); err == nil {
		t.Fatalf("expected error for unsupported srid")
	}
}

func TestReprojectPointIdentityFor3857(t *testing.T) {
	pt := orb.Point{123.4, 567.8}
	got, err := ReprojectPoint(pt, CRS3857)
	require.NoError(t, err)
	require.Equal(t, pt, got)
}

func TestReprojectionRoundTrip(t *testing.T) {
	// Invariant 8: 4326 -> 3857 -> 4326 is identity to within 1e-6 degrees
	// for points within +-85 degrees latitude.
	cases := []orb.Point{
		{0, 0}, {-122.4194, 37.7749}, {2.3522, 48.8566}, {139.6917, 35.6895}, {-73.9857, 40.7484},
	}
	for _, pt := range cases {
		merc, err := ReprojectPoint(pt, CRS4326)
		require.NoError(t, err)
		back := MercatorToLonLat(merc)
		if math.Abs(back[0]-pt[0]) > 1e-6 || math.Abs(back[1]-pt[1]) > 1e-6 {
			t.Fatalf("round trip mismatch for %v: got %v", pt, back)
		}
	}
}

func TestReprojectPolygonsVertexwise(t *testing.T) {
	poly := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	out, err := ReprojectPolygons([]orb.Polygon{poly}, CRS4326)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0][0], len(poly[0]))
	// vertices should have moved (mercator != identity away from origin... at
	// (0,0) it's a fixed point, so check a non-origin vertex changed scale).
	require.NotEqual(t, poly[0][1][0], out[0][0][1][0])
}

func TestReprojectPolygonsUnsupportedCRS(t *testing.T) {
	_, err := ReprojectPolygons(nil, CRS(9999))
	require.Error(t, err)
}

func TestParsePolygonsEmptyInput(t *testing.T) {
	require.Nil(t, ParsePolygons(nil, nil))
	require.Nil(t, ParsePolygons(nil, []byte("")))
}

func TestParsePolygonsMalformedDegrades(t *testing.T) {
	require.Nil(t, ParsePolygons(nil, []byte("not json")))
}

func TestParsePolygonsFlattensMultiPolygon(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
			{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[
				[[[2,2],[3,2],[3,3],[2,2]]],
				[[[4,4],[5,4],[5,5],[4,4]]]
			]}}
		]
	}`)
	polys := ParsePolygons(nil, data)
	require.Len(t, polys, 3)
}

func TestPointInPolygonsBasic(t *testing.T) {
	square := orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	require.True(t, PointInPolygons(orb.Point{5, 5}, []orb.Polygon{square}))
	require.False(t, PointInPolygons(orb.Point{15, 5}, []orb.Polygon{square}))
}

func TestPointInPolygonsHole(t *testing.T) {
	outer := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := orb.Ring{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}}
	poly := orb.Polygon{outer, hole}
	require.False(t, PointInPolygons(orb.Point{5, 5}, []orb.Polygon{poly}))
	require.True(t, PointInPolygons(orb.Point{1, 1}, []orb.Polygon{poly}))
}
