package analytics

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/MeKo-Tech/gtoverlay/internal/catalog"
	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func extent(cols, rows int) raster.RasterExtent {
	return raster.RasterExtent{
		Extent: raster.Extent{XMin: 0, YMin: 0, XMax: float64(cols), YMax: float64(rows)},
		Cols:   cols, Rows: rows,
	}
}

func constantRaster(cols, rows int, v raster.Cell) raster.Raster {
	r := raster.NewRaster(extent(cols, rows))
	for i := range r.Cells {
		r.Cells[i] = v
	}
	return r
}

func TestClassBreaksTrivial(t *testing.T) {
	// S1: 256x256 constant 5, numBreaks=3 -> [5]
	r := constantRaster(256, 256, 5)
	breaks, err := ClassBreaks(r, 3)
	require.NoError(t, err)
	require.Equal(t, []raster.Cell{5}, breaks)
}

func TestClassBreaksWeightedSum(t *testing.T) {
	// S2: constant 7, numBreaks=2 -> [7]
	r := constantRaster(4, 4, 7)
	breaks, err := ClassBreaks(r, 2)
	require.NoError(t, err)
	require.Equal(t, []raster.Cell{7}, breaks)
}

func TestClassBreaksEmptyHistogramUnableToCompute(t *testing.T) {
	// S3: fully NoData raster -> UnableToCompute with the S3 message.
	r := raster.NewRaster(extent(4, 4))
	_, err := ClassBreaks(r, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unable to calculate breaks (NODATA)")
}

func TestClassBreaksStrictlyIncreasing(t *testing.T) {
	r := raster.NewRaster(extent(10, 1))
	for i := 0; i < 10; i++ {
		r.Set(i, 0, raster.Cell(i))
	}
	breaks, err := ClassBreaks(r, 4)
	require.NoError(t, err)
	require.LessOrEqual(t, len(breaks), 4)
	for i := 1; i < len(breaks); i++ {
		require.Less(t, breaks[i-1], breaks[i])
	}
}

func TestRenderPNGAllNoDataIsTransparent(t *testing.T) {
	r := raster.NewRaster(extent(4, 4))
	data, err := RenderPNG(r, []raster.Cell{1, 2, 3}, "blue-to-red", CompressionDefault)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			require.Equal(t, uint32(0), a)
		}
	}
}

func TestHistogramPlain(t *testing.T) {
	r := raster.NewRaster(extent(2, 2))
	r.Set(0, 0, 1)
	r.Set(1, 0, 1)
	r.Set(0, 1, 2)
	hist := Histogram(r, nil)
	require.Equal(t, int64(2), hist[1])
	require.Equal(t, int64(1), hist[2])
}

func TestHistogramZonalDisjointMergeEqualsUnion(t *testing.T) {
	r := raster.NewRaster(extent(4, 4))
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			r.Set(col, row, raster.Cell(col+row*4))
		}
	}
	left := orb.Polygon{orb.Ring{{0, 0}, {2, 0}, {2, 4}, {0, 4}, {0, 0}}}
	right := orb.Polygon{orb.Ring{{2, 0}, {4, 0}, {4, 4}, {2, 4}, {2, 0}}}

	merged := Histogram(r, []orb.Polygon{left, right})
	union := histogramForZone(r, []orb.Polygon{left, right}) // true single-pass union, not the concurrent per-polygon merge
	total := int64(0)
	for _, c := range merged {
		total += c
	}
	require.Equal(t, int64(16), total)
	require.Equal(t, merged, union)
}

func TestSamplePointsExtent(t *testing.T) {
	// S6-style: a known value at a known 3857 coordinate.
	r := raster.NewRaster(extent(4, 4))
	r.Set(2, 1, 42)
	x, y := r.CellCenter(2, 1)

	out, err := SamplePointsExtent(r, []PointRequest{{ID: "id1", X: x, Y: y}}, geom.CRS3857)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, raster.Cell(42), out[0].Value)
	require.Equal(t, "id1", out[0].ID)
}

func TestSamplePointsTiledBatchesByTile(t *testing.T) {
	reads := 0
	tileA := constantRaster(2, 2, 11)
	tileB := constantRaster(2, 2, 22)
	tileB.Extent = raster.Extent{XMin: 2, YMin: 0, XMax: 4, YMax: 2}

	sampler := TileSampler{
		Zoom: 0,
		MapPointToKey: func(x, _ float64) catalog.TileKey {
			if x < 2 {
				return catalog.TileKey{X: 0}
			}
			return catalog.TileKey{X: 1}
		},
		Reader: func(_ context.Context, key catalog.TileKey) (raster.Raster, error) {
			reads++
			if key.X == 0 {
				return tileA, nil
			}
			return tileB, nil
		},
	}

	points := []PointRequest{
		{ID: "a1", X: 0.5, Y: 0.5},
		{ID: "a2", X: 1.5, Y: 0.5},
		{ID: "b1", X: 2.5, Y: 0.5},
	}
	out, err := SamplePointsTiled(context.Background(), sampler, points, geom.CRS3857)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, 2, reads, "each distinct tile should be read exactly once")
	require.Equal(t, raster.Cell(11), out[0].Value)
	require.Equal(t, raster.Cell(22), out[2].Value)
}

func TestHistogramSparklinePNGEmpty(t *testing.T) {
	data, err := HistogramSparklinePNG(map[raster.Cell]int64{})
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
