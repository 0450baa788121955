package httpapi

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gtoverlay/internal/catalog"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

func layerExtent(cols, rows int) raster.RasterExtent {
	return raster.RasterExtent{
		Extent: raster.Extent{XMin: 0, YMin: 0, XMax: float64(cols), YMax: float64(rows)},
		Cols:   cols, Rows: rows,
	}
}

func constantLayer(cols, rows int, v raster.Cell) catalog.MemLayer {
	r := raster.NewRaster(layerExtent(cols, rows))
	for i := range r.Cells {
		r.Cells[i] = v
	}
	return catalog.MemLayer{Raster: r, Zoom: catalogZoom}
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestScenarioS1TrivialBreaks(t *testing.T) {
	cat := catalog.NewMemCatalog(map[string]catalog.MemLayer{
		"L1": constantLayer(256, 256, 5),
	})
	srv := &Server{Catalog: cat}

	form := url.Values{
		"bbox":      {"0,0,256,256"},
		"layers":    {"L1"},
		"weights":   {"1"},
		"numBreaks": {"3"},
		"gridCols":  {"256"},
		"gridRows":  {"256"},
	}
	rec := postForm(t, srv, "/gt/breaks", form)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"classBreaks":[5]}`, rec.Body.String())
}

func TestScenarioS2WeightedSum(t *testing.T) {
	cat := catalog.NewMemCatalog(map[string]catalog.MemLayer{
		"A": constantLayer(4, 4, 2),
		"B": constantLayer(4, 4, 3),
	})
	srv := &Server{Catalog: cat}

	form := url.Values{
		"bbox":      {"0,0,4,4"},
		"layers":    {"A,B"},
		"weights":   {"2,1"},
		"numBreaks": {"2"},
		"gridCols":  {"4"},
		"gridRows":  {"4"},
	}
	rec := postForm(t, srv, "/gt/breaks", form)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"classBreaks":[7]}`, rec.Body.String())
}

func TestScenarioS3ThresholdAllNoData(t *testing.T) {
	cat := catalog.NewMemCatalog(map[string]catalog.MemLayer{
		"A": constantLayer(4, 4, 2),
		"B": constantLayer(4, 4, 3),
	})
	srv := &Server{Catalog: cat}

	form := url.Values{
		"bbox":      {"0,0,4,4"},
		"layers":    {"A,B"},
		"weights":   {"2,1"},
		"numBreaks": {"2"},
		"threshold": {"8"},
		"gridCols":  {"4"},
		"gridRows":  {"4"},
	}
	rec := postForm(t, srv, "/gt/breaks", form)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Unable to calculate breaks (NODATA)")
}

func TestScenarioS4PolygonMaskHistogram(t *testing.T) {
	r := raster.NewRaster(layerExtent(256, 256))
	i := 0
	for row := 0; row < 256; row++ {
		for col := 0; col < 256; col++ {
			r.Set(col, row, raster.Cell(i%256))
			i++
		}
	}
	cat := catalog.NewMemCatalog(map[string]catalog.MemLayer{
		"L1": {Raster: r, Zoom: catalogZoom},
	})
	srv := &Server{Catalog: cat}

	poly := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,128],[128,128],[128,256],[0,256],[0,128]]]}}]}`
	form := url.Values{
		"bbox":     {"0,0,256,256"},
		"layers":   {"L1"},
		"polyMask": {poly},
		"gridCols": {"256"},
		"gridRows": {"256"},
	}
	rec := postForm(t, srv, "/gt/histogram", form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"histogram"`)
}

func TestScenarioS5LayerMask(t *testing.T) {
	a := raster.NewRaster(layerExtent(4, 4))
	mask := raster.NewRaster(layerExtent(4, 4))
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			a.Set(col, row, 10)
			if col < 2 {
				mask.Set(col, row, 10)
			} else {
				mask.Set(col, row, 20)
			}
		}
	}
	cat := catalog.NewMemCatalog(map[string]catalog.MemLayer{
		"A": {Raster: a, Zoom: catalogZoom},
		"M": {Raster: mask, Zoom: catalogZoom},
	})
	srv := &Server{Catalog: cat}

	form := url.Values{
		"bbox":      {"0,0,4,4"},
		"layers":    {"A"},
		"weights":   {"1"},
		"layerMask": {`{"M":[10]}`},
		"gridCols":  {"4"},
		"gridRows":  {"4"},
	}
	rec := postForm(t, srv, "/gt/wo", form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			_, _, _, a := img.At(col, row).RGBA()
			if col < 2 {
				require.NotZero(t, a, "left half (col %d, row %d) should be colored", col, row)
			} else {
				require.Zero(t, a, "right half (col %d, row %d) should be transparent", col, row)
			}
		}
	}
}

func TestScenarioS6PointSample(t *testing.T) {
	r := raster.NewRaster(layerExtent(4, 4))
	r.Set(2, 1, 42)
	x0, y0 := r.CellCenter(2, 1)
	cat := catalog.NewMemCatalog(map[string]catalog.MemLayer{
		"L1": {Raster: r, Zoom: catalogZoom},
	})
	srv := &Server{Catalog: cat}

	form := url.Values{
		"bbox":     {"0,0,4,4"},
		"layers":   {"L1"},
		"coords":   {"id1," + strconv.FormatFloat(x0, 'f', -1, 64) + "," + strconv.FormatFloat(y0, 'f', -1, 64)},
		"srid":     {"3857"},
		"gridCols": {"4"},
		"gridRows": {"4"},
	}
	rec := postForm(t, srv, "/gt/value", form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"id1"`)
	require.Contains(t, rec.Body.String(), "42")
}

func TestColorsEndpoint(t *testing.T) {
	srv := &Server{Catalog: catalog.NewMemCatalog(nil)}
	req := httptest.NewRequest(http.MethodGet, "/gt/colors", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "blue-to-red")
}

func TestHealthz(t *testing.T) {
	srv := &Server{Catalog: catalog.NewMemCatalog(nil)}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
