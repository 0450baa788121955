package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MeKo-Tech/gtoverlay/internal/analytics"
	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/MeKo-Tech/gtoverlay/internal/catalog"
	"github.com/MeKo-Tech/gtoverlay/internal/colorramp"
	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/overlay"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// catalogZoom is a placeholder resolution strategy for extent-mode
// requests: the catalog's native zoom used to satisfy readWindow. A real
// deployment picks this from the requested bbox/resolution; tests and the
// default wiring pin it to the layer's only published zoom.
const catalogZoom = 0

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.Internal {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "error",
			"statusCode": http.StatusInternalServerError,
			"message":    ae.Message,
		})
		return
	}
	s.log().Error("internal error", "error", err)
	w.WriteHeader(http.StatusInternalServerError)
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	out := map[string][]string{}
	for name, ramp := range colorramp.Registry {
		hexes := make([]string, len(ramp))
		for i, c := range ramp {
			hexes[i] = hexColor(c.R, c.G, c.B, c.A)
		}
		out[name] = hexes
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func hexColor(r, g, b, a uint8) string {
	return "#" + hex(r) + hex(g) + hex(b) + hex(a)
}

func hex(v uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>4], digits[v&0xf]})
}

func (s *Server) buildFusedExtent(ctx context.Context, p requestParams) (raster.Raster, error) {
	target := raster.RasterExtent{Extent: p.bbox, Cols: p.gridCols, Rows: p.gridRows}
	producer := overlay.SourceFromExtent(s.Catalog, catalogZoom, target)
	fused, err := overlay.WeightedOverlay(ctx, p.layers, p.weights, producer)
	if err != nil {
		return raster.Raster{}, err
	}
	return s.applyRequestMasks(ctx, p, fused, producer)
}

func (s *Server) applyRequestMasks(ctx context.Context, p requestParams, fused raster.Raster, producer overlay.Producer) (raster.Raster, error) {
	polys := geom.ParsePolygons(s.log(), p.polyMask)
	polys, err := geom.ReprojectPolygons(polys, p.srid)
	if err != nil {
		return raster.Raster{}, err
	}
	return overlay.ApplyMasks(fused,
		overlay.PolygonMask(polys),
		overlay.LayerMask(ctx, p.layerMask, producer),
		overlay.ThresholdMask(p.threshold),
	)
}

func (s *Server) handleBreaks(w http.ResponseWriter, r *http.Request) {
	p, err := parseCommon(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	fused, err := s.buildFusedExtent(r.Context(), p)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	breaks, err := analytics.ClassBreaks(fused, p.numBreaks)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"classBreaks": breaks})
}

func (s *Server) handleWeightedOverlay(w http.ResponseWriter, r *http.Request) {
	p, err := parseCommon(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	fused, err := s.buildFusedExtent(r.Context(), p)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	breaks := p.breaks
	if len(breaks) == 0 {
		breaks, err = analytics.ClassBreaks(fused, defaultNumBreaks)
		if err != nil {
			s.errorResponse(w, err)
			return
		}
	}
	png, err := analytics.RenderPNG(fused, breaks, p.colorRamp, analytics.CompressionDefault)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	p, err := parseCommon(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	z, zerr := strconv.Atoi(chi.URLParam(r, "z"))
	x, xerr := strconv.Atoi(chi.URLParam(r, "x"))
	y, yerr := strconv.Atoi(chi.URLParam(r, "y"))
	if zerr != nil || xerr != nil || yerr != nil {
		s.errorResponse(w, apperr.New(apperr.BadRequest, "tile path must be /gt/tile/{z}/{x}/{y}.png"))
		return
	}

	ctx := r.Context()
	producer := overlay.SourceFromTile(s.Catalog, uint32(z), uint32(x), uint32(y))
	fused, err := overlay.WeightedOverlay(ctx, p.layers, p.weights, producer)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	// Tile-mode layer masks read the mask layer's native zoom (the tile's
	// own z), never an interpolated resolution; see the Open Question
	// resolution for tile-mode masks.
	masked, err := s.applyRequestMasks(ctx, p, fused, producer)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	breaks := p.breaks
	if len(breaks) == 0 {
		breaks, err = analytics.ClassBreaks(masked, defaultNumBreaks)
		if err != nil {
			s.errorResponse(w, err)
			return
		}
	}
	pngBytes, err := analytics.RenderPNG(masked, breaks, p.colorRamp, analytics.CompressionDefault)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(pngBytes)
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	p, err := parseCommon(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if len(p.layers) != 1 {
		s.errorResponse(w, apperr.New(apperr.BadRequest, "histogram requires exactly one layer, got %d", len(p.layers)))
		return
	}
	target := raster.RasterExtent{Extent: p.bbox, Cols: p.gridCols, Rows: p.gridRows}
	r2, err := s.Catalog.ReadWindow(r.Context(), p.layers[0], catalogZoom, target)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	polys := geom.ParsePolygons(s.log(), p.polyMask)
	polys, err = geom.ReprojectPolygons(polys, p.srid)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	hist := analytics.Histogram(r2, polys)

	out := make(map[string]int64, len(hist))
	for v, c := range hist {
		out[strconv.Itoa(int(v))] = c
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"elapsed": "0ms", "histogram": out})
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	p, err := parseCommon(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if len(p.layers) != 1 {
		s.errorResponse(w, apperr.New(apperr.BadRequest, "value sampling requires exactly one layer, got %d", len(p.layers)))
		return
	}
	target := raster.RasterExtent{Extent: p.bbox, Cols: p.gridCols, Rows: p.gridRows}
	window, err := s.Catalog.ReadWindow(r.Context(), p.layers[0], catalogZoom, target)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	points := toPointRequests(p.coords)
	sampled, err := analytics.SamplePointsExtent(window, points, p.srid)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	writeCoordsResponse(w, sampled)
}

func (s *Server) handleSparkValue(w http.ResponseWriter, r *http.Request) {
	p, err := parseCommon(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if len(p.layers) != 1 {
		s.errorResponse(w, apperr.New(apperr.BadRequest, "value sampling requires exactly one layer, got %d", len(p.layers)))
		return
	}
	ctx := r.Context()
	meta, err := s.Catalog.Metadata(ctx, p.layers[0], catalogZoom)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	reader, err := s.Catalog.TileReader(ctx, p.layers[0], catalogZoom)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	sampler := analytics.TileSampler{
		Zoom: catalogZoom,
		MapPointToKey: func(x, y float64) catalog.TileKey {
			return mapPointToTileKey(meta, x, y)
		},
		Reader: reader,
	}
	points := toPointRequests(p.coords)
	sampled, err := analytics.SamplePointsTiled(ctx, sampler, points, p.srid)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	writeCoordsResponse(w, sampled)
}

func mapPointToTileKey(meta catalog.LayerMetadata, x, y float64) catalog.TileKey {
	origin := meta.TileExtent(catalog.TileKey{Z: uint32(meta.Zoom)})
	span := origin.Width()
	tx := int((x - origin.XMin) / span)
	ty := int((origin.YMax - y) / span)
	if tx < 0 {
		tx = 0
	}
	if ty < 0 {
		ty = 0
	}
	return catalog.TileKey{Z: uint32(meta.Zoom), X: uint32(tx), Y: uint32(ty)}
}

func toPointRequests(coords []coordTriple) []analytics.PointRequest {
	out := make([]analytics.PointRequest, len(coords))
	for i, c := range coords {
		out[i] = analytics.PointRequest{ID: c.id, X: c.x, Y: c.y}
	}
	return out
}

func writeCoordsResponse(w http.ResponseWriter, sampled []analytics.SampledPoint) {
	rows := make([][]any, len(sampled))
	for i, s := range sampled {
		rows[i] = []any{s.ID, s.X, s.Y, int32(s.Value)}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"coords": rows})
}
