package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// requestParams is the union of every common form parameter §6.1 names;
// handlers read only the fields relevant to their endpoint.
type requestParams struct {
	bbox      raster.Extent
	layers    []string
	weights   []int
	numBreaks int
	srid      geom.CRS
	threshold raster.Cell
	polyMask  []byte
	layerMask map[string][]int
	palette   string
	breaks    []raster.Cell
	colorRamp string
	gridCols  int
	gridRows  int
	coords    []coordTriple
}

type coordTriple struct {
	id   string
	x, y float64
}

const (
	defaultGridCols = 256
	defaultGridRows = 256
	defaultNumBreaks = 10
)

func parseCommon(r *http.Request) (requestParams, error) {
	if err := r.ParseForm(); err != nil {
		return requestParams{}, apperr.Wrap(apperr.BadRequest, err, "failed to parse form body")
	}

	p := requestParams{
		srid:      geom.CRS3857,
		threshold: raster.NoData,
		colorRamp: "blue-to-red",
		gridCols:  defaultGridCols,
		gridRows:  defaultGridRows,
		numBreaks: defaultNumBreaks,
	}

	if v := r.FormValue("bbox"); v != "" {
		bbox, err := parseBBox(v)
		if err != nil {
			return requestParams{}, err
		}
		p.bbox = bbox
	}

	if v := r.FormValue("layers"); v != "" {
		p.layers = splitNonEmpty(v, ",")
	}

	if v := r.FormValue("weights"); v != "" {
		weights, err := parseInts(v)
		if err != nil {
			return requestParams{}, apperr.Wrap(apperr.BadRequest, err, "weights must be a comma-separated list of integers")
		}
		p.weights = weights
	}

	// Endpoints that read a single layer (histogram, value sampling) send no
	// weights; the length check applies only when weights are supplied.
	if len(p.weights) > 0 && len(p.layers) != len(p.weights) {
		return requestParams{}, apperr.New(apperr.BadRequest, "layers (%d) and weights (%d) have different lengths", len(p.layers), len(p.weights))
	}

	if v := r.FormValue("numBreaks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return requestParams{}, apperr.New(apperr.BadRequest, "numBreaks must be a positive integer, got %q", v)
		}
		p.numBreaks = n
	}

	if v := r.FormValue("srid"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return requestParams{}, apperr.New(apperr.BadRequest, "srid must be an integer, got %q", v)
		}
		crs, err := geom.ParseCRS(n)
		if err != nil {
			return requestParams{}, err
		}
		p.srid = crs
	}

	if v := r.FormValue("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return requestParams{}, apperr.New(apperr.BadRequest, "threshold must be an integer, got %q", v)
		}
		p.threshold = raster.Cell(n)
	}

	p.polyMask = []byte(r.FormValue("polyMask"))

	if v := r.FormValue("layerMask"); v != "" {
		lm, err := parseLayerMask(v)
		if err != nil {
			// JSON parsing faults for layerMask degrade to "no layer mask".
			p.layerMask = nil
		} else {
			p.layerMask = lm
		}
	}

	p.palette = r.FormValue("palette")
	p.colorRamp = firstNonEmpty(r.FormValue("colorRamp"), p.colorRamp)

	if v := r.FormValue("breaks"); v != "" {
		breaks, err := parseInts(v)
		if err != nil {
			return requestParams{}, apperr.Wrap(apperr.BadRequest, err, "breaks must be a comma-separated list of integers")
		}
		p.breaks = make([]raster.Cell, len(breaks))
		for i, b := range breaks {
			p.breaks[i] = raster.Cell(b)
		}
	}

	if v := r.FormValue("gridCols"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return requestParams{}, apperr.New(apperr.BadRequest, "gridCols must be a positive integer, got %q", v)
		}
		p.gridCols = n
	}
	if v := r.FormValue("gridRows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return requestParams{}, apperr.New(apperr.BadRequest, "gridRows must be a positive integer, got %q", v)
		}
		p.gridRows = n
	}

	if v := r.FormValue("coords"); v != "" {
		coords, err := parseCoords(v)
		if err != nil {
			return requestParams{}, err
		}
		p.coords = coords
	}

	return p, nil
}

func parseBBox(v string) (raster.Extent, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return raster.Extent{}, apperr.New(apperr.BadRequest, "bbox must have 4 comma-separated values, got %q", v)
	}
	vals := make([]float64, 4)
	for i, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return raster.Extent{}, apperr.Wrap(apperr.BadRequest, err, "bbox value %q is not a number", s)
		}
		vals[i] = f
	}
	return raster.Extent{XMin: vals[0], YMin: vals[1], XMax: vals[2], YMax: vals[3]}, nil
}

func parseInts(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, len(parts))
	for i, s := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func parseLayerMask(v string) (map[string][]int, error) {
	var raw map[string][]int
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func parseCoords(v string) ([]coordTriple, error) {
	parts := strings.Split(v, ",")
	if len(parts)%3 != 0 {
		return nil, apperr.New(apperr.BadRequest, "coords must be id,x,y triples, got %d fields", len(parts))
	}
	var out []coordTriple
	for i := 0; i+2 < len(parts); i += 3 {
		id := parts[i]
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[i+2]), 64)
		if errX != nil || errY != nil {
			// Skip triples whose coordinates failed numeric parsing, per §4.6.
			continue
		}
		out = append(out, coordTriple{id: id, x: x, y: y})
	}
	return out, nil
}

func splitNonEmpty(v, sep string) []string {
	parts := strings.Split(v, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
