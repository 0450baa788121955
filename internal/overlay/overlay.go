// Package overlay implements the weighted-sum combinator and the three
// composable mask stages, parameterized over an abstract raster producer so
// extent mode and tile mode share one implementation.
package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/metrics"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
	"github.com/paulmach/orb"
)

// Producer fetches the named layer's raster for the current request's
// extent or tile, depending on which mode the caller is in. SourceFromExtent
// and SourceFromTile (in source.go) are the two concrete producers; both
// satisfy this signature so the rest of this package never distinguishes
// between them.
type Producer func(ctx context.Context, layerName string) (raster.Raster, error)

// WeightedOverlay fetches layers[i] via produce, promotes its cells to
// 8-bit then multiplies by weights[i], and sums pixelwise across all i.
// Zero-weight layers are skipped entirely so that a layer with zero weight
// but missing coverage cannot mask out the result (the edge case in the
// overlay spec's §4.4).
func WeightedOverlay(ctx context.Context, layers []string, weights []int, produce Producer) (raster.Raster, error) {
	defer func(start time.Time) {
		metrics.PipelineStageDuration.WithLabelValues("weighted_overlay").Observe(time.Since(start).Seconds())
	}(time.Now())

	if len(layers) != len(weights) {
		return raster.Raster{}, apperr.New(apperr.BadRequest, "layers (%d) and weights (%d) have different lengths", len(layers), len(weights))
	}
	if len(layers) == 0 {
		return raster.Raster{}, apperr.New(apperr.BadRequest, "at least one layer is required")
	}

	type fetched struct {
		idx int
		r   raster.Raster
	}

	var active []int
	for i, w := range weights {
		if w != 0 {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		return raster.Raster{}, apperr.New(apperr.BadRequest, "at least one layer must have a non-zero weight")
	}

	results := make([]raster.Raster, len(active))
	var wg sync.WaitGroup
	errCh := make(chan error, len(active))
	for pos, idx := range active {
		pos, idx := pos, idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := produce(ctx, layers[idx])
			if err != nil {
				errCh <- err
				return
			}
			results[pos] = r
		}()
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return raster.Raster{}, err
	}

	base := results[0].RasterExtent
	for _, r := range results[1:] {
		if err := EnsureDimensions(base, r.RasterExtent); err != nil {
			return raster.Raster{}, err
		}
	}

	out := raster.NewRaster(base)
	n := base.Cols * base.Rows
	for cellIdx := 0; cellIdx < n; cellIdx++ {
		sum := raster.Cell(0)
		nodata := false
		for pos, idx := range active {
			v := results[pos].Cells[cellIdx]
			if v == raster.NoData {
				nodata = true
				break
			}
			sum += promote8bit(v) * raster.Cell(weights[idx])
		}
		if nodata {
			out.Cells[cellIdx] = raster.NoData
		} else {
			out.Cells[cellIdx] = sum
		}
	}
	return out, nil
}

// promote8bit clamps a cell into the 8-bit range the weighted-sum stage
// operates on, matching the source's "promote to 8-bit then multiply"
// contract.
func promote8bit(v raster.Cell) raster.Cell {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

// MaskStage is a unary Raster transform. ApplyMasks left-folds a sequence
// of stages; the order passed never affects the surviving-cell set because
// every stage is conjunctive (§4.5 invariant 4).
type MaskStage func(raster.Raster) (raster.Raster, error)

// ApplyMasks runs r through each stage in order, left to right.
func ApplyMasks(r raster.Raster, stages ...MaskStage) (raster.Raster, error) {
	defer func(start time.Time) {
		metrics.PipelineStageDuration.WithLabelValues("apply_masks").Observe(time.Since(start).Seconds())
	}(time.Now())

	cur := r
	for _, stage := range stages {
		var err error
		cur, err = stage(cur)
		if err != nil {
			return raster.Raster{}, err
		}
	}
	return cur, nil
}

// PolygonMask retains a cell iff its center lies inside the union of polys;
// an empty polygon set is the identity transform.
func PolygonMask(polys []orb.Polygon) MaskStage {
	return func(r raster.Raster) (raster.Raster, error) {
		if len(polys) == 0 {
			return r, nil
		}
		out := raster.NewRaster(r.RasterExtent)
		for row := 0; row < r.Rows; row++ {
			for col := 0; col < r.Cols; col++ {
				v := r.At(col, row)
				if v == raster.NoData {
					continue
				}
				x, y := r.CellCenter(col, row)
				if geom.PointInPolygons(orb.Point{x, y}, polys) {
					out.Set(col, row, v)
				}
			}
		}
		return out, nil
	}
}

// LayerMask retains a cell iff, for every (layerName, allowedValues) pair,
// the mask layer has data at that cell and its value is in allowedValues.
// An empty masks map is the identity transform. Stages compose as logical
// AND across every named mask layer.
func LayerMask(ctx context.Context, masks map[string][]int, produce Producer) MaskStage {
	return func(r raster.Raster) (raster.Raster, error) {
		if len(masks) == 0 {
			return r, nil
		}
		out := r
		for name, allowed := range masks {
			maskRaster, err := produce(ctx, name)
			if err != nil {
				return raster.Raster{}, err
			}
			if err := EnsureDimensions(out.RasterExtent, maskRaster.RasterExtent); err != nil {
				return raster.Raster{}, err
			}
			allowSet := make(map[raster.Cell]struct{}, len(allowed))
			for _, v := range allowed {
				allowSet[raster.Cell(v)] = struct{}{}
			}
			next := raster.NewRaster(out.RasterExtent)
			for i, v := range out.Cells {
				if v == raster.NoData {
					continue
				}
				mv := maskRaster.Cells[i]
				if mv == raster.NoData {
					continue
				}
				if _, ok := allowSet[mv]; !ok {
					continue
				}
				next.Cells[i] = v
			}
			out = next
		}
		return out, nil
	}
}

// ThresholdMask retains a cell iff its value is >= t. t == raster.NoData
// disables the stage (identity).
func ThresholdMask(t raster.Cell) MaskStage {
	return func(r raster.Raster) (raster.Raster, error) {
		if t == raster.NoData {
			return r, nil
		}
		out := raster.NewRaster(r.RasterExtent)
		for i, v := range r.Cells {
			if v != raster.NoData && v >= t {
				out.Cells[i] = v
			}
		}
		return out, nil
	}
}
