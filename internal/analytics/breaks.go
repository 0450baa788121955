// Package analytics implements the four analytics the pipeline exposes
// over a fused raster: class breaks, color-ramped PNG rendering, histogram,
// and point sampling.
package analytics

import (
	"sort"

	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// ClassBreaks returns at most n strictly increasing cell values
// partitioning the raster's non-NoData value distribution into
// approximately even quantiles. Ties are resolved by preferring fewer
// distinct breaks. An empty histogram returns UnableToCompute.
func ClassBreaks(r raster.Raster, n int) ([]raster.Cell, error) {
	if n <= 0 {
		return nil, apperr.New(apperr.BadRequest, "numBreaks must be positive, got %d", n)
	}

	values := make([]raster.Cell, 0, len(r.Cells))
	for _, v := range r.Cells {
		if v != raster.NoData {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, apperr.New(apperr.UnableToCompute, "Unable to calculate breaks (NODATA)")
	}

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	breaks := make([]raster.Cell, 0, n)
	seen := map[raster.Cell]struct{}{}
	for i := 1; i <= n; i++ {
		idx := i*len(values)/n - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(values) {
			idx = len(values) - 1
		}
		v := values[idx]
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		breaks = append(breaks, v)
	}
	return breaks, nil
}
