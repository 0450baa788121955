package catalog

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// ReadWindowFromTileReader is the shared readWindow implementation both
// concrete catalogs delegate to: it walks the target grid's cell centers,
// locates each one's covering native tile through mapPointToTile, fetches
// each distinct native tile at most once via reader, and nearest-neighbor
// samples into the target through each tile's own extent.
//
// Native tile reads that cover the window are fanned out across a bounded
// worker pool, grounded on the same channel+WaitGroup shape used
// throughout this codebase for internal I/O fan-out (catalog reads are the
// only suspension points per the concurrency model).
func ReadWindowFromTileReader(
	ctx context.Context,
	meta LayerMetadata,
	reader TileReader,
	mapPointToTile func(x, y float64) TileKey,
	target raster.RasterExtent,
	maxWorkers int,
) (raster.Raster, error) {
	out := raster.NewRaster(target)

	// Determine the distinct set of native tiles the window touches.
	needed := map[TileKey]struct{}{}
	for row := 0; row < target.Rows; row++ {
		for col := 0; col < target.Cols; col++ {
			x, y := target.CellCenter(col, row)
			needed[mapPointToTile(x, y)] = struct{}{}
		}
	}

	keys := make([]TileKey, 0, len(needed))
	for k := range needed {
		keys = append(keys, k)
	}

	tiles := make(map[TileKey]raster.Raster, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, len(keys))

	workers := maxWorkers
	if workers <= 0 || workers > len(keys) {
		workers = len(keys)
	}
	if workers == 0 {
		return out, nil
	}
	jobs := make(chan TileKey, len(keys))
	for _, k := range keys {
		jobs <- k
	}
	close(jobs)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				default:
				}
				t, err := reader(ctx, k)
				if err != nil {
					errCh <- err
					return
				}
				mu.Lock()
				tiles[k] = t
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return raster.Raster{}, err
	}

	for row := 0; row < target.Rows; row++ {
		for col := 0; col < target.Cols; col++ {
			x, y := target.CellCenter(col, row)
			key := mapPointToTile(x, y)
			tile, ok := tiles[key]
			if !ok {
				continue
			}
			tc, tr, ok := tile.ColRowAt(x, y)
			if !ok {
				continue
			}
			out.Set(col, row, tile.At(tc, tr))
		}
	}

	return out, nil
}
