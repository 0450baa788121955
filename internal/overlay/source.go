package overlay

import (
	"context"

	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/MeKo-Tech/gtoverlay/internal/catalog"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// SourceFromExtent builds a Producer that materializes each requested
// layer over the same arbitrary geographic window, via Catalog.ReadWindow.
func SourceFromExtent(cat catalog.Catalog, zoom int, target raster.RasterExtent) Producer {
	return func(ctx context.Context, layerName string) (raster.Raster, error) {
		return cat.ReadWindow(ctx, layerName, zoom, target)
	}
}

// SourceFromTile builds a Producer that materializes each requested layer
// as exactly the (z, x, y) tile; the returned Raster's extent is the
// tile's geographic extent in 3857 at the catalog's declared tile
// dimensions.
func SourceFromTile(cat catalog.Catalog, z, x, y uint32) Producer {
	return func(ctx context.Context, layerName string) (raster.Raster, error) {
		meta, err := cat.Metadata(ctx, layerName, int(z))
		if err != nil {
			return raster.Raster{}, err
		}
		reader, err := cat.TileReader(ctx, layerName, int(z))
		if err != nil {
			return raster.Raster{}, err
		}
		key := catalog.TileKey{Z: z, X: x, Y: y}
		r, err := reader(ctx, key)
		if err != nil {
			return raster.Raster{}, err
		}
		_ = meta
		return r, nil
	}
}

// EnsureDimensions guards every point in this package where two
// independently-produced rasters (e.g. a weighted-overlay layer, or a layer
// mask fetched against a different producer) must agree in size before
// being combined cell-by-cell, surfacing apperr.DimensionMismatch per §4.3.
func EnsureDimensions(a, b raster.RasterExtent) error {
	if !a.SameDimensions(b) {
		return apperr.New(apperr.DimensionMismatch, raster.DimensionMismatchMsg(a, b))
	}
	return nil
}
