// Package catalog resolves named, zoomed raster layers to readable tiles
// and arbitrary-extent windows. It is the one component in the pipeline
// that performs I/O.
package catalog

import (
	"context"

	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// TileKey identifies one tile in a layer's pyramid.
type TileKey struct {
	Z, X, Y uint32
}

// LayerMetadata describes a layer's projection, tile geometry, and pyramid
// transform, as published by the catalog.
type LayerMetadata struct {
	Name       string
	Zoom       int
	CRS        geom.CRS
	TileCols   int
	TileRows   int
	TileExtent func(key TileKey) raster.Extent
}

// TileReader is a pure function over tile keys. A missing key returns an
// all-NoData tile of the layer's declared dimensions, never an error — this
// is what makes partial coverage at the edges of a requested window render
// correctly.
type TileReader func(ctx context.Context, key TileKey) (raster.Raster, error)

// Catalog is the read-only, process-wide, thread-safe handle to the
// pyramidal raster store. It never writes; catalog mutation is out of
// scope.
type Catalog interface {
	// Metadata resolves (name, zoom) to its LayerMetadata, failing with
	// apperr.LayerNotFound if absent.
	Metadata(ctx context.Context, name string, zoom int) (LayerMetadata, error)
	// TileReader returns the pure tile-lookup function for (name, zoom).
	TileReader(ctx context.Context, name string, zoom int) (TileReader, error)
	// ReadWindow assembles a Raster at exactly targetExtent by reading
	// overlapping native tiles at zoom and nearest-neighbor resampling into
	// the target grid. Cells outside native coverage are NoData.
	ReadWindow(ctx context.Context, name string, zoom int, target raster.RasterExtent) (raster.Raster, error)
	// Close releases the catalog handle at process shutdown.
	Close() error
}
