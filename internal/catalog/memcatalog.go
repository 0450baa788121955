package catalog

import (
	"context"

	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// MemLayer is one named, single-zoom raster layer backing a MemCatalog.
type MemLayer struct {
	Raster raster.Raster
	Zoom   int
}

// MemCatalog is an in-memory Catalog over a fixed set of whole-layer
// rasters, used by tests and by the end-to-end scenario fixtures. It treats
// each layer as a single "tile" spanning its entire extent, since the test
// fixtures in this repo are single-resolution rasters rather than real
// tile pyramids.
type MemCatalog struct {
	layers map[string]MemLayer
}

// NewMemCatalog builds a MemCatalog from a name -> layer map.
func NewMemCatalog(layers map[string]MemLayer) *MemCatalog {
	return &MemCatalog{layers: layers}
}

func (c *MemCatalog) lookup(name string, zoom int) (MemLayer, error) {
	l, ok := c.layers[name]
	if !ok || l.Zoom != zoom {
		return MemLayer{}, apperr.New(apperr.LayerNotFound, "no layer %q at zoom %d", name, zoom)
	}
	return l, nil
}

func (c *MemCatalog) Metadata(_ context.Context, name string, zoom int) (LayerMetadata, error) {
	l, err := c.lookup(name, zoom)
	if err != nil {
		return LayerMetadata{}, err
	}
	return LayerMetadata{
		Name:     name,
		Zoom:     zoom,
		CRS:      geom.CRS3857,
		TileCols: l.Raster.Cols,
		TileRows: l.Raster.Rows,
		TileExtent: func(TileKey) raster.Extent {
			return l.Raster.Extent
		},
	}, nil
}

func (c *MemCatalog) TileReader(_ context.Context, name string, zoom int) (TileReader, error) {
	l, err := c.lookup(name, zoom)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, _ TileKey) (raster.Raster, error) {
		return l.Raster, nil
	}, nil
}

func (c *MemCatalog) ReadWindow(_ context.Context, name string, zoom int, target raster.RasterExtent) (raster.Raster, error) {
	l, err := c.lookup(name, zoom)
	if err != nil {
		return raster.Raster{}, err
	}
	out := raster.NewRaster(target)
	for row := 0; row < target.Rows; row++ {
		for col := 0; col < target.Cols; col++ {
			x, y := target.CellCenter(col, row)
			sc, sr, ok := l.Raster.ColRowAt(x, y)
			if !ok {
				continue
			}
			out.Set(col, row, l.Raster.At(sc, sr))
		}
	}
	return out, nil
}

func (c *MemCatalog) Close() error { return nil }
