package sqlitecatalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/MeKo-Tech/gtoverlay/internal/catalog"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
	"github.com/stretchr/testify/require"
)

func seedDB(t *testing.T, path string, layer string, zoom int, cols, rows int, cells []raster.Cell) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateSchema(db))

	_, err = db.Exec(
		"INSERT INTO layers (name, zoom, srid, tile_cols, tile_rows, origin_x, origin_y, tile_span) VALUES (?,?,?,?,?,?,?,?)",
		layer, zoom, 3857, cols, rows, 0.0, float64(rows), float64(cols),
	)
	require.NoError(t, err)

	blob, err := EncodeCells(cells)
	require.NoError(t, err)

	_, err = db.Exec(
		"INSERT INTO tiles (layer_name, zoom_level, tile_column, tile_row, cell_data) VALUES (?,?,?,?,?)",
		layer, zoom, 0, 0, blob,
	)
	require.NoError(t, err)
}

func TestStoreMetadataAndTileRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	cells := make([]raster.Cell, 4*4)
	for i := range cells {
		cells[i] = raster.Cell(i)
	}
	seedDB(t, path, "L1", 5, 4, 4, cells)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	meta, err := store.Metadata(ctx, "L1", 5)
	require.NoError(t, err)
	require.Equal(t, 4, meta.TileCols)
	require.Equal(t, 4, meta.TileRows)

	reader, err := store.TileReader(ctx, "L1", 5)
	require.NoError(t, err)

	tile, err := reader(ctx, catalog.TileKey{Z: 5, X: 0, Y: 0})
	require.NoError(t, err)
	require.Equal(t, raster.Cell(0), tile.At(0, 0))
	require.Equal(t, raster.Cell(15), tile.At(3, 3))
}

func TestStoreMissingTileIsAllNoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	seedDB(t, path, "L1", 5, 2, 2, []raster.Cell{1, 2, 3, 4})

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	reader, err := store.TileReader(ctx, "L1", 5)
	require.NoError(t, err)

	tile, err := reader(ctx, catalog.TileKey{Z: 5, X: 7, Y: 7})
	require.NoError(t, err)
	for _, c := range tile.Cells {
		require.Equal(t, raster.NoData, c)
	}
}

func TestStoreMetadataLayerNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	seedDB(t, path, "L1", 5, 2, 2, []raster.Cell{1, 2, 3, 4})

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Metadata(context.Background(), "missing", 5)
	require.Error(t, err)
}
