// Package sqlitecatalog implements catalog.Catalog over a SQLite database
// storing one row per (layer, zoom, tile_column, tile_row), the same schema
// shape as an MBTiles store but holding gzip-compressed int32 cell buffers
// instead of PNG blobs.
package sqlitecatalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/gtoverlay/internal/apperr"
	"github.com/MeKo-Tech/gtoverlay/internal/catalog"
	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/metrics"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// DefaultTileCacheSize bounds the number of decoded tiles kept in the one
// cache shared by all layers and zooms of a Store, in front of the SQLite
// reads a readWindow or batch sample touches.
const DefaultTileCacheSize = 256

// DefaultWindowWorkers bounds the parallel tile fan-out inside ReadWindow.
const DefaultWindowWorkers = 8

// Store is a catalog.Catalog backed by a read-only SQLite database.
type Store struct {
	db    *sql.DB
	cache *lru.Cache[cacheKey, raster.Raster]
}

type cacheKey struct {
	layer string
	zoom  int
	x, y  uint32
}

// Open opens path read-only and verifies the expected schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tiles'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("verify catalog schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("catalog database has no tiles table")
	}

	cache, err := lru.New[cacheKey, raster.Raster](DefaultTileCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create tile cache: %w", err)
	}

	return &Store{db: db, cache: cache}, nil
}

// CreateSchema creates the layers/tiles tables on a fresh database. Exposed
// for catalog-seeding tooling; not used by the read path.
func CreateSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS layers (
			name TEXT NOT NULL,
			zoom INTEGER NOT NULL,
			srid INTEGER NOT NULL,
			tile_cols INTEGER NOT NULL,
			tile_rows INTEGER NOT NULL,
			origin_x REAL NOT NULL,
			origin_y REAL NOT NULL,
			tile_span REAL NOT NULL,
			PRIMARY KEY (name, zoom)
		);

		CREATE TABLE IF NOT EXISTS tiles (
			layer_name TEXT NOT NULL,
			zoom_level INTEGER NOT NULL,
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			cell_data BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS tile_index
			ON tiles (layer_name, zoom_level, tile_column, tile_row);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Metadata(_ context.Context, name string, zoom int) (catalog.LayerMetadata, error) {
	var srid, cols, rows int
	var originX, originY, span float64
	err := s.db.QueryRow(
		"SELECT srid, tile_cols, tile_rows, origin_x, origin_y, tile_span FROM layers WHERE name=? AND zoom=?",
		name, zoom,
	).Scan(&srid, &cols, &rows, &originX, &originY, &span)
	if err == sql.ErrNoRows {
		return catalog.LayerMetadata{}, apperr.New(apperr.LayerNotFound, "no layer %q at zoom %d", name, zoom)
	}
	if err != nil {
		return catalog.LayerMetadata{}, fmt.Errorf("query layer metadata: %w", err)
	}

	crs, err := geom.ParseCRS(srid)
	if err != nil {
		return catalog.LayerMetadata{}, err
	}

	return catalog.LayerMetadata{
		Name:     name,
		Zoom:     zoom,
		CRS:      crs,
		TileCols: cols,
		TileRows: rows,
		TileExtent: func(key catalog.TileKey) raster.Extent {
			xmin := originX + float64(key.X)*span
			ymax := originY - float64(key.Y)*span
			return raster.Extent{XMin: xmin, YMin: ymax - span, XMax: xmin + span, YMax: ymax}
		},
	}, nil
}

func (s *Store) TileReader(_ context.Context, name string, zoom int) (catalog.TileReader, error) {
	meta, err := s.Metadata(context.Background(), name, zoom)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, key catalog.TileKey) (raster.Raster, error) {
		return s.readTile(ctx, name, zoom, meta, key)
	}, nil
}

func (s *Store) readTile(_ context.Context, name string, zoom int, meta catalog.LayerMetadata, key catalog.TileKey) (raster.Raster, error) {
	ck := cacheKey{layer: name, zoom: zoom, x: key.X, y: key.Y}
	if r, ok := s.cache.Get(ck); ok {
		metrics.CatalogTileReads.WithLabelValues("hit").Inc()
		return r, nil
	}
	metrics.CatalogTileReads.WithLabelValues("miss").Inc()

	var compressed []byte
	err := s.db.QueryRow(
		"SELECT cell_data FROM tiles WHERE layer_name=? AND zoom_level=? AND tile_column=? AND tile_row=?",
		name, zoom, key.X, key.Y,
	).Scan(&compressed)

	extent := meta.TileExtent(key)
	re := raster.RasterExtent{Extent: extent, Cols: meta.TileCols, Rows: meta.TileRows}

	if err == sql.ErrNoRows {
		// Missing tiles are all-NoData, not an error, so partial coverage at
		// the edges of a window renders correctly.
		empty := raster.NewRaster(re)
		s.cache.Add(ck, empty)
		return empty, nil
	}
	if err != nil {
		return raster.Raster{}, fmt.Errorf("query tile %d/%d/%d for %q: %w", zoom, key.X, key.Y, name, err)
	}

	cells, err := decodeCells(compressed)
	if err != nil {
		return raster.Raster{}, fmt.Errorf("decode tile %d/%d/%d for %q: %w", zoom, key.X, key.Y, name, err)
	}
	r := raster.Raster{RasterExtent: re, Cells: cells}
	s.cache.Add(ck, r)
	return r, nil
}

func (s *Store) ReadWindow(ctx context.Context, name string, zoom int, target raster.RasterExtent) (raster.Raster, error) {
	meta, err := s.Metadata(ctx, name, zoom)
	if err != nil {
		return raster.Raster{}, err
	}
	reader, err := s.TileReader(ctx, name, zoom)
	if err != nil {
		return raster.Raster{}, err
	}

	originX, originY, span := tileOriginAndSpan(meta)
	mapPointToTile := func(x, y float64) catalog.TileKey {
		tx := int64(math.Floor((x - originX) / span))
		ty := int64(math.Floor((originY - y) / span))
		if tx < 0 {
			tx = 0
		}
		if ty < 0 {
			ty = 0
		}
		return catalog.TileKey{Z: uint32(zoom), X: uint32(tx), Y: uint32(ty)}
	}

	return catalog.ReadWindowFromTileReader(ctx, meta, reader, mapPointToTile, target, DefaultWindowWorkers)
}

// tileOriginAndSpan recovers the pyramid's origin/span by asking
// TileExtent for tile (0,0); the sqlitecatalog schema stores these
// directly, so this is exact, not an approximation.
func tileOriginAndSpan(meta catalog.LayerMetadata) (originX, originY, span float64) {
	e := meta.TileExtent(catalog.TileKey{Z: uint32(meta.Zoom), X: 0, Y: 0})
	return e.XMin, e.YMax, e.Width()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decodeCells(compressed []byte) ([]raster.Cell, error) {
	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt cell buffer: length %d not a multiple of 4", len(raw))
	}
	cells := make([]raster.Cell, len(raw)/4)
	for i := range cells {
		cells[i] = raster.Cell(int32(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return cells, nil
}

// EncodeCells gzip-compresses a row-major cell buffer for storage, the
// write-side counterpart of decodeCells. Exposed for catalog-seeding
// tooling.
func EncodeCells(cells []raster.Cell) ([]byte, error) {
	raw := make([]byte, len(cells)*4)
	for i, c := range cells {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(int32(c)))
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
