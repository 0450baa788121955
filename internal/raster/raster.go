// Package raster defines the core grid value type the rest of the pipeline
// operates on: a row-major grid of signed 32-bit cells carrying a NoData
// sentinel, paired with the geospatial extent it covers.
package raster

import "fmt"

// Cell is a single raster value. NoData is absorbing across every pipeline
// stage: any operation touching a NoData cell yields NoData.
type Cell int32

// NoData is the sentinel denoting "no measurement at this cell".
const NoData Cell = -(1 << 31)

// IsData reports whether v carries a real measurement.
func IsData(v Cell) bool {
	return v != NoData
}

// Extent is an axis-aligned rectangle in a raster's projection.
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// Width returns the extent's horizontal span.
func (e Extent) Width() float64 { return e.XMax - e.XMin }

// Height returns the extent's vertical span.
func (e Extent) Height() float64 { return e.YMax - e.YMin }

// RasterExtent pairs an Extent with the column/row counts of the grid it
// backs, defining the affine mapping between geographic coordinates and
// cell indices.
type RasterExtent struct {
	Extent
	Cols, Rows int
}

// CellWidth is the geographic width of one cell.
func (e RasterExtent) CellWidth() float64 {
	return e.Width() / float64(e.Cols)
}

// CellHeight is the geographic height of one cell.
func (e RasterExtent) CellHeight() float64 {
	return e.Height() / float64(e.Rows)
}

// CellCenter returns the geographic coordinate of the center of cell
// (col, row). Row 0 is the top row, matching the raster's top-left origin.
func (e RasterExtent) CellCenter(col, row int) (x, y float64) {
	x = e.XMin + (float64(col)+0.5)*e.CellWidth()
	y = e.YMax - (float64(row)+0.5)*e.CellHeight()
	return x, y
}

// ColRowAt maps a geographic coordinate to the cell containing it. ok is
// false when (x, y) falls outside the extent.
func (e RasterExtent) ColRowAt(x, y float64) (col, row int, ok bool) {
	if x < e.XMin || x > e.XMax || y < e.YMin || y > e.YMax {
		return 0, 0, false
	}
	col = int((x - e.XMin) / e.CellWidth())
	row = int((e.YMax - y) / e.CellHeight())
	if col >= e.Cols {
		col = e.Cols - 1
	}
	if row >= e.Rows {
		row = e.Rows - 1
	}
	return col, row, true
}

// SameDimensions reports whether two extents have matching column/row
// counts, the agreement mask and overlay stages require between inputs.
func (e RasterExtent) SameDimensions(o RasterExtent) bool {
	return e.Cols == o.Cols && e.Rows == o.Rows
}

// Raster is a RasterExtent plus its backing cell grid, row-major,
// top-left origin.
type Raster struct {
	RasterExtent
	Cells []Cell
}

// NewRaster allocates a Raster of the given extent with every cell set to
// NoData.
func NewRaster(extent RasterExtent) Raster {
	cells := make([]Cell, extent.Cols*extent.Rows)
	for i := range cells {
		cells[i] = NoData
	}
	return Raster{RasterExtent: extent, Cells: cells}
}

// At returns the cell at (col, row).
func (r Raster) At(col, row int) Cell {
	return r.Cells[row*r.Cols+col]
}

// Set assigns the cell at (col, row).
func (r Raster) Set(col, row int, v Cell) {
	r.Cells[row*r.Cols+col] = v
}

// IsData reports whether the cell at (col, row) carries a measurement.
func (r Raster) IsData(col, row int) bool {
	return IsData(r.At(col, row))
}

// ValueRange returns the minimum and maximum non-NoData cell values. ok is
// false if the raster is entirely NoData.
func (r Raster) ValueRange() (min, max Cell, ok bool) {
	first := true
	for _, v := range r.Cells {
		if v == NoData {
			continue
		}
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, !first
}

// DimensionMismatchMsg formats the message shared by overlay and mask code
// when two rasters participating in one pipeline run disagree on size.
func DimensionMismatchMsg(a, b RasterExtent) string {
	return fmt.Sprintf("raster dimensions disagree: %dx%d vs %dx%d", a.Cols, a.Rows, b.Cols, b.Rows)
}
