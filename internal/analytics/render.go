package analytics

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sort"

	"github.com/MeKo-Tech/gtoverlay/internal/colorramp"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// PNGCompression mirrors the named compression levels the teacher's tile
// encoder exposes, applied here to rendered overlay/tile PNGs.
type PNGCompression string

const (
	CompressionDefault PNGCompression = "default"
	CompressionSpeed   PNGCompression = "speed"
	CompressionBest    PNGCompression = "best"
	CompressionNone    PNGCompression = "none"
)

func (c PNGCompression) encoderLevel() png.CompressionLevel {
	switch c {
	case CompressionSpeed:
		return png.BestSpeed
	case CompressionBest:
		return png.BestCompression
	case CompressionNone:
		return png.NoCompression
	default:
		return png.DefaultCompression
	}
}

// RenderPNG colors r using the named ramp interpolated to len(breaks)
// colors, with upper-inclusive bucket assignment: a cell gets the color of
// the smallest break >= its value; below the first break takes the first
// color, above the last takes the last. NoData cells render fully
// transparent.
func RenderPNG(r raster.Raster, breaks []raster.Cell, rampName string, compression PNGCompression) ([]byte, error) {
	ramp := colorramp.Lookup(rampName)
	colors := colorramp.Interpolate(ramp, len(breaks))

	sorted := append([]raster.Cell(nil), breaks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	img := image.NewNRGBA(image.Rect(0, 0, r.Cols, r.Rows))
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			v := r.At(col, row)
			var c color.NRGBA
			if v == raster.NoData {
				c = color.NRGBA{}
			} else {
				rgba := colors[bucketIndex(sorted, v)]
				c = color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: rgba.A}
			}
			img.SetNRGBA(col, row, c)
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: compression.encoderLevel()}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bucketIndex finds the index of the smallest break >= v (upper-inclusive).
// Values above the last break clamp to the last index.
func bucketIndex(sortedBreaks []raster.Cell, v raster.Cell) int {
	for i, b := range sortedBreaks {
		if v <= b {
			return i
		}
	}
	if len(sortedBreaks) == 0 {
		return 0
	}
	return len(sortedBreaks) - 1
}
