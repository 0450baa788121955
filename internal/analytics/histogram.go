package analytics

import (
	"sync"

	"github.com/MeKo-Tech/gtoverlay/internal/geom"
	"github.com/MeKo-Tech/gtoverlay/internal/raster"
	"github.com/paulmach/orb"
)

// Histogram counts non-NoData cell values across r. With no polygons it is
// a plain histogram over every cell; with polygons it is zonal, counting
// only cells whose centers lie in the union of polys. Per-polygon partial
// histograms are computed concurrently and merged by summation, an
// associative-commutative reduction that makes disjoint-zone merges equal
// the histogram over their union (§8 invariant 7).
func Histogram(r raster.Raster, polys []orb.Polygon) map[raster.Cell]int64 {
	if len(polys) == 0 {
		return plainHistogram(r)
	}
	return zonalHistogram(r, polys)
}

func plainHistogram(r raster.Raster) map[raster.Cell]int64 {
	hist := map[raster.Cell]int64{}
	for _, v := range r.Cells {
		if v == raster.NoData {
			continue
		}
		hist[v]++
	}
	return hist
}

func zonalHistogram(r raster.Raster, polys []orb.Polygon) map[raster.Cell]int64 {
	partials := make([]map[raster.Cell]int64, len(polys))
	var wg sync.WaitGroup
	for i, poly := range polys {
		i, poly := i, poly
		wg.Add(1)
		go func() {
			defer wg.Done()
			partials[i] = histogramForZone(r, []orb.Polygon{poly})
		}()
	}
	wg.Wait()

	merged := map[raster.Cell]int64{}
	for _, p := range partials {
		for v, c := range p {
			merged[v] += c
		}
	}
	return merged
}

func histogramForZone(r raster.Raster, polys []orb.Polygon) map[raster.Cell]int64 {
	hist := map[raster.Cell]int64{}
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			v := r.At(col, row)
			if v == raster.NoData {
				continue
			}
			x, y := r.CellCenter(col, row)
			if geom.PointInPolygons(orb.Point{x, y}, polys) {
				hist[v]++
			}
		}
	}
	return hist
}
