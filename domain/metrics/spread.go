package metrics

import (
	"image"
	"math"

	"github.com/soocke/bleedscan-go/domain/redness"
)

// risingFloor is the minimum positive cell delta counted as a rising cell.
const risingFloor = 0.01

// SpreadEngine compares per-cell red ratios to separate local growth from global change.
type SpreadEngine struct{ params Params }

func (e *SpreadEngine) Variant() Variant { return VariantSpread }

func (e *SpreadEngine) Extract(img *image.RGBA, t float64, roi *redness.Mask) *Features {
	f := baseFeatures(e.params.Classifier, img, t, roi)
	f.Cells = CellRatios(f.Red, roi, f.W, f.H, e.params.GridSize)
	f.Red = nil
	return f
}

// CellRatios computes the red ratio of each grid cell over its ROI pixels. Cell edges are
// int(r*h/g) and int(c*w/g), so cells need not be equal. Cells without ROI pixels are 0.
func CellRatios(red, roi *redness.Mask, w, h, grid int) []float64 {
	cells := make([]float64, grid*grid)
	for r := 0; r < grid; r++ {
		y0, y1 := r*h/grid, (r+1)*h/grid
		for c := 0; c < grid; c++ {
			x0, x1 := c*w/grid, (c+1)*w/grid
			redN, total := 0, 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					i := y*w + x
					if !inROI(roi, i) {
						continue
					}
					total++
					if red.Index(i) {
						redN++
					}
				}
			}
			if total > 0 {
				cells[r*grid+c] = float64(redN) / float64(total)
			}
		}
	}
	return cells
}

func (e *SpreadEngine) Step(prev, cur *Features) Sample {
	s := Sample{T: cur.T, RedRatio: cur.RedRatio}
	if prev == nil {
		return s
	}
	return spreadFromCells(s, prev.Cells, cur.Cells)
}

func spreadFromCells(s Sample, prev, cur []float64) Sample {
	n := len(cur)
	if n == 0 || len(prev) != n {
		return s
	}
	deltas := make([]float64, n)
	sum := 0.0
	for i := range cur {
		d := cur[i] - prev[i]
		deltas[i] = d
		sum += d
		if d > s.MaxCellDelta {
			s.MaxCellDelta = d
		}
		if d > risingFloor {
			s.NRisingCells++
		}
	}
	mean := sum / float64(n)
	ss := 0.0
	for _, d := range deltas {
		ss += (d - mean) * (d - mean)
	}
	s.DeltaStd = math.Sqrt(ss / float64(n))
	s.SpreadScore = s.DeltaStd * s.MaxCellDelta
	return s
}

var _ Engine = (*SpreadEngine)(nil)
