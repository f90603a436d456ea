// internal/portion/plane.go
package portion

import (
	"math"

	"github.com/montanaflynn/stats"
)

// PlaneDepth estimates the depth of the supporting surface as the median of the
// border pixels (top row, bottom row, left column, right column; corners appear
// once per edge). NaN samples are ignored. A border with no valid sample yields
// NaN, which leaves every pixel without a measurable height.
func PlaneDepth(dm *DepthMap) float64 {
	if dm.Empty() {
		return math.NaN()
	}
	h, w := dm.Height(), dm.Width()

	border := make([]float64, 0, 2*w+2*h)
	border = append(border, dm.row(0)...)
	border = append(border, dm.row(h-1)...)
	for r := 0; r < h; r++ {
		border = append(border, dm.At(r, 0))
	}
	for r := 0; r < h; r++ {
		border = append(border, dm.At(r, w-1))
	}

	valid := border[:0]
	for _, d := range border {
		if !math.IsNaN(d) {
			valid = append(valid, d)
		}
	}

	median, err := stats.Median(valid)
	if err != nil {
		return math.NaN()
	}
	return median
}
