// internal/portion/depth_map.go
package portion

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"meal-estimator/internal/apperr"
)

// DepthMap is a grid of scene depths in meters. NaN marks an invalid sample.
// The zero value is an empty map.
type DepthMap struct {
	data *mat.Dense
}

// NewDepthMap copies a row-major grid into a DepthMap. Rows must all have the same width.
func NewDepthMap(rows [][]float64) (*DepthMap, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return &DepthMap{}, nil
	}
	width := len(rows[0])
	flat := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, apperr.Malformedf("depth row %d has width %d, want %d", i, len(row), width)
		}
		flat = append(flat, row...)
	}
	return &DepthMap{data: mat.NewDense(len(rows), width, flat)}, nil
}

// NewDepthMapFromValues copies height*width row-major values into a DepthMap.
func NewDepthMapFromValues(height, width int, values []float64) (*DepthMap, error) {
	if height < 0 || width < 0 {
		return nil, apperr.Malformedf("bad depth map size %dx%d", height, width)
	}
	if len(values) != height*width {
		return nil, apperr.Malformedf("depth map has %d values, want %d (%dx%d)", len(values), height*width, height, width)
	}
	if height == 0 || width == 0 {
		return &DepthMap{}, nil
	}
	flat := make([]float64, len(values))
	copy(flat, values)
	return &DepthMap{data: mat.NewDense(height, width, flat)}, nil
}

func (dm *DepthMap) Empty() bool {
	return dm == nil || dm.data == nil
}

func (dm *DepthMap) Height() int {
	if dm.Empty() {
		return 0
	}
	r, _ := dm.data.Dims()
	return r
}

func (dm *DepthMap) Width() int {
	if dm.Empty() {
		return 0
	}
	_, c := dm.data.Dims()
	return c
}

// At returns the depth at row r, column c.
func (dm *DepthMap) At(r, c int) float64 {
	return dm.data.At(r, c)
}

func (dm *DepthMap) row(r int) []float64 {
	return dm.data.RawRowView(r)
}

// Max returns the largest non-NaN depth, or 0 for an empty or all-NaN map.
func (dm *DepthMap) Max() float64 {
	if dm.Empty() {
		return 0
	}
	best, seen := 0.0, false
	for r := 0; r < dm.Height(); r++ {
		for _, d := range dm.row(r) {
			if math.IsNaN(d) {
				continue
			}
			if !seen || d > best {
				best, seen = d, true
			}
		}
	}
	return best
}
