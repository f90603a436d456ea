// internal/portion/mask.go
package portion

import (
	"meal-estimator/internal/apperr"
)

// Mask marks the pixels that belong to one item.
type Mask struct {
	height, width int
	bits          []bool
}

// NewMask returns an all-false mask of the given shape.
func NewMask(height, width int) *Mask {
	return &Mask{height: height, width: width, bits: make([]bool, height*width)}
}

func (m *Mask) Height() int { return m.height }
func (m *Mask) Width() int  { return m.width }

func (m *Mask) Set(r, c int, v bool) {
	m.bits[r*m.width+c] = v
}

func (m *Mask) Contains(r, c int) bool {
	return m.bits[r*m.width+c]
}

// Count returns the number of pixels in the mask.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Partitioner splits a pixel grid into one region per item, in item order.
// Implementations must return exactly n masks of the requested shape.
type Partitioner interface {
	Partition(height, width, n int) ([]*Mask, error)
}

// EqualSlabs partitions the grid into n full-height vertical slabs of equal
// width, the last slab absorbing the remainder. It stands in for real
// segmentation: the leftmost item gets the leftmost slab.
type EqualSlabs struct{}

func (EqualSlabs) Partition(height, width, n int) ([]*Mask, error) {
	if n < 1 {
		return nil, apperr.Malformedf("cannot partition into %d regions", n)
	}
	if height < 0 || width < 0 {
		return nil, apperr.Malformedf("bad grid shape %dx%d", height, width)
	}

	slab := width / n
	if slab < 1 {
		slab = 1
	}

	masks := make([]*Mask, 0, n)
	for i := 0; i < n; i++ {
		start := min(i*slab, width)
		end := min((i+1)*slab, width)
		if i == n-1 {
			end = width
		}
		m := NewMask(height, width)
		for r := 0; r < height; r++ {
			for c := start; c < end; c++ {
				m.Set(r, c, true)
			}
		}
		masks = append(masks, m)
	}
	return masks, nil
}
