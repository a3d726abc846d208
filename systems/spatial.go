// Package systems provides the per-tick building blocks of the ant
// simulation: the spatial index, agent state, sensing and trails.
package systems

import (
	"math"

	"github.com/pthm-cable/anthill/components"
)

// SpatialGrid buckets items of a square region [-W, W]² into an S×S array of
// cells for radius queries. Positions outside the region clamp to the
// nearest edge cell.
type SpatialGrid[T any] struct {
	size      int
	halfWidth float32
	cellWidth float32
	cells     [][]T // flat grid of item lists, row-major
}

// NewSpatialGrid creates a size×size grid covering [-halfWidth, halfWidth]².
func NewSpatialGrid[T any](size int, halfWidth float32) *SpatialGrid[T] {
	if size < 1 {
		size = 1
	}

	cells := make([][]T, size*size)
	for i := range cells {
		cells[i] = make([]T, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid[T]{
		size:      size,
		halfWidth: halfWidth,
		cellWidth: halfWidth * 2 / float32(size),
		cells:     cells,
	}
}

// Size returns the number of cells per axis.
func (g *SpatialGrid[T]) Size() int { return g.size }

// CellWidth returns the side length of one cell.
func (g *SpatialGrid[T]) CellWidth() float32 { return g.cellWidth }

// Clear removes all items from the grid, keeping bucket capacity.
func (g *SpatialGrid[T]) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an item to the cell owning pos.
func (g *SpatialGrid[T]) Insert(pos components.Vec2, item T) {
	x, y := g.CellIndex(pos)
	idx := y*g.size + x
	g.cells[idx] = append(g.cells[idx], item)
}

// CellIndex returns the clamped cell coordinates for a world position.
func (g *SpatialGrid[T]) CellIndex(pos components.Vec2) (x, y int) {
	return g.axisIndex(pos.X), g.axisIndex(pos.Y)
}

// axisIndex maps one coordinate to a cell column/row, clamped to [0, size-1].
// NaN maps to 0.
func (g *SpatialGrid[T]) axisIndex(coord float32) int {
	f := math.Floor(float64((coord + g.halfWidth) / g.cellWidth))
	if !(f >= 0) {
		return 0
	}
	if f >= float64(g.size-1) {
		return g.size - 1
	}
	return int(f)
}

// ForEachInRadius calls fn for every non-empty cell whose square intersects
// the circle (pos, radius). Each such cell is visited exactly once and no
// non-intersecting cell is visited. fn receives the bucket by pointer so it
// may remove items; returning false stops the query.
func (g *SpatialGrid[T]) ForEachInRadius(pos components.Vec2, radius float32, fn func(cell *[]T) bool) {
	if !(radius >= 0) {
		return
	}

	minX := g.axisIndex(pos.X - radius)
	maxX := g.axisIndex(pos.X + radius)
	minY := g.axisIndex(pos.Y - radius)
	maxY := g.axisIndex(pos.Y + radius)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			idx := y*g.size + x
			if len(g.cells[idx]) == 0 {
				continue
			}

			center := g.cellCenter(x, y)
			if !CircleIntersectsSquare(pos, radius, center, g.cellWidth) {
				continue
			}

			if !fn(&g.cells[idx]) {
				return
			}
		}
	}
}

// cellCenter returns the world position of a cell's center.
func (g *SpatialGrid[T]) cellCenter(x, y int) components.Vec2 {
	return components.Vec2{
		X: (float32(x)+0.5)*g.cellWidth - g.halfWidth,
		Y: (float32(y)+0.5)*g.cellWidth - g.halfWidth,
	}
}

// Retain drops every item for which keep returns false, in place.
func (g *SpatialGrid[T]) Retain(keep func(T) bool) {
	for i, cell := range g.cells {
		kept := cell[:0]
		for _, item := range cell {
			if keep(item) {
				kept = append(kept, item)
			}
		}
		// Zero the tail so dropped items can be collected
		var zero T
		for j := len(kept); j < len(cell); j++ {
			cell[j] = zero
		}
		g.cells[i] = kept
	}
}

// All flattens every bucket into a new slice. Meant for read-only full scans
// (stats, benchmarks), not the simulation step.
func (g *SpatialGrid[T]) All() []T {
	out := make([]T, 0, g.Len())
	for _, cell := range g.cells {
		out = append(out, cell...)
	}
	return out
}

// Len returns the total number of items in the grid.
func (g *SpatialGrid[T]) Len() int {
	n := 0
	for _, cell := range g.cells {
		n += len(cell)
	}
	return n
}
