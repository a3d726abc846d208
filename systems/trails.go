package systems

import (
	"math"

	"github.com/pthm-cable/anthill/components"
)

// TrailParams holds pheromone deposit constants.
type TrailParams struct {
	Growth      float32 // size multiplier per tick, > 1
	Threshold   float32 // density below which a generation is removed, > 0
	Strength    float32
	InitialSize float32 // > 0
}

// trailSlot is one generation of deposits. A slot whose live flag is false
// is a tombstone waiting to be reused by the next spawn.
type trailSlot struct {
	size     float32
	strength float32
	live     bool
}

// TrailGeneration is a read-only view of one live generation.
type TrailGeneration struct {
	Slot      int
	Positions []components.Vec2
	Colors    []components.Color
	Size      float32
	Density   float32
}

// TrailField holds decaying pheromone deposits. Every spawn writes one
// point per ant into a fixed-width slot; point indices (slot*width + ant)
// are registered in a spatial grid and never renumbered while the slot is
// live.
type TrailField struct {
	width     int
	positions []components.Vec2
	colors    []components.Color
	slots     []trailSlot
	grid      *SpatialGrid[int]
	params    TrailParams
	live      int

	removeMask []bool // scratch for Decay
}

// NewTrailField creates an empty field for width ants.
func NewTrailField(width, gridSize int, halfWidth float32, p TrailParams) *TrailField {
	return &TrailField{
		width:  width,
		grid:   NewSpatialGrid[int](gridSize, halfWidth),
		params: p,
	}
}

// Reset removes every generation.
func (f *TrailField) Reset() {
	f.positions = f.positions[:0]
	f.colors = f.colors[:0]
	f.slots = f.slots[:0]
	f.grid.Clear()
	f.live = 0
}

// Spawn deposits one point per ant. The first tombstoned slot is reused,
// otherwise a new slot is appended. Returns the slot index.
func (f *TrailField) Spawn(positions []components.Vec2, colors []components.Color) int {
	slot := -1
	for i := range f.slots {
		if !f.slots[i].live {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = len(f.slots)
		f.slots = append(f.slots, trailSlot{})
		f.positions = append(f.positions, make([]components.Vec2, f.width)...)
		f.colors = append(f.colors, make([]components.Color, f.width)...)
	}

	start := slot * f.width
	copy(f.positions[start:start+f.width], positions)
	copy(f.colors[start:start+f.width], colors)
	f.slots[slot] = trailSlot{
		size:     f.params.InitialSize,
		strength: f.params.Strength,
		live:     true,
	}

	for i := 0; i < f.width; i++ {
		f.grid.Insert(f.positions[start+i], start+i)
	}
	f.live++

	return slot
}

// Decay grows every live generation and removes those whose density fell
// below the threshold. Returns the number of generations removed.
func (f *TrailField) Decay() int {
	if cap(f.removeMask) < len(f.slots) {
		f.removeMask = make([]bool, len(f.slots))
	}
	mask := f.removeMask[:len(f.slots)]

	removed := 0
	for i := range f.slots {
		mask[i] = false
		s := &f.slots[i]
		if !s.live {
			continue
		}
		s.size *= f.params.Growth
		if density(s.strength, s.size) < f.params.Threshold {
			s.live = false
			mask[i] = true
			removed++
		}
	}

	if removed > 0 {
		f.grid.Retain(func(idx int) bool {
			return !mask[idx/f.width]
		})
		f.live -= removed
	}

	return removed
}

// density is strength spread over the deposit's disc area.
func density(strength, size float32) float32 {
	return strength / (size * size * math.Pi)
}

// Density returns the density of a slot, or 0 for a tombstone.
func (f *TrailField) Density(slot int) float32 {
	if slot < 0 || slot >= len(f.slots) || !f.slots[slot].live {
		return 0
	}
	return density(f.slots[slot].strength, f.slots[slot].size)
}

// Smell sums density-weighted colors of the deposits within radius of pos.
func (f *TrailField) Smell(pos components.Vec2, radius float32) components.Color {
	var sum components.Color
	radiusSq := radius * radius

	f.grid.ForEachInRadius(pos, radius, func(cell *[]int) bool {
		for _, idx := range *cell {
			if f.positions[idx].DistSq(pos) > radiusSq {
				continue
			}
			s := f.slots[idx/f.width]
			d := density(s.strength, s.size)
			c := f.colors[idx]
			sum.R += c.R * d
			sum.G += c.G * d
			sum.B += c.B * d
		}
		return true
	})

	return sum
}

// SlotOf splits a point index into its generation slot and originating ant.
func (f *TrailField) SlotOf(idx int) (slot, ant int) {
	return idx / f.width, idx % f.width
}

// Generations returns views of the live generations. Slices alias internal
// storage and are valid until the next Spawn or Decay.
func (f *TrailField) Generations() []TrailGeneration {
	out := make([]TrailGeneration, 0, f.live)
	for i, s := range f.slots {
		if !s.live {
			continue
		}
		start := i * f.width
		out = append(out, TrailGeneration{
			Slot:      i,
			Positions: f.positions[start : start+f.width],
			Colors:    f.colors[start : start+f.width],
			Size:      s.size,
			Density:   density(s.strength, s.size),
		})
	}
	return out
}

// Live returns the number of live generations.
func (f *TrailField) Live() int { return f.live }

// Slots returns the number of allocated slots, live or tombstoned.
func (f *TrailField) Slots() int { return len(f.slots) }

// Grid exposes the point index for read-only scans.
func (f *TrailField) Grid() *SpatialGrid[int] { return f.grid }
