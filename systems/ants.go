package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/anthill/components"
)

// NoHit marks a sensor ray that did not hit anything.
const NoHit float32 = -1

// Ants stores the state of every ant as parallel slices indexed by ant id.
// The count is fixed for the lifetime of a simulation.
type Ants struct {
	Positions      []components.Vec2
	Headings       []float32 // radians, [0, 2π)
	TargetHeadings []float32 // radians, [0, 2π)
	CarriesFood    []bool
	Colors         []components.Color
	Rays           []float32 // count × rayCount, NoHit or distance

	rayCount int
}

// NewAnts creates count ants at the origin with random headings.
func NewAnts(count, rayCount int, rng *rand.Rand) *Ants {
	a := &Ants{
		Positions:      make([]components.Vec2, count),
		Headings:       make([]float32, count),
		TargetHeadings: make([]float32, count),
		CarriesFood:    make([]bool, count),
		Colors:         make([]components.Color, count),
		Rays:           make([]float32, count*rayCount),
		rayCount:       rayCount,
	}
	a.Reset(rng)
	return a
}

// Reset puts every ant back on the hill with a fresh random heading.
func (a *Ants) Reset(rng *rand.Rand) {
	for i := range a.Positions {
		dir := rng.Float32() * twoPi
		a.Positions[i] = components.Vec2{}
		a.Headings[i] = NormalizeHeading(dir)
		a.TargetHeadings[i] = a.Headings[i]
		a.CarriesFood[i] = false
		a.Colors[i] = components.Color{}
	}
	for i := range a.Rays {
		a.Rays[i] = NoHit
	}
}

// Len returns the number of ants.
func (a *Ants) Len() int { return len(a.Positions) }

// RayCount returns the number of sensor rays per ant.
func (a *Ants) RayCount() int { return a.rayCount }

// RayHits returns ant i's ray readings. The slice aliases internal storage.
func (a *Ants) RayHits(i int) []float32 {
	return a.Rays[i*a.rayCount : (i+1)*a.rayCount]
}

// MoveParams holds the kinematics constants.
type MoveParams struct {
	Speed        float32 // units per second when heading straight
	TurnFraction float32 // fraction of the heading error corrected per tick
	TickRate     float32 // ticks per second
}

// Move turns ant i toward its target heading and advances it. The sharper
// the turn, the slower the ant moves.
func (a *Ants) Move(i int, p MoveParams) {
	diff := AngleDiff(a.Headings[i], a.TargetHeadings[i])

	a.Headings[i] = NormalizeHeading(a.Headings[i] + diff*p.TurnFraction)
	a.TargetHeadings[i] = NormalizeHeading(a.TargetHeadings[i])

	speed := p.Speed * (1 - absf(diff)/twoPi) / p.TickRate
	a.Positions[i] = a.Positions[i].Add(components.FromAngle(a.Headings[i]).Scale(speed))
}

// Contain keeps ant i inside the square arena. An ant past the edge is
// nudged back by margin and turned around.
func (a *Ants) Contain(i int, halfWidth, margin float32) {
	pos := &a.Positions[i]
	out := false

	if pos.X > halfWidth {
		pos.X = halfWidth - margin
		out = true
	} else if pos.X < -halfWidth {
		pos.X = -halfWidth + margin
		out = true
	}
	if pos.Y > halfWidth {
		pos.Y = halfWidth - margin
		out = true
	} else if pos.Y < -halfWidth {
		pos.Y = -halfWidth + margin
		out = true
	}

	if out {
		a.Headings[i] = NormalizeHeading(a.Headings[i] + math.Pi)
		a.TargetHeadings[i] = NormalizeHeading(a.TargetHeadings[i] + math.Pi)
	}
}

// Steer applies network outputs [turn, r, g, b] to ant i.
func (a *Ants) Steer(i int, outputs []float32, turnScale float32) {
	a.TargetHeadings[i] = NormalizeHeading(a.TargetHeadings[i] + outputs[0]*turnScale)
	a.Colors[i] = components.Color{
		R: clamp01(outputs[1]),
		G: clamp01(outputs[2]),
		B: clamp01(outputs[3]),
	}
}

// FillInputs writes ant i's network inputs into dst and returns the filled
// prefix: position, headings, carry flag, rays, then the trail smell.
func (a *Ants) FillInputs(i int, dst []float32, halfWidth, sightRadius float32, smell components.Color) []float32 {
	dst = dst[:0]
	pos := a.Positions[i]

	carry := float32(-1)
	if a.CarriesFood[i] {
		carry = 1
	}

	dst = append(dst,
		pos.X/halfWidth,
		pos.Y/halfWidth,
		a.Headings[i]/math.Pi-1,
		a.TargetHeadings[i]/math.Pi-1,
		carry,
	)

	for _, hit := range a.RayHits(i) {
		if hit == NoHit {
			dst = append(dst, NoHit)
		} else {
			dst = append(dst, hit/sightRadius)
		}
	}

	return append(dst, smell.R, smell.G, smell.B)
}
