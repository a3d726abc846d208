package systems

import (
	"github.com/pthm-cable/anthill/components"
)

// SensorParams holds the ray fan geometry.
type SensorParams struct {
	RayCount    int
	AngleStep   float32 // radians between neighbouring rays
	SightRadius float32
	FoodRadius  float32
}

// RayDirections fills dst with count unit vectors fanned symmetrically
// around heading, step radians apart. count is odd so the middle ray looks
// straight ahead.
func RayDirections(heading float32, count int, step float32, dst []components.Vec2) []components.Vec2 {
	dst = dst[:0]
	base := -float32(count/2) * step
	for i := 0; i < count; i++ {
		dst = append(dst, components.FromAngle(heading+base+step*float32(i)))
	}
	return dst
}

// SenseFood casts ant i's ray fan against the food grid and stores the
// nearest hit distance per ray (or NoHit) in the ant's ray slots. dirs is a
// per-worker scratch buffer.
func SenseFood(a *Ants, i int, food *SpatialGrid[components.Food], p SensorParams, dirs []components.Vec2) []components.Vec2 {
	pos := a.Positions[i]
	hits := a.RayHits(i)
	for r := range hits {
		hits[r] = NoHit
	}

	dirs = RayDirections(a.Headings[i], p.RayCount, p.AngleStep, dirs)
	sightSq := p.SightRadius * p.SightRadius

	food.ForEachInRadius(pos, p.SightRadius, func(cell *[]components.Food) bool {
		for _, item := range *cell {
			if item.Pos.DistSq(pos) > sightSq {
				continue
			}
			for r, dir := range dirs {
				dist, ok := RayCircle(item.Pos, p.FoodRadius, pos, dir)
				if !ok {
					continue
				}
				if hits[r] == NoHit || dist < hits[r] {
					hits[r] = dist
				}
			}
		}
		return true
	})

	return dirs
}
