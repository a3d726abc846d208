package systems

import (
	"math"

	"github.com/pthm-cable/anthill/components"
)

const twoPi = 2 * math.Pi

// clamp01 clamps a float32 value to the [0, 1] range.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Angle normalization functions

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float32) float32 {
	a := math.Mod(float64(angle), twoPi)
	if a > math.Pi {
		a -= twoPi
	} else if a < -math.Pi {
		a += twoPi
	}
	return float32(a)
}

// NormalizeHeading wraps a heading to [0, 2*Pi).
func NormalizeHeading(h float32) float32 {
	a := math.Mod(float64(h), twoPi)
	if a < 0 {
		a += twoPi
	}
	// float32 rounding can land exactly on 2π
	if h32 := float32(a); h32 < float32(twoPi) {
		return h32
	}
	return 0
}

// AngleDiff returns the shortest signed rotation from heading to target,
// in [-Pi, Pi].
func AngleDiff(heading, target float32) float32 {
	return normalizeAngle(target - heading)
}

// Intersection tests

// CircleIntersectsSquare reports whether the circle (pos, radius) overlaps
// the axis-aligned square centered at center with the given side length.
// Touching counts as overlapping.
func CircleIntersectsSquare(pos components.Vec2, radius float32, center components.Vec2, width float32) bool {
	half := width / 2
	dx := absf(pos.X - center.X)
	dy := absf(pos.Y - center.Y)

	// AABB early reject
	if dx > half+radius || dy > half+radius {
		return false
	}
	// Circle center within the square's slab on either axis
	if dx <= half || dy <= half {
		return true
	}

	// Circle straddles a corner
	cx := dx - half
	cy := dy - half
	return cx*cx+cy*cy <= radius*radius
}

// RayCircle returns the distance along a ray (origin, unit dir) to its first
// intersection with a circle. ok is false when the ray misses, or when the
// near intersection lies behind the origin (including origins inside the
// circle).
func RayCircle(center components.Vec2, radius float32, origin, dir components.Vec2) (dist float32, ok bool) {
	e := center.Sub(origin)
	a := e.Dot(dir)

	bSq := e.LengthSq() - a*a
	rSq := radius * radius
	if bSq > rSq {
		return 0, false
	}

	f := float32(math.Sqrt(float64(rSq - bSq)))
	dist = a - f
	if dist < 0 {
		return 0, false
	}
	return dist, true
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
