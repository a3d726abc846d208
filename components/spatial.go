// Package components defines the plain value types shared by the simulation
// systems.
package components

import "math"

// Vec2 is a 2D position or direction in world units.
type Vec2 struct {
	X, Y float32
}

// V2 is shorthand for Vec2{X: x, Y: y}.
func V2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// FromAngle returns the unit vector pointing along angle (radians).
func FromAngle(angle float32) Vec2 {
	s, c := math.Sincos(float64(angle))
	return Vec2{X: float32(c), Y: float32(s)}
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale multiplies both components by s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product.
func (v Vec2) Dot(o Vec2) float32 { return v.X*o.X + v.Y*o.Y }

// LengthSq returns the squared length (avoids sqrt in hot paths).
func (v Vec2) LengthSq() float32 { return v.X*v.X + v.Y*v.Y }

// Length returns the Euclidean length.
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.LengthSq())))
}

// DistSq returns the squared distance to o.
func (v Vec2) DistSq(o Vec2) float32 { return v.Sub(o).LengthSq() }

// Color is a trail color; channels are in [0, 1].
type Color struct {
	R, G, B float32
}

// Food is a single food item in the arena.
type Food struct {
	ID      int32
	Cluster int32 // index of the cluster it was placed in
	Pos     Vec2
}
