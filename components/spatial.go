package components

import "gonum.org/v1/gonum/spatial/r3"

// Position represents an entity's world position. Y is the height above
// the ground plane and stays 0 for ground agents.
type Position struct {
	X, Y, Z float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

// Set copies v into the position.
func (p *Position) Set(v r3.Vec) { p.X, p.Y, p.Z = v.X, v.Y, v.Z }

// Velocity is the externally visible velocity written by steering.
type Velocity struct {
	X, Y, Z float64
}

// Vec returns the velocity as a vector.
func (v Velocity) Vec() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// Set copies r into the velocity.
func (v *Velocity) Set(r r3.Vec) { v.X, v.Y, v.Z = r.X, r.Y, r.Z }

// Rotation represents an entity's heading on the ground plane.
type Rotation struct {
	Heading float64 // radians, atan2(z, x)
}
