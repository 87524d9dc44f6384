// Package navigation provides the grid, cost field, integration field and flow field
// used to steer many agents toward a shared destination.
package navigation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Direction is a discretized compass heading stored per flow field cell.
// Grid +X maps to world +X and grid +Y maps to world +Z; North is grid -Y.
type Direction uint8

const (
	DirNone Direction = iota // Destination, unreachable or no improving neighbor
	DirNorth
	DirNorthEast
	DirEast
	DirSouthEast
	DirSouth
	DirSouthWest
	DirWest
	DirNorthWest
	NumDirections
)

// Compass lists every non-none direction in flow derivation scan order.
var Compass = [8]Direction{
	DirNorth, DirNorthEast, DirEast, DirSouthEast,
	DirSouth, DirSouthWest, DirWest, DirNorthWest,
}

// Cardinals lists the four directions used by the wavefront.
var Cardinals = [4]Direction{DirNorth, DirEast, DirSouth, DirWest}

// Grid offsets matching the Direction values.
var dirOffsets = [NumDirections]Index{
	{0, 0},
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Raw (non-normalized) world vectors on the ground plane.
var dirVectors = [NumDirections]r3.Vec{
	{},
	{X: 0, Z: -1}, {X: 1, Z: -1}, {X: 1, Z: 0}, {X: 1, Z: 1},
	{X: 0, Z: 1}, {X: -1, Z: 1}, {X: -1, Z: 0}, {X: -1, Z: -1},
}

// Display angles in radians, atan2(z, x).
var dirAngles = [NumDirections]float32{
	0,
	-math.Pi / 2, -math.Pi / 4, 0, math.Pi / 4,
	math.Pi / 2, 3 * math.Pi / 4, math.Pi, -3 * math.Pi / 4,
}

var dirNames = [NumDirections]string{
	"none", "N", "NE", "E", "SE", "S", "SW", "W", "NW",
}

// Offset returns the grid step for the direction.
func (d Direction) Offset() Index {
	if d >= NumDirections {
		return Index{}
	}
	return dirOffsets[d]
}

// Vector returns the raw direction vector. Diagonals are not normalized;
// callers normalize and scale.
func (d Direction) Vector() r3.Vec {
	if d >= NumDirections {
		return r3.Vec{}
	}
	return dirVectors[d]
}

// Angle returns the display angle for debug arrows.
func (d Direction) Angle() float32 {
	if d >= NumDirections {
		return 0
	}
	return dirAngles[d]
}

// IsDiagonal reports whether the direction moves along both axes.
func (d Direction) IsDiagonal() bool {
	o := d.Offset()
	return o.X != 0 && o.Y != 0
}

func (d Direction) String() string {
	if d >= NumDirections {
		return "invalid"
	}
	return dirNames[d]
}
