package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/navigation"
)

// Box is an axis-aligned box given by its centre and half extents.
type Box struct {
	Center     r3.Vec
	HalfExtent r3.Vec
}

// Collider is a static shape on the battlefield. Sensors never block movement.
type Collider struct {
	Box    Box
	Sensor bool
}

// OutcropParams shape procedural rock generation.
type OutcropParams struct {
	Spacing   float64 // lattice step between candidate rocks, world units
	Scale     float64 // noise frequency per lattice step
	Threshold float64 // noise in [0,1] above which a rock is placed
	Height    float64
}

// ObstacleMap holds the static colliders of a battlefield and answers the
// overlap queries used to build the navigation grid.
type ObstacleMap struct {
	colliders []Collider
	width     float64
	depth     float64
	version   uint64
}

// NewObstacleMap creates an empty map covering width×depth centred on the origin.
func NewObstacleMap(width, depth float64) *ObstacleMap {
	return &ObstacleMap{width: width, depth: depth}
}

// AddBox adds a static collider.
func (m *ObstacleMap) AddBox(center, halfExtent r3.Vec, sensor bool) {
	m.colliders = append(m.colliders, Collider{
		Box:    Box{Center: center, HalfExtent: halfExtent},
		Sensor: sensor,
	})
	m.version++
}

// Clear removes every collider.
func (m *ObstacleMap) Clear() {
	m.colliders = m.colliders[:0]
	m.version++
}

// Colliders returns the current colliders.
func (m *ObstacleMap) Colliders() []Collider { return m.colliders }

// Version increments whenever colliders change.
func (m *ObstacleMap) Version() uint64 { return m.version }

// GenerateOutcrops scatters rock boxes using Perlin noise sampled on a
// lattice. Lattice points inside any keepClear region stay open. Returns the
// number of rocks placed.
func (m *ObstacleMap) GenerateOutcrops(seed int64, p OutcropParams, keepClear []navigation.Region) int {
	if p.Spacing <= 0 {
		return 0
	}
	noise := NewPerlinNoise(seed)
	half := p.Spacing / 2
	cols := int(m.width / p.Spacing)
	rows := int(m.depth / p.Spacing)

	placed := 0
	for x := 0; x < cols; x++ {
		for z := 0; z < rows; z++ {
			v := noise.Noise01(float64(x)*p.Scale, float64(z)*p.Scale)
			if v <= p.Threshold {
				continue
			}
			center := r3.Vec{
				X: float64(x)*p.Spacing + half - m.width/2,
				Y: p.Height / 2,
				Z: float64(z)*p.Spacing + half - m.depth/2,
			}
			extent := r3.Vec{X: half, Y: p.Height / 2, Z: half}
			if touchesAny(center, extent, keepClear) {
				continue
			}
			m.colliders = append(m.colliders, Collider{Box: Box{Center: center, HalfExtent: extent}})
			placed++
		}
	}
	if placed > 0 {
		m.version++
	}
	return placed
}

func touchesAny(center, extent r3.Vec, regions []navigation.Region) bool {
	for _, r := range regions {
		if math.Abs(center.X-r.Center.X) < extent.X+r.HalfExtent.X &&
			math.Abs(center.Z-r.Center.Z) < extent.Z+r.HalfExtent.Z {
			return true
		}
	}
	return false
}

// OverlapsCube reports whether a cube intersects any non-sensor collider.
func (m *ObstacleMap) OverlapsCube(center r3.Vec, halfExtent float64) bool {
	for i := range m.colliders {
		c := &m.colliders[i]
		if c.Sensor {
			continue
		}
		b := c.Box
		if math.Abs(center.X-b.Center.X) < halfExtent+b.HalfExtent.X &&
			math.Abs(center.Y-b.Center.Y) < halfExtent+b.HalfExtent.Y &&
			math.Abs(center.Z-b.Center.Z) < halfExtent+b.HalfExtent.Z {
			return true
		}
	}
	return false
}

// Blocked reports whether a ground point lies inside the footprint of any
// non-sensor collider.
func (m *ObstacleMap) Blocked(p r3.Vec) bool {
	for i := range m.colliders {
		c := &m.colliders[i]
		if c.Sensor {
			continue
		}
		if math.Abs(p.X-c.Box.Center.X) < c.Box.HalfExtent.X &&
			math.Abs(p.Z-c.Box.Center.Z) < c.Box.HalfExtent.Z {
			return true
		}
	}
	return false
}
