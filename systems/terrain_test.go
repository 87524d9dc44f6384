package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/navigation"
)

func TestObstacleMapOverlap(t *testing.T) {
	m := NewObstacleMap(100, 100)
	v0 := m.Version()
	m.AddBox(r3.Vec{X: 10, Y: 2, Z: 10}, r3.Vec{X: 2, Y: 2, Z: 2}, false)
	m.AddBox(r3.Vec{X: -10, Y: 2, Z: -10}, r3.Vec{X: 2, Y: 2, Z: 2}, true)
	assert.Greater(t, m.Version(), v0)

	tests := []struct {
		name   string
		center r3.Vec
		half   float64
		want   bool
	}{
		{"inside solid", r3.Vec{X: 10, Z: 10}, 1, true},
		{"touching solid edge", r3.Vec{X: 15, Z: 10}, 3, false},
		{"overlapping solid edge", r3.Vec{X: 15, Z: 10}, 3.5, true},
		{"sensor ignored", r3.Vec{X: -10, Z: -10}, 1, false},
		{"open ground", r3.Vec{}, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.OverlapsCube(tt.center, tt.half))
		})
	}

	assert.True(t, m.Blocked(r3.Vec{X: 11, Z: 9}))
	assert.False(t, m.Blocked(r3.Vec{X: -10, Z: -10}), "sensors never block")

	m.Clear()
	assert.Empty(t, m.Colliders())
	assert.False(t, m.OverlapsCube(r3.Vec{X: 10, Z: 10}, 1))
}

func TestGenerateOutcrops(t *testing.T) {
	params := OutcropParams{Spacing: 10, Scale: 0.35, Threshold: 0.55, Height: 4}
	keep := []navigation.Region{{HalfExtent: r3.Vec{X: 20, Z: 20}}}

	a := NewObstacleMap(400, 400)
	b := NewObstacleMap(400, 400)
	na := a.GenerateOutcrops(42, params, keep)
	nb := b.GenerateOutcrops(42, params, keep)

	assert.Equal(t, na, nb, "same seed, same rocks")
	assert.Equal(t, a.Colliders(), b.Colliders())
	assert.Len(t, a.Colliders(), na)

	for _, c := range a.Colliders() {
		assert.False(t, touchesAny(c.Box.Center, c.Box.HalfExtent, keep), "rock inside keep-clear region at %v", c.Box.Center)
		assert.InDelta(t, 2, c.Box.Center.Y, 1e-12)
	}
	assert.False(t, a.Blocked(r3.Vec{}))

	assert.Zero(t, NewObstacleMap(10, 10).GenerateOutcrops(1, OutcropParams{}, nil), "zero spacing places nothing")
}

func TestGridBuildFromObstacleMap(t *testing.T) {
	m := NewObstacleMap(100, 100)
	m.AddBox(r3.Vec{X: 5, Y: 1, Z: 5}, r3.Vec{X: 1, Y: 1, Z: 1}, false)
	m.AddBox(r3.Vec{X: -25, Y: 1, Z: 5}, r3.Vec{X: 1, Y: 1, Z: 1}, true)

	g, err := navigation.NewGrid(navigation.Size{X: 10, Y: 10}, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Build(m))
	assert.True(t, g.CellAt(r3.Vec{X: 5, Z: 5}).Impassable())
	assert.False(t, g.CellAt(r3.Vec{X: -25, Z: 5}).Impassable())
}
