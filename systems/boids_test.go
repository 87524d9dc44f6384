package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

const testDT = 1.0 / 60

func TestIsNeighborHysteresis(t *testing.T) {
	other := AgentSnapshot{}

	tests := []struct {
		name string
		dist float64
		prev bool
		want bool
	}{
		{"new inside entry", 11, false, true},
		{"new between radii", 13, false, false},
		{"kept between radii", 13, true, true},
		{"kept at exit", 14, true, true},
		{"dropped past exit", 15, true, false},
		{"new far", 20, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other.Pos = r3.Vec{X: tt.dist}
			var prev []ecs.Entity
			if tt.prev {
				prev = []ecs.Entity{other.Entity}
			}
			got := isNeighbor(r3.Vec{}, &other, prev, testBoidParams)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlockForces(t *testing.T) {
	p := components.BoidParams{Separation: 2, Alignment: 3, Cohesion: 4}

	sep, ali, coh := Flock(r3.Vec{}, nil, p)
	assert.Equal(t, r3.Vec{}, sep)
	assert.Equal(t, r3.Vec{}, ali)
	assert.Equal(t, r3.Vec{}, coh)

	neighbors := []AgentSnapshot{
		{Pos: r3.Vec{X: 2}, Vel: r3.Vec{Z: 1}},
		{Pos: r3.Vec{X: 4}, Vel: r3.Vec{Z: 3}},
	}
	sep, ali, coh = Flock(r3.Vec{}, neighbors, p)

	// Away vectors (-1/2) and (-1/4) averaged, times weight 2.
	assert.InDelta(t, -0.75, sep.X, 1e-12)
	assert.InDelta(t, 0, sep.Z, 1e-12)
	// Mean velocity (0,0,2) normalized, weight 3.
	assert.InDelta(t, 3, ali.Z, 1e-12)
	assert.InDelta(t, 0, ali.X, 1e-12)
	// Centroid at x=3, unit direction times 4.
	assert.InDelta(t, 4, coh.X, 1e-12)

	// Coincident neighbors contribute no separation.
	sep, _, _ = Flock(r3.Vec{}, []AgentSnapshot{{}}, p)
	assert.Equal(t, r3.Vec{}, sep)
}

func TestClampLength(t *testing.T) {
	v := r3.Vec{X: 3, Z: 4}
	assert.Equal(t, v, clampLength(v, 0))
	assert.Equal(t, v, clampLength(v, 10))
	got := clampLength(v, 1)
	assert.InDelta(t, 1, r3.Norm(got), 1e-12)
	assert.InDelta(t, 0.6, got.X, 1e-12)
}

func TestBoidSystemFollowsFlow(t *testing.T) {
	f := newFixture(t)
	a := f.agent(-45, -45)
	f.order(1, r3.Vec{X: 5, Z: 5}, a)

	sys := NewBoidSystem(f.world, BoidConfig{FlowWeight: 60, Smoothing: 0.3})
	f.crowd.Capture()
	n := sys.Update(f.crowd, f.ctrl, testDT)
	require.Equal(t, 1, n)

	vel := f.velMap.Get(a)
	want := 60 * 0.3 * testDT / 1.4142135623730951
	assert.InDelta(t, want, vel.X, 1e-9)
	assert.InDelta(t, want, vel.Z, 1e-9)
	assert.Zero(t, vel.Y)

	boid := f.boidMap.Get(a)
	assert.InDelta(t, 18, r3.Norm(boid.Steering), 1e-9)

	// Smoothing converges on the raw steering.
	for i := 0; i < 200; i++ {
		f.crowd.Capture()
		sys.Update(f.crowd, f.ctrl, testDT)
	}
	assert.InDelta(t, 60, r3.Norm(f.boidMap.Get(a).Steering), 1e-6)
}

func TestBoidSystemClamps(t *testing.T) {
	f := newFixture(t)
	a := f.agent(-45, -45)
	f.order(1, r3.Vec{X: 5, Z: 5}, a)

	sys := NewBoidSystem(f.world, BoidConfig{FlowWeight: 60, Smoothing: 1, MaxForce: 10, MaxSpeed: 0.05})
	f.crowd.Capture()
	sys.Update(f.crowd, f.ctrl, testDT)
	assert.InDelta(t, 10, r3.Norm(f.boidMap.Get(a).Steering), 1e-9)

	for i := 0; i < 100; i++ {
		f.crowd.Capture()
		sys.Update(f.crowd, f.ctrl, testDT)
	}
	assert.InDelta(t, 0.05, r3.Norm(f.velMap.Get(a).Vec()), 1e-9)
}

func TestBoidSystemSkips(t *testing.T) {
	f := newFixture(t)
	idle := f.agent(0, 0)
	sys := NewBoidSystem(f.world, BoidConfig{FlowWeight: 60, Smoothing: 0.3})

	f.crowd.Capture()
	assert.Zero(t, sys.Update(f.crowd, f.ctrl, testDT), "idle agents are not steered")

	f.order(1, r3.Vec{X: 40, Z: 40}, idle)
	f.crowd.Capture()
	assert.Zero(t, sys.Update(f.crowd, f.ctrl, 0), "zero dt is a no-op")
	assert.Zero(t, sys.Update(f.crowd, staticFields{}, testDT), "no field is a no-op")
	assert.Equal(t, components.Velocity{}, *f.velMap.Get(idle))
}

func TestBoidSystemNeighborHysteresis(t *testing.T) {
	f := newFixture(t)
	a := f.agent(0, 0)
	b := f.agent(13, 0)
	f.order(1, r3.Vec{X: 0, Z: 40}, a, b)
	sys := NewBoidSystem(f.world, BoidConfig{FlowWeight: 1, Smoothing: 0.3})

	step := func(bx float64) []ecs.Entity {
		f.moveTo(a, 0, 0)
		f.moveTo(b, bx, 0)
		f.crowd.Capture()
		sys.Update(f.crowd, f.ctrl, testDT)
		return f.boidMap.Get(a).Neighbors
	}

	assert.Empty(t, step(13), "outside entry radius")
	assert.Equal(t, []ecs.Entity{b}, step(11), "joins inside entry radius")
	assert.Equal(t, []ecs.Entity{b}, step(13), "kept until exit radius")
	assert.Empty(t, step(15), "dropped past exit radius")
	assert.Empty(t, step(13), "must re-enter through entry radius")
}
