package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

func TestSolveVelocityWithoutConstraints(t *testing.T) {
	got, _ := SolveVelocity(nil, 3, r2.Vec{X: 5}, nil)
	assert.InDelta(t, 3, got.X, 1e-12)
	assert.InDelta(t, 0, got.Y, 1e-12)

	got, _ = SolveVelocity(nil, 3, r2.Vec{X: 1, Y: 1}, nil)
	assert.Equal(t, r2.Vec{X: 1, Y: 1}, got)
}

func TestOrcaHeadOn(t *testing.T) {
	a := OrcaAgent{Pos: r2.Vec{X: -2.5}, Radius: 1, Responsibility: 1}
	b := OrcaAgent{Pos: r2.Vec{X: 2.5}, Radius: 1, Responsibility: 1}

	la, ok := OrcaLine(&a, &b, 2, 10)
	require.True(t, ok)
	lb, ok := OrcaLine(&b, &a, 2, 10)
	require.True(t, ok)

	va, _ := SolveVelocity([]Line{la}, 3, r2.Vec{X: 3}, nil)
	vb, _ := SolveVelocity([]Line{lb}, 3, r2.Vec{X: -3}, nil)

	// Each side takes half the correction: closing speed is cut to the
	// rate that just reaches contact at the horizon.
	assert.InDelta(t, 0.75, va.X, 1e-9)
	assert.InDelta(t, -0.75, vb.X, 1e-9)
	assert.InDelta(t, 0, va.Y, 1e-9)

	gap := 5.0 - 2.0
	closing := va.X - vb.X
	assert.GreaterOrEqual(t, gap/closing, 2.0-1e-9)
}

func TestOrcaResponsibilityShare(t *testing.T) {
	a := OrcaAgent{Pos: r2.Vec{X: -2.5}, Radius: 1, Responsibility: 3}
	b := OrcaAgent{Pos: r2.Vec{X: 2.5}, Radius: 1, Responsibility: 1}
	assert.InDelta(t, 0.75, share(&a, &b), 1e-12)
	assert.InDelta(t, 0.25, share(&b, &a), 1e-12)

	z := OrcaAgent{}
	assert.InDelta(t, 0.5, share(&z, &z), 1e-12)
}

func TestOrcaOverlapPushesApart(t *testing.T) {
	a := OrcaAgent{Pos: r2.Vec{}, Radius: 1, Responsibility: 1}
	b := OrcaAgent{Pos: r2.Vec{X: 1}, Radius: 1, Responsibility: 1}

	line, ok := OrcaLine(&a, &b, 2, 10)
	require.True(t, ok)
	assert.InDelta(t, -5, line.Point.X, 1e-9)

	// Infeasible inside the speed circle; the fallback program picks the
	// least violating velocity, straight away from b.
	v, _ := SolveVelocity([]Line{line}, 3, r2.Vec{}, nil)
	assert.InDelta(t, -3, v.X, 1e-9)
	assert.InDelta(t, 0, v.Y, 1e-9)
}

func TestOrcaDegenerate(t *testing.T) {
	a := OrcaAgent{Radius: 1}
	b := OrcaAgent{Radius: 1}
	_, ok := OrcaLine(&a, &b, 2, 10)
	assert.False(t, ok, "coincident agents with no relative motion")
}

func TestAvoidanceSystem(t *testing.T) {
	f := newFixture(t)
	a := f.agent(-2.5, 0)
	b := f.agent(2.5, 0)
	// Both march east then west toward each other's side.
	f.order(1, r3.Vec{X: 45, Z: 0}, a)
	f.order(2, r3.Vec{X: -45, Z: 0}, b)

	sys := NewAvoidanceSystem(f.world, AvoidanceConfig{
		TimeHorizon:    2,
		NeighborDist:   15,
		MaxNeighbors:   10,
		Responsibility: 1,
	}, nil)

	f.crowd.Capture()
	assert.Zero(t, sys.Update(f.crowd, f.ctrl, 0, false), "zero dt skips the pass")
	assert.Zero(t, sys.Update(f.crowd, f.ctrl, -1, false))

	n := sys.Update(f.crowd, f.ctrl, testDT, false)
	require.Equal(t, 2, n)

	va, vb := f.velMap.Get(a), f.velMap.Get(b)
	assert.InDelta(t, 0.75, va.X, 1e-9)
	assert.InDelta(t, -0.75, vb.X, 1e-9)
	assert.Zero(t, va.Y)
}

func TestAvoidanceWithoutFieldDecelerates(t *testing.T) {
	f := newFixture(t)
	a := f.agent(0, 0)
	v := f.velMap.Get(a)
	v.X = 2
	n := f.navMap.Get(a)
	n.State = components.NavActive
	n.Group = 9

	sys := NewAvoidanceSystem(f.world, AvoidanceConfig{TimeHorizon: 2, NeighborDist: 15, Responsibility: 1}, nil)
	f.crowd.Capture()
	sys.Update(f.crowd, staticFields{}, testDT, false)
	assert.Equal(t, components.Velocity{}, *f.velMap.Get(a))
}

func TestAvoidanceFromVelocity(t *testing.T) {
	f := newFixture(t)
	a := f.agent(0, 0)
	f.order(1, r3.Vec{X: 45}, a)
	v := f.velMap.Get(a)
	v.Z = 10

	sys := NewAvoidanceSystem(f.world, AvoidanceConfig{TimeHorizon: 2, NeighborDist: 15, Responsibility: 1}, nil)
	f.crowd.Capture()
	sys.Update(f.crowd, f.ctrl, testDT, true)

	// No neighbors: the current velocity is kept, capped at max speed.
	got := f.velMap.Get(a)
	assert.InDelta(t, 0, got.X, 1e-12)
	assert.InDelta(t, 3, got.Z, 1e-12)
}

func TestAvoidanceParallelMatchesSerial(t *testing.T) {
	cfg := AvoidanceConfig{TimeHorizon: 2, NeighborDist: 15, MaxNeighbors: 10, Responsibility: 1}

	run := func(pool *WorkerPool) []components.Velocity {
		f := newFixture(t)
		var agents []ecs.Entity
		for i := 0; i < 100; i++ {
			agents = append(agents, f.agent(-45+float64(i%10)*9, -45+float64(i/10)*9))
		}
		f.order(1, r3.Vec{X: 40, Z: 40}, agents...)

		sys := NewAvoidanceSystem(f.world, cfg, pool)
		f.crowd.Capture()
		require.Equal(t, 100, sys.Update(f.crowd, f.ctrl, testDT, false))

		out := make([]components.Velocity, len(agents))
		for i, e := range agents {
			out[i] = *f.velMap.Get(e)
		}
		return out
	}

	pool := NewWorkerPool(4)
	defer pool.Close()

	serial := run(nil)
	parallel := run(pool)
	assert.Equal(t, serial, parallel)
}
