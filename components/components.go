// Package components defines ECS components for navigating agents.
package components

import (
	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// NavState is the logical navigation state of an agent.
type NavState uint8

const (
	NavIdle    NavState = iota // No destination assigned
	NavActive                  // Following a flow field
	NavArrived                 // Standing in the destination cell
)

// Navigator binds an agent to a group and that group's current order.
type Navigator struct {
	Group uint32
	State NavState
	Order uuid.UUID // request that produced the current destination
	Goal  r3.Vec
}

// BoidParams are the per-agent flocking weights and radii.
// NeighborExitRadius must exceed NeighborRadius.
type BoidParams struct {
	Separation         float64
	Alignment          float64
	Cohesion           float64
	NeighborRadius     float64
	NeighborExitRadius float64
}

// Boid carries one frame of flocking memory.
type Boid struct {
	Steering     r3.Vec
	PrevSteering r3.Vec
	Neighbors    []ecs.Entity // previous frame's neighbor set
	Params       BoidParams
}

// Reset clears steering history and the neighbor set.
func (b *Boid) Reset() {
	b.Steering = r3.Vec{}
	b.PrevSteering = r3.Vec{}
	b.Neighbors = b.Neighbors[:0]
}
