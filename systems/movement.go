package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

// Blocker reports whether a ground point is inside solid geometry.
type Blocker interface {
	Blocked(p r3.Vec) bool
}

// MovementSystem integrates positions from velocities and keeps agents on
// the battlefield and out of solid geometry.
type MovementSystem struct {
	filter  *ecs.Filter3[components.Position, components.Velocity, components.Rotation]
	blocker Blocker

	halfW, halfD float64
	friction     float64
}

// NewMovementSystem creates a movement system for a width×depth world
// centred on the origin. blocker may be nil.
func NewMovementSystem(w *ecs.World, width, depth, friction float64, blocker Blocker) *MovementSystem {
	return &MovementSystem{
		filter:   ecs.NewFilter3[components.Position, components.Velocity, components.Rotation](w),
		blocker:  blocker,
		halfW:    width / 2,
		halfD:    depth / 2,
		friction: friction,
	}
}

// Update integrates position += velocity*dt, then applies friction. Agents
// reaching the edge stop along that axis; moves into solid geometry slide
// along whichever axis stays open. Y stays on the ground plane.
func (s *MovementSystem) Update(dt float64) {
	if dt <= 0 {
		return
	}
	damping := 1 - s.friction*dt
	if damping < 0 {
		damping = 0
	}

	query := s.filter.Query()
	for query.Next() {
		pos, vel, rot := query.Get()
		vel.Y = 0

		nx := pos.X + vel.X*dt
		nz := pos.Z + vel.Z*dt

		if nx < -s.halfW {
			nx, vel.X = -s.halfW, 0
		} else if nx > s.halfW {
			nx, vel.X = s.halfW, 0
		}
		if nz < -s.halfD {
			nz, vel.Z = -s.halfD, 0
		} else if nz > s.halfD {
			nz, vel.Z = s.halfD, 0
		}

		if s.blocker != nil && s.blocker.Blocked(r3.Vec{X: nx, Z: nz}) {
			switch {
			case !s.blocker.Blocked(r3.Vec{X: nx, Z: pos.Z}):
				nz, vel.Z = pos.Z, 0
			case !s.blocker.Blocked(r3.Vec{X: pos.X, Z: nz}):
				nx, vel.X = pos.X, 0
			default:
				nx, nz = pos.X, pos.Z
				vel.X, vel.Z = 0, 0
			}
		}

		pos.X, pos.Y, pos.Z = nx, 0, nz

		if vel.X*vel.X+vel.Z*vel.Z > 1e-6 {
			rot.Heading = math.Atan2(vel.Z, vel.X)
		}

		vel.X *= damping
		vel.Z *= damping
	}
}
