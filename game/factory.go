package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
)

// Squad is a named set of agents that receive orders together.
type Squad struct {
	Name   string
	Group  uint32
	Agents []ecs.Entity
}

// boidParams builds the per-agent flocking block from config.
func (s *Session) boidParams() components.BoidParams {
	b := s.cfg.Boids
	return components.BoidParams{
		Separation:         b.Separation,
		Alignment:          b.Alignment,
		Cohesion:           b.Cohesion,
		NeighborRadius:     b.NeighborRadius,
		NeighborExitRadius: b.NeighborExitRadius,
	}
}

// SpawnAgent creates an idle agent at (x, z) on the ground plane.
func (s *Session) SpawnAgent(x, z float64) ecs.Entity {
	pos := components.Position{X: x, Z: z}
	vel := components.Velocity{}
	rot := components.Rotation{Heading: s.rng.Float64()*2*math.Pi - math.Pi}
	body := components.Body{Radius: s.cfg.Population.BodyRadius}
	nav := components.Navigator{}
	boid := components.Boid{
		Params:    s.boidParams(),
		Neighbors: make([]ecs.Entity, 0, 8),
	}
	avoid := components.AvoidanceAgent{
		Radius:   s.cfg.Avoidance.Radius,
		MaxSpeed: s.cfg.Steering.MaxSpeed,
	}
	return s.agents.NewEntity(&pos, &vel, &rot, &body, &nav, &boid, &avoid)
}

// SpawnSquad creates a squad in a rectangular formation centred on the
// squad's anchor. Columns of 0 picks a square-ish block.
func (s *Session) SpawnSquad(sc config.SquadConfig) *Squad {
	sq := &Squad{Name: sc.Name, Group: sc.Group, Agents: make([]ecs.Entity, 0, sc.Count)}
	if sc.Count <= 0 {
		s.squads = append(s.squads, sq)
		return sq
	}

	cols := sc.Columns
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(sc.Count))))
	}
	rows := (sc.Count + cols - 1) / cols
	spacing := s.cfg.Population.FormationSpacing
	originX := sc.X - float64(cols-1)*spacing/2
	originZ := sc.Z - float64(rows-1)*spacing/2

	for i := 0; i < sc.Count; i++ {
		x := originX + float64(i%cols)*spacing
		z := originZ + float64(i/cols)*spacing
		sq.Agents = append(sq.Agents, s.SpawnAgent(x, z))
	}
	s.squads = append(s.squads, sq)
	return sq
}

// Despawn releases and removes agents from the world.
func (s *Session) Despawn(agents []ecs.Entity) {
	s.ctrl.Release(agents)
	for _, e := range agents {
		if s.world.Alive(e) {
			s.world.RemoveEntity(e)
		}
	}
	for _, sq := range s.squads {
		alive := sq.Agents[:0]
		for _, e := range sq.Agents {
			if s.world.Alive(e) {
				alive = append(alive, e)
			}
		}
		sq.Agents = alive
	}
}

// Squads returns every spawned squad.
func (s *Session) Squads() []*Squad { return s.squads }

// Squad returns the squad with the given name, or nil.
func (s *Session) Squad(name string) *Squad {
	for _, sq := range s.squads {
		if sq.Name == name {
			return sq
		}
	}
	return nil
}

// AgentCount returns the number of live agents.
func (s *Session) AgentCount() int {
	n := 0
	query := s.navFilter.Query()
	for query.Next() {
		n++
	}
	return n
}
