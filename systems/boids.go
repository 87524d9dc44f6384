package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/navigation"
)

// MaxNeighbors caps the neighbor set kept per agent.
// This prevents density spikes from causing unbounded work.
const MaxNeighbors = 128

// FieldSource resolves the flow field governing a group, or nil.
type FieldSource interface {
	FieldFor(group uint32) *navigation.FlowField
}

// BoidConfig holds the flocking knobs shared by every agent.
type BoidConfig struct {
	FlowWeight float64
	Smoothing  float64 // blend factor toward the raw steering, 0..1
	MaxForce   float64 // 0 disables
	MaxSpeed   float64 // 0 disables
}

// boidIntent is the computed output for one agent, applied after the pass.
type boidIntent struct {
	entity   ecs.Entity
	steering r3.Vec
	velocity r3.Vec
	nbrStart int
	nbrEnd   int
}

// BoidSystem computes flocking steering blended with flow-field following.
type BoidSystem struct {
	cfg BoidConfig

	boidMap *ecs.Map[components.Boid]
	velMap  *ecs.Map1[components.Velocity]

	candidates []int
	nearby     []AgentSnapshot
	nbrBuf     []ecs.Entity // neighbor sets of all intents, back to back
	intents    []boidIntent
}

// NewBoidSystem creates a boid system over the world's Boid components.
func NewBoidSystem(w *ecs.World, cfg BoidConfig) *BoidSystem {
	return &BoidSystem{
		cfg:        cfg,
		boidMap:    ecs.NewMap[components.Boid](w),
		velMap:     ecs.NewMap1[components.Velocity](w),
		candidates: make([]int, 0, 64),
		nearby:     make([]AgentSnapshot, 0, MaxNeighbors),
	}
}

// Config returns the active flocking configuration.
func (s *BoidSystem) Config() BoidConfig { return s.cfg }

// SetConfig replaces the flocking configuration.
func (s *BoidSystem) SetConfig(cfg BoidConfig) { s.cfg = cfg }

// Update steers every non-idle agent whose group has a flow field. Reads
// come from the crowd snapshot; writes are committed after all agents are computed.
// Returns the number of agents steered.
func (s *BoidSystem) Update(crowd *Crowd, fields FieldSource, dt float64) int {
	if dt <= 0 || crowd.Len() == 0 {
		return 0
	}

	s.intents = s.intents[:0]
	s.nbrBuf = s.nbrBuf[:0]

	for i := range crowd.Agents {
		self := &crowd.Agents[i]
		if self.State == components.NavIdle {
			continue
		}
		field := fields.FieldFor(self.Group)
		if field == nil {
			continue
		}
		if !s.boidMap.Has(self.Entity) {
			continue
		}
		boid := s.boidMap.Get(self.Entity)

		// Hysteresis against last frame's neighbor set.
		s.candidates = crowd.Buckets.QueryInto(s.candidates[:0], self.Pos)
		s.nearby = s.nearby[:0]
		start := len(s.nbrBuf)
		for _, j := range s.candidates {
			if j == i {
				continue
			}
			other := &crowd.Agents[j]
			if !isNeighbor(self.Pos, other, boid.Neighbors, boid.Params) {
				continue
			}
			if len(s.nearby) >= MaxNeighbors {
				break
			}
			s.nearby = append(s.nearby, *other)
			s.nbrBuf = append(s.nbrBuf, other.Entity)
		}

		sep, ali, coh := Flock(self.Pos, s.nearby, boid.Params)
		flow := r3.Vec{}
		if dir := field.SampleDirection(self.Pos); dir != (r3.Vec{}) {
			flow = r3.Scale(s.cfg.FlowWeight, r3.Unit(dir))
		}
		raw := r3.Add(r3.Add(sep, ali), r3.Add(coh, flow))

		smoothed := r3.Add(boid.Steering, r3.Scale(s.cfg.Smoothing, r3.Sub(raw, boid.Steering)))
		smoothed = clampLength(smoothed, s.cfg.MaxForce)

		vel := r3.Add(self.Vel, r3.Scale(dt, smoothed))
		vel.Y = 0
		vel = clampLength(vel, s.cfg.MaxSpeed)

		s.intents = append(s.intents, boidIntent{
			entity:   self.Entity,
			steering: smoothed,
			velocity: vel,
			nbrStart: start,
			nbrEnd:   len(s.nbrBuf),
		})
	}

	s.applyIntents()
	return len(s.intents)
}

// applyIntents writes computed results back to ECS components.
func (s *BoidSystem) applyIntents() {
	for i := range s.intents {
		in := &s.intents[i]
		boid := s.boidMap.Get(in.entity)
		vel := s.velMap.Get(in.entity)
		if boid == nil || vel == nil {
			continue
		}
		boid.PrevSteering = boid.Steering
		boid.Steering = in.steering
		boid.Neighbors = append(boid.Neighbors[:0], s.nbrBuf[in.nbrStart:in.nbrEnd]...)
		vel.Set(in.velocity)
	}
}

// isNeighbor applies entry/exit hysteresis: an agent already in the
// neighbor set stays until it leaves the exit radius, others must come
// inside the entry radius.
func isNeighbor(pos r3.Vec, other *AgentSnapshot, prev []ecs.Entity, p components.BoidParams) bool {
	d := r3.Norm(r3.Sub(other.Pos, pos))
	for _, e := range prev {
		if e == other.Entity {
			return d <= p.NeighborExitRadius
		}
	}
	return d <= p.NeighborRadius
}

// Flock computes the weighted separation, alignment and cohesion forces
// for an agent at pos from its neighbor set.
func Flock(pos r3.Vec, neighbors []AgentSnapshot, p components.BoidParams) (sep, ali, coh r3.Vec) {
	if len(neighbors) == 0 {
		return
	}

	var away, velSum, centroid r3.Vec
	awayCount := 0
	for i := range neighbors {
		n := &neighbors[i]
		diff := r3.Sub(pos, n.Pos)
		diff.Y = 0
		if d := r3.Norm(diff); d > 0 {
			away = r3.Add(away, r3.Scale(1/(d*d), diff)) // unit vector / distance
			awayCount++
		}
		velSum = r3.Add(velSum, n.Vel)
		centroid = r3.Add(centroid, n.Pos)
	}

	inv := 1 / float64(len(neighbors))
	if awayCount > 0 {
		sep = r3.Scale(p.Separation/float64(awayCount), away)
	}
	if avg := r3.Scale(inv, velSum); r3.Norm(avg) > 0 {
		ali = r3.Scale(p.Alignment, r3.Unit(avg))
	}
	toCentre := r3.Sub(r3.Scale(inv, centroid), pos)
	toCentre.Y = 0
	if r3.Norm(toCentre) > 0 {
		coh = r3.Scale(p.Cohesion, r3.Unit(toCentre))
	}
	return sep, ali, coh
}

// clampLength limits the length of v; limit <= 0 disables the cap.
func clampLength(v r3.Vec, limit float64) r3.Vec {
	if limit <= 0 {
		return v
	}
	if n := r3.Norm(v); n > limit {
		return r3.Scale(limit/n, v)
	}
	return v
}
