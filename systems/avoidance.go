package systems

import (
	"sort"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

// AvoidanceConfig holds the reciprocal avoidance parameters.
type AvoidanceConfig struct {
	TimeHorizon    float64
	NeighborDist   float64 // cutoff radius for neighbor selection
	MaxNeighbors   int
	Responsibility float64 // per-agent weight; equal weights split effort evenly

	// UseCurrentVelocity seeds working records with the agents' snapshot
	// velocity instead of zero.
	UseCurrentVelocity bool
}

type avoidNeighbor struct {
	idx    int
	distSq float64
}

// avoidScratch holds per-worker reusable buffers.
type avoidScratch struct {
	candidates []int
	neighbors  []avoidNeighbor
	lines      []Line
	proj       []Line
}

// AvoidanceSystem computes collision-free velocities with ORCA.
type AvoidanceSystem struct {
	cfg     AvoidanceConfig
	workers *WorkerPool

	agentMap *ecs.Map[components.AvoidanceAgent]
	velMap   *ecs.Map1[components.Velocity]

	records   []OrcaAgent
	solve     []bool
	maxSpeed  []float64
	pref      []r2.Vec
	results   []r2.Vec
	scratches []avoidScratch
}

// NewAvoidanceSystem creates an avoidance system over AvoidanceAgent
// components. workers may be nil to solve on the caller's goroutine.
func NewAvoidanceSystem(w *ecs.World, cfg AvoidanceConfig, workers *WorkerPool) *AvoidanceSystem {
	if cfg.MaxNeighbors <= 0 {
		cfg.MaxNeighbors = 10
	}
	return &AvoidanceSystem{
		cfg:       cfg,
		workers:   workers,
		agentMap:  ecs.NewMap[components.AvoidanceAgent](w),
		velMap:    ecs.NewMap1[components.Velocity](w),
		scratches: make([]avoidScratch, workers.Workers()),
	}
}

// Config returns the active avoidance configuration.
func (s *AvoidanceSystem) Config() AvoidanceConfig { return s.cfg }

// Update solves one avoidance step. When fromVelocity is set the preferred
// velocity is the agent's current Velocity component (after flocking);
// otherwise it is the flow direction scaled to max speed. dt <= 0 skips the
// pass. Returns the number of velocities written.
func (s *AvoidanceSystem) Update(crowd *Crowd, fields FieldSource, dt float64, fromVelocity bool) int {
	if dt <= 0 || crowd.Len() == 0 {
		return 0
	}
	n := crowd.Len()
	invTimeStep := 1 / dt

	// Phase A: working records and preferred velocities (single-threaded,
	// the only phase that reads ECS storage).
	s.records = s.records[:0]
	s.solve = s.solve[:0]
	s.maxSpeed = s.maxSpeed[:0]
	s.pref = s.pref[:0]
	for i := range crowd.Agents {
		a := &crowd.Agents[i]
		rec := OrcaAgent{
			Pos:            r2.Vec{X: a.Pos.X, Y: a.Pos.Z},
			Radius:         a.Radius,
			Responsibility: s.cfg.Responsibility,
		}
		if s.cfg.UseCurrentVelocity {
			rec.Vel = r2.Vec{X: a.Vel.X, Y: a.Vel.Z}
		}
		solve, speed := false, 0.0
		if s.agentMap.Has(a.Entity) {
			ag := s.agentMap.Get(a.Entity)
			rec.Radius = ag.Radius
			solve, speed = true, ag.MaxSpeed
		}
		var pref r2.Vec
		if solve {
			pref = s.preferred(a, fields, fromVelocity, speed)
		}
		s.records = append(s.records, rec)
		s.solve = append(s.solve, solve)
		s.maxSpeed = append(s.maxSpeed, speed)
		s.pref = append(s.pref, pref)
	}

	if cap(s.results) < n {
		s.results = make([]r2.Vec, n)
	}
	s.results = s.results[:n]

	// Phase B: solve each agent against the snapshot.
	s.workers.Run(n, func(worker, start, end int) {
		s.solveRange(crowd, &s.scratches[worker], start, end, invTimeStep)
	})

	// Phase C: commit (single-threaded).
	written := 0
	for i := range crowd.Agents {
		if !s.solve[i] {
			continue
		}
		vel := s.velMap.Get(crowd.Agents[i].Entity)
		if vel == nil {
			continue
		}
		vel.Set(r3.Vec{X: s.results[i].X, Z: s.results[i].Y})
		written++
	}
	return written
}

// solveRange computes new velocities for agents [start, end). It reads
// only the crowd and the working records.
func (s *AvoidanceSystem) solveRange(crowd *Crowd, sc *avoidScratch, start, end int, invTimeStep float64) {
	cutoffSq := s.cfg.NeighborDist * s.cfg.NeighborDist
	for i := start; i < end; i++ {
		if !s.solve[i] {
			continue
		}
		self := &s.records[i]

		sc.candidates = crowd.Buckets.QueryInto(sc.candidates[:0], crowd.Agents[i].Pos)
		sc.neighbors = sc.neighbors[:0]
		for _, j := range sc.candidates {
			if j == i {
				continue
			}
			d := r2.Norm2(r2.Sub(s.records[j].Pos, self.Pos))
			if d < cutoffSq {
				sc.neighbors = append(sc.neighbors, avoidNeighbor{idx: j, distSq: d})
			}
		}
		nbrs := sc.neighbors
		sort.Slice(nbrs, func(x, y int) bool {
			if nbrs[x].distSq != nbrs[y].distSq {
				return nbrs[x].distSq < nbrs[y].distSq
			}
			return nbrs[x].idx < nbrs[y].idx
		})
		if len(nbrs) > s.cfg.MaxNeighbors {
			nbrs = nbrs[:s.cfg.MaxNeighbors]
		}

		sc.lines = sc.lines[:0]
		for _, nb := range nbrs {
			if line, ok := OrcaLine(self, &s.records[nb.idx], s.cfg.TimeHorizon, invTimeStep); ok {
				sc.lines = append(sc.lines, line)
			}
		}
		s.results[i], sc.proj = SolveVelocity(sc.lines, s.maxSpeed[i], s.pref[i], sc.proj)
	}
}

// preferred returns the velocity an agent would take with no neighbors.
func (s *AvoidanceSystem) preferred(a *AgentSnapshot, fields FieldSource, fromVelocity bool, maxSpeed float64) r2.Vec {
	if a.State == components.NavIdle {
		return r2.Vec{}
	}
	if fromVelocity {
		v := r2.Vec{X: a.Vel.X, Y: a.Vel.Z}
		if live := s.velMap.Get(a.Entity); live != nil {
			v = r2.Vec{X: live.X, Y: live.Z}
		}
		if r2.Norm(v) > maxSpeed && maxSpeed > 0 {
			v = r2.Scale(maxSpeed, r2.Unit(v))
		}
		return v
	}
	field := fields.FieldFor(a.Group)
	if field == nil {
		return r2.Vec{}
	}
	dir := field.SampleDirection(a.Pos)
	if dir == (r3.Vec{}) {
		return r2.Vec{}
	}
	return r2.Scale(maxSpeed, r2.Unit(r2.Vec{X: dir.X, Y: dir.Z}))
}
