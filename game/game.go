// Package game hosts a navigation session: the ECS world, the battlefield,
// the navigation systems and their telemetry, advanced one tick at a time.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/navigation"
	"github.com/pthm-cable/legion/systems"
	"github.com/pthm-cable/legion/telemetry"
)

// Options holds host settings that are not part of the config file.
type Options struct {
	Seed          int64 // 0 = config world.seed
	LogStats      bool
	LogInterval   int32 // ticks between world state logs, 0 = never
	OutputDir     string
	Metrics       *telemetry.Metrics
	StatsCallback func(telemetry.WindowStats)
	SkipScenario  bool // spawn nothing; the caller drives the session
}

// agentMapper creates agents with every navigation component.
type agentMapper = ecs.Map7[
	components.Position,
	components.Velocity,
	components.Rotation,
	components.Body,
	components.Navigator,
	components.Boid,
	components.AvoidanceAgent,
]

// Session holds the complete simulation state.
type Session struct {
	cfg   *config.Config
	world *ecs.World
	rng   *rand.Rand
	seed  int64
	dt    float64

	agents    *agentMapper
	posMap    *ecs.Map[components.Position]
	velMap    *ecs.Map[components.Velocity]
	navMap    *ecs.Map[components.Navigator]
	navFilter *ecs.Filter1[components.Navigator]

	// Battlefield
	obstacles       *systems.ObstacleMap
	obstacleVersion uint64
	grid            *navigation.Grid

	// Navigation
	ctrl      *systems.NavController
	crowd     *systems.Crowd
	boids     *systems.BoidSystem
	avoidance *systems.AvoidanceSystem
	movement  *systems.MovementSystem
	mode      systems.SteeringMode
	workers   *systems.WorkerPool

	// Scenario
	squads  []*Squad
	script  []config.OrderConfig
	pending map[uint32]*orderTrack

	// Telemetry
	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	metrics       *telemetry.Metrics
	statsCallback func(telemetry.WindowStats)
	logStats      bool
	logInterval   int32
	lastWindow    telemetry.WindowStats

	// State
	tick   int32
	counts systems.StateCounts
}

// NewSession builds a session from a validated config.
func NewSession(cfg *config.Config, opts Options) (*Session, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = cfg.World.Seed
	}
	world := ecs.NewWorld()

	s := &Session{
		cfg:           cfg,
		world:         world,
		rng:           rand.New(rand.NewSource(seed)),
		seed:          seed,
		dt:            cfg.World.DT,
		agents:        ecs.NewMap7[components.Position, components.Velocity, components.Rotation, components.Body, components.Navigator, components.Boid, components.AvoidanceAgent](world),
		posMap:        ecs.NewMap[components.Position](world),
		velMap:        ecs.NewMap[components.Velocity](world),
		navMap:        ecs.NewMap[components.Navigator](world),
		navFilter:     ecs.NewFilter1[components.Navigator](world),
		mode:          cfg.Derived.Steering,
		pending:       make(map[uint32]*orderTrack),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.World.DT),
		metrics:       opts.Metrics,
		statsCallback: opts.StatsCallback,
		logStats:      opts.LogStats,
		logInterval:   opts.LogInterval,
	}

	extentX, extentZ := cfg.Derived.ExtentX, cfg.Derived.ExtentZ
	s.obstacles = systems.NewObstacleMap(extentX, extentZ)
	if !opts.SkipScenario {
		s.placeObstacles()
	}
	s.obstacleVersion = s.obstacles.Version()

	grid, err := navigation.NewGrid(navigation.Size{X: cfg.Grid.Width, Y: cfg.Grid.Height}, cfg.Grid.CellDiameter)
	if err != nil {
		return nil, fmt.Errorf("creating grid: %w", err)
	}
	blocked := grid.Build(s.obstacles)
	s.grid = grid

	s.ctrl = systems.NewNavController(world, grid, systems.ControllerConfig{
		Integration:     cfg.Derived.Integration,
		ResetOnRetarget: cfg.Steering.ResetOnRetarget,
		FootprintPad:    cfg.Steering.FootprintPad,
	})
	s.workers = systems.NewWorkerPool(cfg.Steering.Workers)
	s.crowd = systems.NewCrowd(world, extentX, extentZ, cfg.Steering.BucketsPerAxis)
	s.boids = systems.NewBoidSystem(world, systems.BoidConfig{
		FlowWeight: cfg.Steering.FlowWeight,
		Smoothing:  cfg.Steering.Smoothing,
		MaxForce:   cfg.Steering.MaxForce,
		MaxSpeed:   cfg.Steering.MaxSpeed,
	})
	s.avoidance = systems.NewAvoidanceSystem(world, systems.AvoidanceConfig{
		TimeHorizon:        cfg.Avoidance.TimeHorizon,
		NeighborDist:       cfg.Avoidance.NeighborDist,
		MaxNeighbors:       cfg.Avoidance.MaxNeighbors,
		Responsibility:     cfg.Avoidance.Responsibility,
		UseCurrentVelocity: cfg.Avoidance.UseCurrentVelocity,
	}, s.workers)
	s.movement = systems.NewMovementSystem(world, extentX, extentZ, cfg.World.Friction, s.obstacles)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	s.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	if !opts.SkipScenario {
		s.loadScenario()
	}

	slog.Info("session created",
		"seed", seed,
		"grid", fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height),
		"cell_diameter", cfg.Grid.CellDiameter,
		"blocked_cells", blocked,
		"colliders", len(s.obstacles.Colliders()),
		"steering", s.mode.String(),
		"integration", cfg.Derived.Integration.String(),
		"agents", s.AgentCount(),
	)
	return s, nil
}

// keepClearRegions are the areas around spawns and scripted destinations
// that procedural rocks must not cover.
func (s *Session) keepClearRegions() []navigation.Region {
	half := s.cfg.Map.KeepClear
	if half <= 0 {
		return nil
	}
	ext := r3.Vec{X: half, Y: half, Z: half}
	var regions []navigation.Region
	for _, sq := range s.cfg.Scenario.Squads {
		regions = append(regions, navigation.Region{Center: r3.Vec{X: sq.X, Z: sq.Z}, HalfExtent: ext})
	}
	for _, o := range s.cfg.Scenario.Orders {
		if !o.Release {
			regions = append(regions, navigation.Region{Center: r3.Vec{X: o.X, Z: o.Z}, HalfExtent: ext})
		}
	}
	return regions
}

// placeObstacles adds the configured boxes and procedural outcrops.
func (s *Session) placeObstacles() {
	for _, b := range s.cfg.Map.Boxes {
		s.obstacles.AddBox(
			r3.Vec{X: b.X, Y: b.Height / 2, Z: b.Z},
			r3.Vec{X: b.HalfX, Y: b.Height / 2, Z: b.HalfZ},
			b.Sensor,
		)
	}
	oc := s.cfg.Map.Outcrops
	if oc.Enabled {
		n := s.obstacles.GenerateOutcrops(s.seed, systems.OutcropParams{
			Spacing:   oc.Spacing,
			Scale:     oc.Scale,
			Threshold: oc.Threshold,
			Height:    oc.Height,
		}, s.keepClearRegions())
		slog.Debug("outcrops generated", "rocks", n)
	}
}

// Order queues a destination for a group. The agents become the group's
// full membership when the request is drained at the start of the next tick.
func (s *Session) Order(group uint32, agents []ecs.Entity, point r3.Vec) uuid.UUID {
	req := systems.NewDestinationRequest(group, agents, point)
	s.ctrl.Enqueue(req)
	s.pending[group] = &orderTrack{
		id:     req.ID,
		issued: s.tick,
		agents: agents,
		dest:   point,
		radius: s.arrivalRadius(len(agents)),
	}
	slog.Debug("order queued", "order", req.ID, "group", group, "agents", len(agents), "x", point.X, "z", point.Z)
	return req.ID
}

// Release stops navigation for the agents immediately.
func (s *Session) Release(agents []ecs.Entity) int {
	return s.ctrl.Release(agents)
}

// Update runs a single tick: drain requests, update states, snapshot,
// steer, move, then telemetry.
func (s *Session) Update() {
	s.perfCollector.StartTick()

	s.perfCollector.StartPhase(telemetry.PhaseRequests)
	s.runScript()
	s.syncObstacles()
	orders := s.ctrl.Pending()
	s.ctrl.Drain()
	s.recordOrders(orders)

	s.perfCollector.StartPhase(telemetry.PhaseStates)
	s.counts = s.ctrl.UpdateStates()
	s.trackArrivals()

	s.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	s.crowd.Capture()

	switch s.mode {
	case systems.SteerBoids:
		s.perfCollector.StartPhase(telemetry.PhaseBoids)
		s.boids.Update(s.crowd, s.ctrl, s.dt)
	case systems.SteerAvoidance:
		s.perfCollector.StartPhase(telemetry.PhaseAvoidance)
		s.avoidance.Update(s.crowd, s.ctrl, s.dt, false)
	case systems.SteerBoth:
		s.perfCollector.StartPhase(telemetry.PhaseBoids)
		s.boids.Update(s.crowd, s.ctrl, s.dt)
		s.perfCollector.StartPhase(telemetry.PhaseAvoidance)
		s.avoidance.Update(s.crowd, s.ctrl, s.dt, true)
	}

	s.perfCollector.StartPhase(telemetry.PhaseMovement)
	s.movement.Update(s.dt)
	s.tick++

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	if s.logInterval > 0 && s.tick%s.logInterval == 0 {
		s.logWorldState()
	}

	s.metrics.ObserveTick(s.perfCollector.EndTick())
}

// syncObstacles rebuilds the grid and every live field when colliders changed.
func (s *Session) syncObstacles() {
	if v := s.obstacles.Version(); v != s.obstacleVersion {
		s.obstacleVersion = v
		blocked := s.ctrl.Rebuild(s.obstacles)
		slog.Info("battlefield changed", "tick", s.tick, "blocked_cells", blocked)
	}
}

// Close stops the solver workers and closes output files.
func (s *Session) Close() error {
	s.workers.Close()
	return s.outputManager.Close()
}

// Tick returns the number of completed ticks.
func (s *Session) Tick() int32 { return s.tick }

// Seed returns the seed the session was built with.
func (s *Session) Seed() int64 { return s.seed }

// World returns the ECS world.
func (s *Session) World() *ecs.World { return s.world }

// Controller returns the navigation controller.
func (s *Session) Controller() *systems.NavController { return s.ctrl }

// Obstacles returns the battlefield colliders. Changes take effect at the
// start of the next tick.
func (s *Session) Obstacles() *systems.ObstacleMap { return s.obstacles }

// Grid returns the static navigation grid.
func (s *Session) Grid() *navigation.Grid { return s.grid }

// Counts returns the state tallies from the last tick.
func (s *Session) Counts() systems.StateCounts { return s.counts }

// LastWindow returns the most recently flushed stats window.
func (s *Session) LastWindow() telemetry.WindowStats { return s.lastWindow }

// Position returns the position of e, or false if e is gone.
func (s *Session) Position(e ecs.Entity) (r3.Vec, bool) {
	if !s.world.Alive(e) || !s.posMap.Has(e) {
		return r3.Vec{}, false
	}
	return s.posMap.Get(e).Vec(), true
}

// NavState returns the navigation state of e.
func (s *Session) NavState(e ecs.Entity) components.NavState {
	if !s.world.Alive(e) || !s.navMap.Has(e) {
		return components.NavIdle
	}
	return s.navMap.Get(e).State
}
