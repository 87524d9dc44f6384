package systems

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/navigation"
)

// SteeringMode selects which local steering runs each tick.
type SteeringMode uint8

const (
	SteerBoids SteeringMode = iota
	SteerAvoidance
	SteerBoth // flocking, then avoidance with the flocking velocity as preferred
)

// ParseSteeringMode maps a config string to a mode.
func ParseSteeringMode(s string) (SteeringMode, error) {
	switch s {
	case "", "boids":
		return SteerBoids, nil
	case "avoidance":
		return SteerAvoidance, nil
	case "both":
		return SteerBoth, nil
	}
	return SteerBoids, fmt.Errorf("unknown steering mode %q", s)
}

func (m SteeringMode) String() string {
	switch m {
	case SteerAvoidance:
		return "avoidance"
	case SteerBoth:
		return "both"
	}
	return "boids"
}

// DestinationRequest asks for a group of agents to move to a world point.
// The listed agents become the group's full membership.
type DestinationRequest struct {
	ID     uuid.UUID
	Group  uint32
	Agents []ecs.Entity
	Point  r3.Vec
}

// NewDestinationRequest creates a request with a fresh ID.
func NewDestinationRequest(group uint32, agents []ecs.Entity, point r3.Vec) DestinationRequest {
	return DestinationRequest{ID: uuid.New(), Group: group, Agents: agents, Point: point}
}

// BuildStat describes one flow field build.
type BuildStat struct {
	Order     uuid.UUID
	Group     uint32
	Agents    int
	Reset     int // cells returned to baseline under agent footprints
	Reachable int
	Visits    int
	Duration  time.Duration
}

// StateCounts tallies group members per navigation state.
type StateCounts struct {
	Active, Arrived int
}

type groupField struct {
	field   *navigation.FlowField
	order   uuid.UUID
	goal    r3.Vec
	members map[ecs.Entity]struct{}
}

// ControllerConfig holds the controller knobs.
type ControllerConfig struct {
	Integration     navigation.IntegrationMode
	ResetOnRetarget bool
	// FootprintPad is added to each agent's body radius when clearing its
	// footprint from the cost field.
	FootprintPad float64
}

// NavController owns the static grid and one flow field per group.
// Requests are queued and drained synchronously once per tick.
type NavController struct {
	cfg    ControllerConfig
	grid   *navigation.Grid
	queue  []DestinationRequest
	groups map[uint32]*groupField
	builds []BuildStat

	world   *ecs.World
	navMap  *ecs.Map[components.Navigator]
	posMap  *ecs.Map[components.Position]
	velMap  *ecs.Map[components.Velocity]
	bodyMap *ecs.Map[components.Body]
	boidMap *ecs.Map[components.Boid]

	regions []navigation.Region
}

// NewNavController creates a controller over a built grid.
func NewNavController(w *ecs.World, grid *navigation.Grid, cfg ControllerConfig) *NavController {
	return &NavController{
		cfg:     cfg,
		grid:    grid,
		groups:  make(map[uint32]*groupField),
		world:   w,
		navMap:  ecs.NewMap[components.Navigator](w),
		posMap:  ecs.NewMap[components.Position](w),
		velMap:  ecs.NewMap[components.Velocity](w),
		bodyMap: ecs.NewMap[components.Body](w),
		boidMap: ecs.NewMap[components.Boid](w),
	}
}

// Grid returns the static grid.
func (c *NavController) Grid() *navigation.Grid { return c.grid }

// Enqueue queues a request for the next Drain.
func (c *NavController) Enqueue(req DestinationRequest) {
	c.queue = append(c.queue, req)
}

// Pending returns the number of queued requests.
func (c *NavController) Pending() int { return len(c.queue) }

// Drain handles every queued request in order and returns how many
// produced a flow field.
func (c *NavController) Drain() int {
	built := 0
	for i := range c.queue {
		if c.handle(&c.queue[i]) {
			built++
		}
	}
	clear(c.queue)
	c.queue = c.queue[:0]
	return built
}

// TakeBuilds returns build stats accumulated since the previous call.
func (c *NavController) TakeBuilds() []BuildStat {
	b := c.builds
	c.builds = nil
	return b
}

// FieldFor returns the live flow field for a group, or nil.
func (c *NavController) FieldFor(group uint32) *navigation.FlowField {
	if g, ok := c.groups[group]; ok {
		return g.field
	}
	return nil
}

// Goal returns the destination point of a group's current order.
func (c *NavController) Goal(group uint32) (r3.Vec, bool) {
	if g, ok := c.groups[group]; ok {
		return g.goal, true
	}
	return r3.Vec{}, false
}

// Groups returns the number of groups with a live field.
func (c *NavController) Groups() int { return len(c.groups) }

func (c *NavController) handle(req *DestinationRequest) bool {
	if len(req.Agents) == 0 {
		slog.Debug("nav_request_empty", "order", req.ID, "group", req.Group)
		return false
	}

	// Only live navigable agents take part.
	agents := req.Agents[:0:0]
	for _, e := range req.Agents {
		if c.world.Alive(e) && c.navMap.Has(e) && c.posMap.Has(e) {
			agents = append(agents, e)
		}
	}
	if len(agents) == 0 {
		slog.Debug("nav_request_no_agents", "order", req.ID, "group", req.Group, "requested", len(req.Agents))
		return false
	}

	start := time.Now()
	field, reset := c.buildField(agents, req.Point)
	stat := BuildStat{
		Order:     req.ID,
		Group:     req.Group,
		Agents:    len(agents),
		Reset:     reset,
		Reachable: field.Reachable(),
		Visits:    field.Visits,
		Duration:  time.Since(start),
	}

	// Previous members not named by this request drop to idle.
	if old, ok := c.groups[req.Group]; ok {
		keep := make(map[ecs.Entity]struct{}, len(agents))
		for _, e := range agents {
			keep[e] = struct{}{}
		}
		for e := range old.members {
			if _, ok := keep[e]; !ok && c.world.Alive(e) && c.navMap.Has(e) {
				c.navMap.Get(e).State = components.NavIdle
			}
		}
	}

	g := &groupField{
		field:   field,
		order:   req.ID,
		goal:    req.Point,
		members: make(map[ecs.Entity]struct{}, len(agents)),
	}
	c.groups[req.Group] = g

	for _, e := range agents {
		nav := c.navMap.Get(e)
		if nav.Group != req.Group {
			c.leave(nav.Group, e)
		}
		nav.Group = req.Group
		nav.State = components.NavActive
		nav.Order = req.ID
		nav.Goal = req.Point
		g.members[e] = struct{}{}

		if c.cfg.ResetOnRetarget && c.boidMap.Has(e) {
			c.boidMap.Get(e).Reset()
		}
	}

	c.builds = append(c.builds, stat)
	slog.Debug("nav_field_built",
		"order", req.ID,
		"group", req.Group,
		"agents", len(agents),
		"dest", field.Destination(),
		"reachable", stat.Reachable,
		"reset_cells", reset,
		"duration_us", stat.Duration.Microseconds(),
	)
	return true
}

// buildField clears the agents' footprints on a copy of the grid so they
// never block their own path, then runs the wavefront.
func (c *NavController) buildField(agents []ecs.Entity, point r3.Vec) (*navigation.FlowField, int) {
	grid := c.grid.Clone()

	c.regions = c.regions[:0]
	for _, e := range agents {
		pos := c.posMap.Get(e)
		r := c.cfg.FootprintPad
		if c.bodyMap.Has(e) {
			r += c.bodyMap.Get(e).Radius
		}
		c.regions = append(c.regions, navigation.Region{
			Center:     pos.Vec(),
			HalfExtent: r3.Vec{X: r, Y: r, Z: r},
		})
	}
	reset := grid.ResetCosts(c.regions)

	field := navigation.NewFlowField(grid)
	field.SetIntegrationMode(c.cfg.Integration)
	field.Build(grid.IndexAt(point))
	return field, reset
}

// leave removes e from a group, discarding the group's field once empty.
func (c *NavController) leave(group uint32, e ecs.Entity) {
	g, ok := c.groups[group]
	if !ok {
		return
	}
	delete(g.members, e)
	if len(g.members) == 0 {
		delete(c.groups, group)
		slog.Debug("nav_field_released", "group", group, "order", g.order)
	}
}

// Release removes agents from navigation: they go idle with zeroed
// velocity and steering history.
func (c *NavController) Release(agents []ecs.Entity) int {
	released := 0
	for _, e := range agents {
		if !c.world.Alive(e) || !c.navMap.Has(e) {
			continue
		}
		nav := c.navMap.Get(e)
		c.leave(nav.Group, e)
		nav.State = components.NavIdle
		nav.Order = uuid.Nil
		if c.velMap.Has(e) {
			*c.velMap.Get(e) = components.Velocity{}
		}
		if c.boidMap.Has(e) {
			c.boidMap.Get(e).Reset()
		}
		released++
	}
	return released
}

// UpdateStates moves Active agents standing in their destination cell to
// Arrived, and Arrived agents pushed out of it back to Active.
func (c *NavController) UpdateStates() StateCounts {
	var counts StateCounts
	for _, g := range c.groups {
		for e := range g.members {
			if !c.world.Alive(e) {
				delete(g.members, e)
				continue
			}
			nav := c.navMap.Get(e)
			if nav.State == components.NavIdle {
				continue
			}
			at := g.field.AtDestination(c.posMap.Get(e).Vec())
			switch {
			case nav.State == components.NavActive && at:
				nav.State = components.NavArrived
			case nav.State == components.NavArrived && !at:
				nav.State = components.NavActive
			}
			if nav.State == components.NavArrived {
				counts.Arrived++
			} else {
				counts.Active++
			}
		}
	}
	return counts
}

// Rebuild replaces the static grid costs from query and recomputes every
// live field toward its current goal.
func (c *NavController) Rebuild(query navigation.ObstacleQuery) int {
	blocked := c.grid.Build(query)
	for group, g := range c.groups {
		agents := make([]ecs.Entity, 0, len(g.members))
		for e := range g.members {
			if c.world.Alive(e) {
				agents = append(agents, e)
			}
		}
		start := time.Now()
		field, reset := c.buildField(agents, g.goal)
		g.field = field
		c.builds = append(c.builds, BuildStat{
			Order:     g.order,
			Group:     group,
			Agents:    len(agents),
			Reset:     reset,
			Reachable: field.Reachable(),
			Visits:    field.Visits,
			Duration:  time.Since(start),
		})
	}
	slog.Debug("nav_grid_rebuilt", "blocked_cells", blocked, "groups", len(c.groups))
	return blocked
}
