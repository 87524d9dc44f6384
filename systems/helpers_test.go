package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/navigation"
)

var testBoidParams = components.BoidParams{
	Separation:         80,
	Alignment:          15,
	Cohesion:           10,
	NeighborRadius:     12,
	NeighborExitRadius: 14,
}

// fixture is a small world with a 10×10 grid of 10-unit cells.
type fixture struct {
	world *ecs.World
	grid  *navigation.Grid
	ctrl  *NavController
	crowd *Crowd

	spawner *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Navigator,
		components.Boid,
		components.AvoidanceAgent,
	]
	posMap  *ecs.Map[components.Position]
	velMap  *ecs.Map[components.Velocity]
	navMap  *ecs.Map[components.Navigator]
	boidMap *ecs.Map[components.Boid]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	w := ecs.NewWorld()
	g, err := navigation.NewGrid(navigation.Size{X: 10, Y: 10}, 10)
	require.NoError(t, err)
	g.Build(nil)

	return &fixture{
		world: w,
		grid:  g,
		ctrl:  NewNavController(w, g, ControllerConfig{ResetOnRetarget: true}),
		crowd: NewCrowd(w, 100, 100, 5),
		spawner: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Navigator,
			components.Boid,
			components.AvoidanceAgent,
		](w),
		posMap:  ecs.NewMap[components.Position](w),
		velMap:  ecs.NewMap[components.Velocity](w),
		navMap:  ecs.NewMap[components.Navigator](w),
		boidMap: ecs.NewMap[components.Boid](w),
	}
}

func (f *fixture) agent(x, z float64) ecs.Entity {
	pos := components.Position{X: x, Z: z}
	vel := components.Velocity{}
	rot := components.Rotation{}
	body := components.Body{Radius: 1}
	nav := components.Navigator{}
	boid := components.Boid{Params: testBoidParams}
	avoid := components.AvoidanceAgent{Radius: 1, MaxSpeed: 3}
	return f.spawner.NewEntity(&pos, &vel, &rot, &body, &nav, &boid, &avoid)
}

func (f *fixture) order(group uint32, point r3.Vec, agents ...ecs.Entity) DestinationRequest {
	req := NewDestinationRequest(group, agents, point)
	f.ctrl.Enqueue(req)
	f.ctrl.Drain()
	return req
}

func (f *fixture) moveTo(e ecs.Entity, x, z float64) {
	p := f.posMap.Get(e)
	p.X, p.Z = x, z
}

// staticFields serves fixed flow fields by group.
type staticFields map[uint32]*navigation.FlowField

func (s staticFields) FieldFor(group uint32) *navigation.FlowField { return s[group] }
