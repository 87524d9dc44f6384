package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
)

// AgentSnapshot captures read-only agent state at the start of a tick.
type AgentSnapshot struct {
	Entity ecs.Entity
	Pos    r3.Vec
	Vel    r3.Vec
	Group  uint32
	State  components.NavState
	Radius float64
}

// Crowd holds the per-tick snapshot of every navigable agent and the bucket
// grid indexing it. Steering systems read only from the crowd, so no agent
// observes a partially updated sibling.
type Crowd struct {
	Agents  []AgentSnapshot
	Buckets *BucketGrid

	// index maps entity to its snapshot slot for this tick.
	index map[ecs.Entity]int

	filter *ecs.Filter4[components.Position, components.Velocity, components.Body, components.Navigator]
}

// NewCrowd creates a crowd over the world's navigable agents.
func NewCrowd(w *ecs.World, extentX, extentZ float64, bucketsPerAxis int) *Crowd {
	return &Crowd{
		Agents:  make([]AgentSnapshot, 0, 512),
		Buckets: NewBucketGrid(extentX, extentZ, bucketsPerAxis),
		index:   make(map[ecs.Entity]int, 512),
		filter:  ecs.NewFilter4[components.Position, components.Velocity, components.Body, components.Navigator](w),
	}
}

// Capture snapshots every navigable agent and rebuilds the buckets.
func (c *Crowd) Capture() {
	c.Agents = c.Agents[:0]
	clear(c.index)
	c.Buckets.Clear()

	query := c.filter.Query()
	for query.Next() {
		pos, vel, body, nav := query.Get()
		i := len(c.Agents)
		c.Agents = append(c.Agents, AgentSnapshot{
			Entity: query.Entity(),
			Pos:    pos.Vec(),
			Vel:    vel.Vec(),
			Group:  nav.Group,
			State:  nav.State,
			Radius: body.Radius,
		})
		c.index[query.Entity()] = i
		c.Buckets.Insert(i, c.Agents[i].Pos)
	}
}

// Lookup returns the snapshot slot of e for this tick.
func (c *Crowd) Lookup(e ecs.Entity) (int, bool) {
	i, ok := c.index[e]
	return i, ok
}

// Len returns the number of captured agents.
func (c *Crowd) Len() int { return len(c.Agents) }
