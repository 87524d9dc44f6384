package components

// Body holds physical properties of an entity.
type Body struct {
	Radius float64
}

// AvoidanceAgent marks an entity as a participant in reciprocal avoidance.
// Per-frame working state is rebuilt by the avoidance system every tick.
type AvoidanceAgent struct {
	Radius   float64
	MaxSpeed float64
}
