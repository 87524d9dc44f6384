package navigation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Cost bounds for the cost field.
const (
	CostDefault    uint8 = 1
	CostImpassable uint8 = math.MaxUint8

	// BestCostUnreached marks a cell the wavefront never reached.
	BestCostUnreached uint16 = math.MaxUint16
)

// Index is a 2D integer grid coordinate.
type Index struct {
	X, Y int
}

// Add returns the index offset by o.
func (i Index) Add(o Index) Index {
	return Index{X: i.X + o.X, Y: i.Y + o.Y}
}

// Size is the grid dimension in cells.
type Size struct {
	X, Y int
}

// Cells returns the total number of cells.
func (s Size) Cells() int {
	return s.X * s.Y
}

// Cell holds per-cell navigation state.
type Cell struct {
	WorldPos      r3.Vec
	GridIdx       Index
	Cost          uint8
	BestCost      uint16
	BestDirection Direction
}

func newCell(worldPos r3.Vec, idx Index) Cell {
	return Cell{
		WorldPos:      worldPos,
		GridIdx:       idx,
		Cost:          CostDefault,
		BestCost:      BestCostUnreached,
		BestDirection: DirNone,
	}
}

// IncreaseCost raises the cost by amount, saturating at CostImpassable.
func (c *Cell) IncreaseCost(amount uint8) {
	if int(c.Cost)+int(amount) >= int(CostImpassable) {
		c.Cost = CostImpassable
		return
	}
	c.Cost += amount
}

// Impassable reports whether agents can never enter the cell.
func (c *Cell) Impassable() bool {
	return c.Cost == CostImpassable
}

// Reached reports whether the wavefront assigned a finite best cost.
func (c *Cell) Reached() bool {
	return c.BestCost != BestCostUnreached
}
