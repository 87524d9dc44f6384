package navigation

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Edge weights are at most 254, so a ring of 256 buckets always separates
// the cost being settled from every pending one.
const bucketRing = int(CostImpassable) + 1

// IntegrationMode selects the wavefront algorithm.
type IntegrationMode uint8

const (
	// IntegrationFIFO relaxes cells in discovery order, re-visiting a cell
	// whenever a cheaper route to it is found.
	IntegrationFIFO IntegrationMode = iota
	// IntegrationBucket settles cells in cost order using a ring of cost buckets.
	// Produces the same best costs as IntegrationFIFO with fewer re-visits.
	IntegrationBucket
)

// ParseIntegrationMode maps a config string to a mode.
func ParseIntegrationMode(s string) (IntegrationMode, bool) {
	switch s {
	case "", "fifo":
		return IntegrationFIFO, true
	case "bucket":
		return IntegrationBucket, true
	}
	return IntegrationFIFO, false
}

func (m IntegrationMode) String() string {
	if m == IntegrationBucket {
		return "bucket"
	}
	return "fifo"
}

// FlowField owns a copy of the grid cells and derives per-cell directions
// toward a single destination.
type FlowField struct {
	layout
	cells       [][]Cell
	destination Index
	mode        IntegrationMode

	// Cost of the destination cell before it was zeroed.
	destCost uint8
	hasDest  bool

	queue   indexQueue
	buckets [bucketRing][]Index

	// Visits counts queue pops in the last integration pass.
	Visits int
}

// NewFlowField copies the grid cells, including their current costs.
func NewFlowField(g *Grid) *FlowField {
	clone := g.Clone()
	return &FlowField{
		layout: clone.layout,
		cells:  clone.cells,
	}
}

// SetIntegrationMode selects the wavefront used by CreateIntegrationField.
func (f *FlowField) SetIntegrationMode(m IntegrationMode) {
	f.mode = m
}

// Build runs the wavefront from dest and derives directions.
func (f *FlowField) Build(dest Index) {
	f.CreateIntegrationField(dest)
	f.CreateFlowField()
}

// CreateIntegrationField computes best_cost for every reachable cell.
// Previous results are cleared so the field can be reused.
func (f *FlowField) CreateIntegrationField(dest Index) {
	dest = f.clamp(dest)
	if f.hasDest {
		f.cells[f.destination.X][f.destination.Y].Cost = f.destCost
	}
	f.destination = dest
	f.destCost = f.cells[dest.X][dest.Y].Cost
	f.hasDest = true

	for x := range f.cells {
		for y := range f.cells[x] {
			f.cells[x][y].BestCost = BestCostUnreached
			f.cells[x][y].BestDirection = DirNone
		}
	}

	d := &f.cells[dest.X][dest.Y]
	d.Cost = 0
	d.BestCost = 0

	if f.mode == IntegrationBucket {
		f.integrateBuckets(dest)
		return
	}
	f.integrateFIFO(dest)
}

func (f *FlowField) integrateFIFO(dest Index) {
	f.Visits = 0
	f.queue.reset()
	f.queue.push(dest)

	for f.queue.len() > 0 {
		idx := f.queue.pop()
		f.Visits++
		cur := f.cells[idx.X][idx.Y].BestCost

		for _, dir := range Cardinals {
			n := idx.Add(dir.Offset())
			if !f.inBounds(n) {
				continue
			}
			nc := &f.cells[n.X][n.Y]
			if nc.Cost == CostImpassable {
				continue
			}
			candidate := uint32(nc.Cost) + uint32(cur)
			if candidate >= uint32(BestCostUnreached) {
				continue
			}
			if uint16(candidate) < nc.BestCost {
				nc.BestCost = uint16(candidate)
				f.queue.push(n)
			}
		}
	}
}

// integrateBuckets is Dial's algorithm over a cost-indexed ring.
func (f *FlowField) integrateBuckets(dest Index) {
	f.Visits = 0
	for i := range f.buckets {
		f.buckets[i] = f.buckets[i][:0]
	}
	f.buckets[0] = append(f.buckets[0], dest)
	pending := 1

	for cost := 0; pending > 0; cost++ {
		slot := cost % bucketRing
		for _, idx := range f.buckets[slot] {
			pending--
			c := &f.cells[idx.X][idx.Y]
			if int(c.BestCost) != cost {
				continue // stale entry
			}
			f.Visits++

			for _, dir := range Cardinals {
				n := idx.Add(dir.Offset())
				if !f.inBounds(n) {
					continue
				}
				nc := &f.cells[n.X][n.Y]
				if nc.Cost == CostImpassable {
					continue
				}
				candidate := int(nc.Cost) + cost
				if candidate >= int(BestCostUnreached) {
					continue
				}
				if candidate < int(nc.BestCost) {
					nc.BestCost = uint16(candidate)
					s := candidate % bucketRing
					f.buckets[s] = append(f.buckets[s], n)
					pending++
				}
			}
		}
		f.buckets[slot] = f.buckets[slot][:0]
	}
}

// CreateFlowField sets each passable cell's direction to the neighbor with
// the strictly smallest best cost below its own, scanning in Compass order.
func (f *FlowField) CreateFlowField() {
	for x := range f.cells {
		for y := range f.cells[x] {
			c := &f.cells[x][y]
			c.BestDirection = DirNone
			if c.Cost == CostImpassable {
				continue
			}

			// Unreached cells hold the sentinel, so any reached neighbor wins.
			best := c.BestCost
			for _, dir := range Compass {
				n := c.GridIdx.Add(dir.Offset())
				if !f.inBounds(n) {
					continue
				}
				nc := &f.cells[n.X][n.Y]
				if nc.Cost == CostImpassable {
					continue
				}
				if nc.BestCost < best {
					best = nc.BestCost
					c.BestDirection = dir
				}
			}
		}
	}
}

// SampleDirection returns the raw direction vector of the cell containing
// world. A zero vector means hold position.
func (f *FlowField) SampleDirection(world r3.Vec) r3.Vec {
	idx := f.indexAt(world)
	return f.cells[idx.X][idx.Y].BestDirection.Vector()
}

// DirectionAt returns the direction of the cell containing world.
func (f *FlowField) DirectionAt(world r3.Vec) Direction {
	idx := f.indexAt(world)
	return f.cells[idx.X][idx.Y].BestDirection
}

// Cell returns the field cell at idx, clamped into range.
func (f *FlowField) Cell(idx Index) *Cell {
	idx = f.clamp(idx)
	return &f.cells[idx.X][idx.Y]
}

// CellAt returns the field cell containing world.
func (f *FlowField) CellAt(world r3.Vec) *Cell {
	idx := f.indexAt(world)
	return &f.cells[idx.X][idx.Y]
}

// IndexAt maps a world position into the field.
func (f *FlowField) IndexAt(world r3.Vec) Index { return f.indexAt(world) }

// WorldPosition returns the centre of the cell at idx.
func (f *FlowField) WorldPosition(idx Index) r3.Vec { return f.worldPosition(idx) }

// Destination returns the destination cell index.
func (f *FlowField) Destination() Index { return f.destination }

// AtDestination reports whether world lies in the destination cell.
func (f *FlowField) AtDestination(world r3.Vec) bool {
	return f.indexAt(world) == f.destination
}

// Size returns the field dimensions in cells.
func (f *FlowField) Size() Size { return f.size }

// CellDiameter returns the cell edge length in world units.
func (f *FlowField) CellDiameter() float64 { return f.cellDiameter }

// Cells exposes the field for read-only consumers.
func (f *FlowField) Cells() [][]Cell { return f.cells }

// Reachable counts cells with a finite best cost.
func (f *FlowField) Reachable() int {
	n := 0
	for x := range f.cells {
		for y := range f.cells[x] {
			if f.cells[x][y].Reached() {
				n++
			}
		}
	}
	return n
}
