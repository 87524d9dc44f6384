package navigation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid construction errors.
var (
	ErrEmptyGrid   = errors.New("navigation: grid needs at least one row and one column")
	ErrBadDiameter = errors.New("navigation: cell diameter must be positive")
)

// ObstacleQuery answers whether static, non-sensor geometry overlaps an
// axis-aligned cube. Any spatial-query provider can implement it.
type ObstacleQuery interface {
	OverlapsCube(center r3.Vec, halfExtent float64) bool
}

// ObstacleQueryFunc adapts a plain function to ObstacleQuery.
type ObstacleQueryFunc func(center r3.Vec, halfExtent float64) bool

// OverlapsCube implements ObstacleQuery.
func (f ObstacleQueryFunc) OverlapsCube(center r3.Vec, halfExtent float64) bool {
	return f(center, halfExtent)
}

// Region is an axis-aligned box on the ground plane (Y is ignored).
type Region struct {
	Center     r3.Vec
	HalfExtent r3.Vec
}

// layout maps between world space and grid indices. The grid origin is its
// geometric centre.
type layout struct {
	size         Size
	cellRadius   float64
	cellDiameter float64
}

func (l layout) extent() (w, h float64) {
	return float64(l.size.X) * l.cellDiameter, float64(l.size.Y) * l.cellDiameter
}

func (l layout) worldPosition(idx Index) r3.Vec {
	w, h := l.extent()
	return r3.Vec{
		X: float64(idx.X)*l.cellDiameter + l.cellRadius - w/2,
		Y: 0,
		Z: float64(idx.Y)*l.cellDiameter + l.cellRadius - h/2,
	}
}

// indexAt never fails: percentages are clamped to [0,1] and indices to the grid.
func (l layout) indexAt(world r3.Vec) Index {
	w, h := l.extent()
	pctX := clamp01((world.X + w/2) / w)
	pctY := clamp01((world.Z + h/2) / h)

	x := int(math.Floor(float64(l.size.X) * pctX))
	y := int(math.Floor(float64(l.size.Y) * pctY))
	return l.clamp(Index{X: x, Y: y})
}

func (l layout) clamp(idx Index) Index {
	if idx.X < 0 {
		idx.X = 0
	} else if idx.X >= l.size.X {
		idx.X = l.size.X - 1
	}
	if idx.Y < 0 {
		idx.Y = 0
	} else if idx.Y >= l.size.Y {
		idx.Y = l.size.Y - 1
	}
	return idx
}

func (l layout) inBounds(idx Index) bool {
	return idx.X >= 0 && idx.Y >= 0 && idx.X < l.size.X && idx.Y < l.size.Y
}

// Grid is the static cell array built once per map. Cell costs form the
// cost field shared by every flow field computation.
type Grid struct {
	layout
	cells [][]Cell // indexed [x][y]
}

// NewGrid allocates size.X*size.Y cells with baseline cost at their world positions.
func NewGrid(size Size, cellDiameter float64) (*Grid, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrEmptyGrid, size.X, size.Y)
	}
	if !(cellDiameter > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrBadDiameter, cellDiameter)
	}

	g := &Grid{
		layout: layout{
			size:         size,
			cellRadius:   cellDiameter / 2,
			cellDiameter: cellDiameter,
		},
	}
	g.cells = make([][]Cell, size.X)
	for x := range g.cells {
		g.cells[x] = make([]Cell, size.Y)
		for y := range g.cells[x] {
			idx := Index{X: x, Y: y}
			g.cells[x][y] = newCell(g.worldPosition(idx), idx)
		}
	}
	return g, nil
}

// Build resets every cost to baseline and pushes cells overlapping static
// geometry to the impassable ceiling. A nil query leaves the grid open.
func (g *Grid) Build(query ObstacleQuery) (blocked int) {
	for x := range g.cells {
		for y := range g.cells[x] {
			c := &g.cells[x][y]
			c.Cost = CostDefault
			if query != nil && query.OverlapsCube(c.WorldPos, g.cellRadius) {
				c.IncreaseCost(CostImpassable)
				blocked++
			}
		}
	}
	return blocked
}

// Clone returns a deep copy whose costs can be modified independently.
func (g *Grid) Clone() *Grid {
	c := &Grid{layout: g.layout, cells: make([][]Cell, len(g.cells))}
	for x := range g.cells {
		c.cells[x] = make([]Cell, len(g.cells[x]))
		copy(c.cells[x], g.cells[x])
	}
	return c
}

// Size returns the grid dimensions in cells.
func (g *Grid) Size() Size { return g.size }

// CellRadius returns half the cell diameter.
func (g *Grid) CellRadius() float64 { return g.cellRadius }

// CellDiameter returns the cell edge length in world units.
func (g *Grid) CellDiameter() float64 { return g.cellDiameter }

// Extent returns the world-space width (X) and depth (Z) of the grid.
func (g *Grid) Extent() (w, h float64) { return g.extent() }

// InBounds reports whether idx addresses a cell.
func (g *Grid) InBounds(idx Index) bool { return g.inBounds(idx) }

// Cell returns the cell at idx, clamped into range.
func (g *Grid) Cell(idx Index) *Cell {
	idx = g.clamp(idx)
	return &g.cells[idx.X][idx.Y]
}

// IndexAt maps a world position to its containing cell index.
func (g *Grid) IndexAt(world r3.Vec) Index { return g.indexAt(world) }

// CellAt returns the cell containing a world position. Out-of-range
// positions resolve to the nearest edge cell.
func (g *Grid) CellAt(world r3.Vec) *Cell {
	idx := g.indexAt(world)
	return &g.cells[idx.X][idx.Y]
}

// WorldPosition returns the centre of the cell at idx.
func (g *Grid) WorldPosition(idx Index) r3.Vec { return g.worldPosition(idx) }

// Cells exposes the cell array for read-only consumers such as debug views.
func (g *Grid) Cells() [][]Cell { return g.cells }

// ResetCosts returns every cell overlapped by a region to baseline cost.
// Used for the footprint of agents about to move so they never block their own path.
func (g *Grid) ResetCosts(regions []Region) (reset int) {
	for _, r := range regions {
		lo := g.indexAt(r3.Vec{X: r.Center.X - r.HalfExtent.X, Z: r.Center.Z - r.HalfExtent.Z})
		hi := g.indexAt(r3.Vec{X: r.Center.X + r.HalfExtent.X, Z: r.Center.Z + r.HalfExtent.Z})
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				c := &g.cells[x][y]
				if !g.overlaps(c.WorldPos, r) {
					continue
				}
				if c.Cost != CostDefault {
					c.Cost = CostDefault
					reset++
				}
			}
		}
	}
	return reset
}

// overlaps tests the cell's square footprint against the region on the XZ plane.
func (g *Grid) overlaps(center r3.Vec, r Region) bool {
	return math.Abs(center.X-r.Center.X) < g.cellRadius+r.HalfExtent.X &&
		math.Abs(center.Z-r.Center.Z) < g.cellRadius+r.HalfExtent.Z
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
