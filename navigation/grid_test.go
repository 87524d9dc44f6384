package navigation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func mustGrid(t *testing.T, w, h int, d float64) *Grid {
	t.Helper()
	g, err := NewGrid(Size{X: w, Y: h}, d)
	require.NoError(t, err, "NewGrid(%d, %d, %v)", w, h, d)
	return g
}

func TestNewGridRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		size Size
		d    float64
		want error
	}{
		{"zero columns", Size{X: 0, Y: 10}, 10, ErrEmptyGrid},
		{"zero rows", Size{X: 10, Y: 0}, 10, ErrEmptyGrid},
		{"negative", Size{X: -1, Y: 5}, 10, ErrEmptyGrid},
		{"zero diameter", Size{X: 5, Y: 5}, 0, ErrBadDiameter},
		{"negative diameter", Size{X: 5, Y: 5}, -2, ErrBadDiameter},
		{"nan diameter", Size{X: 5, Y: 5}, math.NaN(), ErrBadDiameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.size, tt.d)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, g)
		})
	}
}

func TestGridCellCountAndRoundTrip(t *testing.T) {
	g := mustGrid(t, 12, 7, 4)

	count := 0
	for x, col := range g.Cells() {
		for y, c := range col {
			count++
			idx := Index{X: x, Y: y}
			require.Equal(t, idx, c.GridIdx, "cell [%d][%d]", x, y)
			assert.Equal(t, idx, g.IndexAt(c.WorldPos))
			assert.Zero(t, c.WorldPos.Y, "cell %v off ground plane", idx)
			assert.Equal(t, CostDefault, c.Cost)
			assert.Equal(t, BestCostUnreached, c.BestCost)
			assert.Equal(t, DirNone, c.BestDirection)
		}
	}
	assert.Equal(t, 12*7, count)
}

func TestGridWorldPosition(t *testing.T) {
	g := mustGrid(t, 10, 10, 10)

	tests := []struct {
		idx  Index
		want r3.Vec
	}{
		{Index{0, 0}, r3.Vec{X: -45, Z: -45}},
		{Index{5, 5}, r3.Vec{X: 5, Z: 5}},
		{Index{9, 0}, r3.Vec{X: 45, Z: -45}},
		{Index{9, 9}, r3.Vec{X: 45, Z: 45}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.WorldPosition(tt.idx), "WorldPosition(%v)", tt.idx)
	}
}

func TestCellAtClamps(t *testing.T) {
	g := mustGrid(t, 10, 10, 10)

	tests := []struct {
		name  string
		world r3.Vec
		want  Index
	}{
		{"centre", r3.Vec{}, Index{5, 5}},
		{"far negative", r3.Vec{X: -1e9, Z: -1e9}, Index{0, 0}},
		{"far positive", r3.Vec{X: 1e9, Z: 1e9}, Index{9, 9}},
		{"exact max edge", r3.Vec{X: 50, Z: 50}, Index{9, 9}},
		{"mixed", r3.Vec{X: -1e9, Z: 44}, Index{0, 9}},
		{"nan", r3.Vec{X: math.NaN(), Z: math.NaN()}, Index{0, 0}},
		{"y ignored", r3.Vec{X: 1, Y: 300, Z: 1}, Index{5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := g.CellAt(tt.world)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.GridIdx)
		})
	}
}

func TestIncreaseCostSaturates(t *testing.T) {
	tests := []struct {
		start, add, want uint8
	}{
		{1, 0, 1},
		{1, 1, 2},
		{1, 253, 254},
		{1, 254, 255},
		{1, 255, 255},
		{200, 100, 255},
		{255, 1, 255},
	}
	for _, tt := range tests {
		c := Cell{Cost: tt.start}
		c.IncreaseCost(tt.add)
		assert.Equal(t, tt.want, c.Cost, "%d + %d", tt.start, tt.add)
	}
}

func TestBuildMarksObstacles(t *testing.T) {
	g := mustGrid(t, 10, 10, 10)
	// A box covering the cell at (2,3) only.
	box := g.WorldPosition(Index{2, 3})
	query := ObstacleQueryFunc(func(center r3.Vec, half float64) bool {
		return math.Abs(center.X-box.X) < half+1 && math.Abs(center.Z-box.Z) < half+1
	})

	assert.Equal(t, 1, g.Build(query))
	assert.True(t, g.Cell(Index{2, 3}).Impassable())
	assert.Equal(t, CostDefault, g.Cell(Index{2, 4}).Cost, "neighbor keeps default cost")

	// Rebuilding with no geometry reopens everything.
	assert.Zero(t, g.Build(nil))
	assert.Equal(t, CostDefault, g.Cell(Index{2, 3}).Cost, "costs reset before the query")
}

func TestResetCosts(t *testing.T) {
	g := mustGrid(t, 10, 10, 10)
	for _, col := range g.Cells() {
		for y := range col {
			col[y].IncreaseCost(CostImpassable)
		}
	}

	// Region covering cell (5,5) and touching nothing else.
	centre := g.WorldPosition(Index{5, 5})
	n := g.ResetCosts([]Region{{Center: centre, HalfExtent: r3.Vec{X: 2, Y: 2, Z: 2}}})
	assert.Equal(t, 1, n)
	assert.Equal(t, CostDefault, g.Cell(Index{5, 5}).Cost)

	// Region straddling the corner of four cells; one is already open.
	corner := r3.Vec{X: centre.X + 5, Z: centre.Z + 5}
	n = g.ResetCosts([]Region{{Center: corner, HalfExtent: r3.Vec{X: 1, Z: 1}}})
	assert.Equal(t, 3, n)
	for _, idx := range []Index{{5, 5}, {6, 5}, {5, 6}, {6, 6}} {
		assert.Equal(t, CostDefault, g.Cell(idx).Cost, "cell %v", idx)
	}
	assert.True(t, g.Cell(Index{7, 7}).Impassable(), "cell outside region untouched")
}

func TestCloneIsIndependent(t *testing.T) {
	g := mustGrid(t, 4, 4, 1)
	c := g.Clone()
	c.Cell(Index{1, 1}).IncreaseCost(10)
	assert.Equal(t, CostDefault, g.Cell(Index{1, 1}).Cost, "clone shares cells with original")
}
