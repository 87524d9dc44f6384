// Package systems provides ECS systems for group navigation: flocking,
// reciprocal avoidance, movement and the destination controller.
package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BucketGrid buckets snapshot indices by ground-plane position. Buckets are
// a fixed count per axis covering a world extent centred on the origin.
type BucketGrid struct {
	perAxis      int
	sizeX, sizeZ float64
	originX      float64
	originZ      float64
	buckets      [][]int32 // flat grid, row-major on Z
}

// NewBucketGrid creates a grid of perAxis×perAxis buckets covering the given extent.
func NewBucketGrid(extentX, extentZ float64, perAxis int) *BucketGrid {
	if perAxis < 1 {
		perAxis = 1
	}
	buckets := make([][]int32, perAxis*perAxis)
	for i := range buckets {
		buckets[i] = make([]int32, 0, 8)
	}
	return &BucketGrid{
		perAxis: perAxis,
		sizeX:   extentX / float64(perAxis),
		sizeZ:   extentZ / float64(perAxis),
		originX: -extentX / 2,
		originZ: -extentZ / 2,
		buckets: buckets,
	}
}

// BucketSize returns the world size of one bucket along X and Z.
func (g *BucketGrid) BucketSize() (x, z float64) {
	return g.sizeX, g.sizeZ
}

// PerAxis returns the bucket count per axis.
func (g *BucketGrid) PerAxis() int { return g.perAxis }

// Clear empties every bucket, keeping capacity.
func (g *BucketGrid) Clear() {
	for i := range g.buckets {
		g.buckets[i] = g.buckets[i][:0]
	}
}

// Insert adds snapshot index i at pos. Positions outside the extent land in
// the nearest edge bucket.
func (g *BucketGrid) Insert(i int, pos r3.Vec) {
	col, row := g.Bucket(pos)
	b := row*g.perAxis + col
	g.buckets[b] = append(g.buckets[b], int32(i))
}

// Bucket returns the clamped bucket coordinate for pos.
func (g *BucketGrid) Bucket(pos r3.Vec) (col, row int) {
	return g.axis(pos.X-g.originX, g.sizeX), g.axis(pos.Z-g.originZ, g.sizeZ)
}

func (g *BucketGrid) axis(offset, size float64) int {
	if !(size > 0) || math.IsNaN(offset) {
		return 0
	}
	f := math.Floor(offset / size)
	if f < 0 {
		return 0
	}
	if f >= float64(g.perAxis) {
		return g.perAxis - 1
	}
	return int(f)
}

// QueryInto appends every index stored in the 3×3 bucket neighborhood of
// pos to dst and returns it. Callers filter by distance.
func (g *BucketGrid) QueryInto(dst []int, pos r3.Vec) []int {
	col, row := g.Bucket(pos)
	for dr := -1; dr <= 1; dr++ {
		r := row + dr
		if r < 0 || r >= g.perAxis {
			continue
		}
		for dc := -1; dc <= 1; dc++ {
			c := col + dc
			if c < 0 || c >= g.perAxis {
				continue
			}
			for _, i := range g.buckets[r*g.perAxis+c] {
				dst = append(dst, int(i))
			}
		}
	}
	return dst
}
