package navigation

// Trace follows best directions from start until a cell with no direction.
// The returned path starts with start. arrived is true when the walk ended
// on the destination; unreachable starts return a single-element path.
func Trace(f *FlowField, start Index, maxSteps int) (path []Index, arrived bool) {
	idx := f.clamp(start)
	path = append(path, idx)
	for step := 0; step < maxSteps; step++ {
		dir := f.cells[idx.X][idx.Y].BestDirection
		if dir == DirNone {
			break
		}
		idx = idx.Add(dir.Offset())
		path = append(path, idx)
	}
	return path, idx == f.destination
}

// PathCost sums cardinal step lengths along a path: a diagonal hop counts
// as two cardinal steps.
func PathCost(path []Index) int {
	total := 0
	for i := 1; i < len(path); i++ {
		total += abs(path[i].X-path[i-1].X) + abs(path[i].Y-path[i-1].Y)
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
