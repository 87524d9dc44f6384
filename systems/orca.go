package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const orcaEpsilon = 1e-5

// Line is a directed half-plane boundary in velocity space. The permitted
// half-plane lies to the left of Direction.
type Line struct {
	Point     r2.Vec
	Direction r2.Vec
}

// OrcaAgent is the per-frame working record of one avoidance participant.
type OrcaAgent struct {
	Pos            r2.Vec
	Vel            r2.Vec
	Radius         float64
	Responsibility float64
}

// share returns the fraction of the avoidance effort a takes on against b.
func share(a, b *OrcaAgent) float64 {
	sum := a.Responsibility + b.Responsibility
	if sum <= 0 {
		return 0.5
	}
	return a.Responsibility / sum
}

// OrcaLine builds the half-plane that keeps self collision-free with other
// for timeHorizon seconds. invTimeStep resolves already-overlapping pairs
// within one step. ok is false for degenerate pairs with no defined normal.
func OrcaLine(self, other *OrcaAgent, timeHorizon, invTimeStep float64) (line Line, ok bool) {
	invTimeHorizon := 1 / timeHorizon
	relPos := r2.Sub(other.Pos, self.Pos)
	relVel := r2.Sub(self.Vel, other.Vel)
	distSq := r2.Norm2(relPos)
	combinedRadius := self.Radius + other.Radius
	combinedRadiusSq := combinedRadius * combinedRadius

	var u r2.Vec
	if distSq > combinedRadiusSq {
		// No collision yet.
		w := r2.Sub(relVel, r2.Scale(invTimeHorizon, relPos))
		wLengthSq := r2.Norm2(w)
		dot1 := r2.Dot(w, relPos)

		if dot1 < 0 && dot1*dot1 > combinedRadiusSq*wLengthSq {
			// Project on cut-off circle.
			wLength := math.Sqrt(wLengthSq)
			if wLength < orcaEpsilon {
				return Line{}, false
			}
			unitW := r2.Scale(1/wLength, w)
			line.Direction = r2.Vec{X: unitW.Y, Y: -unitW.X}
			u = r2.Scale(combinedRadius*invTimeHorizon-wLength, unitW)
		} else {
			// Project on legs.
			leg := math.Sqrt(distSq - combinedRadiusSq)
			if r2.Cross(relPos, w) > 0 {
				line.Direction = r2.Scale(1/distSq, r2.Vec{
					X: relPos.X*leg - relPos.Y*combinedRadius,
					Y: relPos.X*combinedRadius + relPos.Y*leg,
				})
			} else {
				line.Direction = r2.Scale(-1/distSq, r2.Vec{
					X: relPos.X*leg + relPos.Y*combinedRadius,
					Y: -relPos.X*combinedRadius + relPos.Y*leg,
				})
			}
			dot2 := r2.Dot(relVel, line.Direction)
			u = r2.Sub(r2.Scale(dot2, line.Direction), relVel)
		}
	} else {
		// Collision. Resolve within one time step.
		w := r2.Sub(relVel, r2.Scale(invTimeStep, relPos))
		wLength := r2.Norm(w)
		if wLength < orcaEpsilon {
			return Line{}, false
		}
		unitW := r2.Scale(1/wLength, w)
		line.Direction = r2.Vec{X: unitW.Y, Y: -unitW.X}
		u = r2.Scale(combinedRadius*invTimeStep-wLength, unitW)
	}

	line.Point = r2.Add(self.Vel, r2.Scale(share(self, other), u))
	return line, true
}

// SolveVelocity returns the velocity closest to preferred that satisfies
// every line, or the least-violating one when they are infeasible. proj is
// scratch space for the fallback program.
func SolveVelocity(lines []Line, maxSpeed float64, preferred r2.Vec, proj []Line) (r2.Vec, []Line) {
	var result r2.Vec
	fail := linearProgram2(lines, maxSpeed, preferred, false, &result)
	if fail < len(lines) {
		proj = linearProgram3(lines, fail, maxSpeed, &result, proj)
	}
	return result, proj
}

// linearProgram1 solves the one-dimensional program on line lineNo
// subject to lines before it and the speed circle.
func linearProgram1(lines []Line, lineNo int, radius float64, optVelocity r2.Vec, directionOpt bool, result *r2.Vec) bool {
	ln := &lines[lineNo]
	dot := r2.Dot(ln.Point, ln.Direction)
	discriminant := dot*dot + radius*radius - r2.Norm2(ln.Point)
	if discriminant < 0 {
		// Speed circle invalidates line.
		return false
	}

	sqrtDisc := math.Sqrt(discriminant)
	tLeft := -dot - sqrtDisc
	tRight := -dot + sqrtDisc

	for i := 0; i < lineNo; i++ {
		denominator := r2.Cross(ln.Direction, lines[i].Direction)
		numerator := r2.Cross(lines[i].Direction, r2.Sub(ln.Point, lines[i].Point))

		if math.Abs(denominator) <= orcaEpsilon {
			// Parallel lines.
			if numerator < 0 {
				return false
			}
			continue
		}

		t := numerator / denominator
		if denominator >= 0 {
			tRight = math.Min(tRight, t)
		} else {
			tLeft = math.Max(tLeft, t)
		}
		if tLeft > tRight {
			return false
		}
	}

	switch {
	case directionOpt:
		if r2.Dot(optVelocity, ln.Direction) > 0 {
			*result = r2.Add(ln.Point, r2.Scale(tRight, ln.Direction))
		} else {
			*result = r2.Add(ln.Point, r2.Scale(tLeft, ln.Direction))
		}
	default:
		t := r2.Dot(ln.Direction, r2.Sub(optVelocity, ln.Point))
		switch {
		case t < tLeft:
			*result = r2.Add(ln.Point, r2.Scale(tLeft, ln.Direction))
		case t > tRight:
			*result = r2.Add(ln.Point, r2.Scale(tRight, ln.Direction))
		default:
			*result = r2.Add(ln.Point, r2.Scale(t, ln.Direction))
		}
	}
	return true
}

// linearProgram2 solves the two-dimensional program. It returns the index
// of the first line it failed on, or len(lines) on success.
func linearProgram2(lines []Line, radius float64, optVelocity r2.Vec, directionOpt bool, result *r2.Vec) int {
	switch {
	case directionOpt:
		// optVelocity is a unit direction.
		*result = r2.Scale(radius, optVelocity)
	case r2.Norm2(optVelocity) > radius*radius:
		*result = r2.Scale(radius, r2.Unit(optVelocity))
	default:
		*result = optVelocity
	}

	for i := range lines {
		if r2.Cross(lines[i].Direction, r2.Sub(lines[i].Point, *result)) > 0 {
			// Result violates constraint i.
			temp := *result
			if !linearProgram1(lines, i, radius, optVelocity, directionOpt, result) {
				*result = temp
				return i
			}
		}
	}
	return len(lines)
}

// linearProgram3 minimizes the maximum violation when the 2D program is
// infeasible, starting from beginLine.
func linearProgram3(lines []Line, beginLine int, radius float64, result *r2.Vec, proj []Line) []Line {
	distance := 0.0

	for i := beginLine; i < len(lines); i++ {
		if r2.Cross(lines[i].Direction, r2.Sub(lines[i].Point, *result)) <= distance {
			continue
		}

		proj = proj[:0]
		for j := 0; j < i; j++ {
			var line Line
			determinant := r2.Cross(lines[i].Direction, lines[j].Direction)
			if math.Abs(determinant) <= orcaEpsilon {
				if r2.Dot(lines[i].Direction, lines[j].Direction) > 0 {
					// Same direction.
					continue
				}
				// Opposite direction.
				line.Point = r2.Scale(0.5, r2.Add(lines[i].Point, lines[j].Point))
			} else {
				t := r2.Cross(lines[j].Direction, r2.Sub(lines[i].Point, lines[j].Point)) / determinant
				line.Point = r2.Add(lines[i].Point, r2.Scale(t, lines[i].Direction))
			}
			d := r2.Sub(lines[j].Direction, lines[i].Direction)
			if r2.Norm(d) < orcaEpsilon {
				continue
			}
			line.Direction = r2.Unit(d)
			proj = append(proj, line)
		}

		temp := *result
		dir := r2.Vec{X: -lines[i].Direction.Y, Y: lines[i].Direction.X}
		if linearProgram2(proj, radius, dir, true, result) < len(proj) {
			// Only fails on floating point error; keep the previous result.
			*result = temp
		}
		distance = r2.Cross(lines[i].Direction, r2.Sub(lines[i].Point, *result))
	}
	return proj
}
