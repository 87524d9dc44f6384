package game

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/telemetry"
)

// movingSpeed is the speed below which an agent counts as standing still.
const movingSpeed = 1e-3

// flushTelemetry closes the stats window when it has elapsed.
func (s *Session) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sample())
	perfStats := s.perfCollector.Stats()
	s.lastWindow = stats

	s.metrics.SetStates(stats.Idle, stats.Active, stats.Arrived)
	s.metrics.SetOverlaps(stats.Overlaps)

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteWindow(stats); err != nil {
		slog.Error("failed to write nav stats", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// sample measures the crowd captured this tick. Positions have moved since
// the capture, so overlap checks read live positions for the candidate pairs
// the buckets propose.
func (s *Session) sample() telemetry.Sample {
	var out telemetry.Sample
	out.MinSeparation = math.Inf(1)

	agents := s.crowd.Agents
	pos := make([]r3.Vec, len(agents))
	for i, a := range agents {
		pos[i] = s.posMap.Get(a.Entity).Vec()

		nav := s.navMap.Get(a.Entity)
		switch nav.State {
		case components.NavIdle:
			out.Idle++
		case components.NavActive:
			out.Active++
			out.GoalDistances = append(out.GoalDistances, groundDistance(pos[i], nav.Goal))
		case components.NavArrived:
			out.Arrived++
		}
		if speed := r3.Norm(s.velMap.Get(a.Entity).Vec()); speed > movingSpeed {
			out.Speeds = append(out.Speeds, speed)
		}
	}

	var candidates []int
	for i, a := range agents {
		candidates = s.crowd.Buckets.QueryInto(candidates[:0], a.Pos)
		for _, j := range candidates {
			if j <= i {
				continue
			}
			gap := groundDistance(pos[i], pos[j]) - a.Radius - agents[j].Radius
			if gap < out.MinSeparation {
				out.MinSeparation = gap
			}
			if gap < 0 {
				out.Overlaps++
			}
		}
	}
	if math.IsInf(out.MinSeparation, 1) {
		out.MinSeparation = 0
	}
	return out
}

func groundDistance(a, b r3.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}
