package game

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/legion/telemetry"
)

// logWorldState logs a periodic summary of the session.
func (s *Session) logWorldState() {
	slog.Info("world state",
		"tick", s.tick,
		"sim_time", float64(s.tick)*s.dt,
		"agents", s.AgentCount(),
		"active", s.counts.Active,
		"arrived", s.counts.Arrived,
		"groups", s.ctrl.Groups(),
		"pending_arrivals", len(s.pending),
		"script_left", len(s.script),
	)
	s.logPerfStats()
}

// logPerfStats logs the average time per phase over the perf window.
func (s *Session) logPerfStats() {
	stats := s.perfCollector.Stats()
	if stats.AvgTickDuration <= 0 {
		return
	}
	attrs := make([]any, 0, 2*len(telemetry.Phases)+2)
	attrs = append(attrs, "tick_avg", stats.AvgTickDuration.Round(time.Microsecond))
	for _, phase := range telemetry.Phases {
		attrs = append(attrs, phase, stats.PhaseAvg[phase].Round(time.Microsecond))
	}
	slog.Debug("phase timing", attrs...)
}
