package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated navigation statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Agent counts at window end
	Agents  int `csv:"agents"`
	Idle    int `csv:"idle"`
	Active  int `csv:"active"`
	Arrived int `csv:"arrived"`

	// Events during window
	Orders         int     `csv:"orders"`
	FieldBuilds    int     `csv:"field_builds"`
	CellsReset     int     `csv:"cells_reset"`
	BuildMeanUS    float64 `csv:"build_mean_us"`
	BuildMaxUS     float64 `csv:"build_max_us"`
	GroupArrivals  int     `csv:"group_arrivals"`
	ArrivalMeanSec float64 `csv:"arrival_mean_sec"`

	// Speed of moving agents (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Distance from active agents to their goal
	GoalDistMean float64 `csv:"goal_dist_mean"`
	GoalDistP50  float64 `csv:"goal_dist_p50"`
	GoalDistP90  float64 `csv:"goal_dist_p90"`

	// Crowding
	Overlaps      int     `csv:"overlaps"`       // agent pairs closer than their combined radii
	MinSeparation float64 `csv:"min_separation"` // smallest center distance minus radii
}

// Summary is the distribution of one sampled quantity.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summarize computes population mean, standard deviation and percentiles.
// values is not modified.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Int("idle", s.Idle),
		slog.Int("active", s.Active),
		slog.Int("arrived", s.Arrived),
		slog.Int("orders", s.Orders),
		slog.Int("field_builds", s.FieldBuilds),
		slog.Int("cells_reset", s.CellsReset),
		slog.Float64("build_mean_us", s.BuildMeanUS),
		slog.Float64("build_max_us", s.BuildMaxUS),
		slog.Int("group_arrivals", s.GroupArrivals),
		slog.Float64("arrival_mean_sec", s.ArrivalMeanSec),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("goal_dist_mean", s.GoalDistMean),
		slog.Float64("goal_dist_p90", s.GoalDistP90),
		slog.Int("overlaps", s.Overlaps),
		slog.Float64("min_separation", s.MinSeparation),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
