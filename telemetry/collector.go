package telemetry

import (
	"math"
	"time"
)

// Sample is the per-agent state measured at window end.
type Sample struct {
	Idle, Active, Arrived int
	Speeds                []float64 // moving agents
	GoalDistances         []float64 // active agents
	Overlaps              int
	MinSeparation         float64
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	windowStartTick int32

	// Event counters for current window
	orders      int
	builds      int
	cellsReset  int
	buildSumUS  float64
	buildMaxUS  float64
	arrivals    int
	arrivalSecs float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		ticksPerWindow = int32(math.Round(windowDurationSec / dt))
	}
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordOrder records a drained destination request.
func (c *Collector) RecordOrder() {
	c.orders++
}

// RecordBuild records one flow field build.
func (c *Collector) RecordBuild(d time.Duration, reset int) {
	us := float64(d) / float64(time.Microsecond)
	c.builds++
	c.cellsReset += reset
	c.buildSumUS += us
	if us > c.buildMaxUS {
		c.buildMaxUS = us
	}
}

// RecordGroupArrival records a group whose members all reached the
// destination, seconds after its order was issued.
func (c *Collector) RecordGroupArrival(seconds float64) {
	c.arrivals++
	c.arrivalSecs += seconds
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, s Sample) WindowStats {
	speed := Summarize(s.Speeds)
	dist := Summarize(s.GoalDistances)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Agents:  s.Idle + s.Active + s.Arrived,
		Idle:    s.Idle,
		Active:  s.Active,
		Arrived: s.Arrived,

		Orders:        c.orders,
		FieldBuilds:   c.builds,
		CellsReset:    c.cellsReset,
		BuildMaxUS:    c.buildMaxUS,
		GroupArrivals: c.arrivals,

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,
		SpeedP10:  speed.P10,
		SpeedP50:  speed.P50,
		SpeedP90:  speed.P90,

		GoalDistMean: dist.Mean,
		GoalDistP50:  dist.P50,
		GoalDistP90:  dist.P90,

		Overlaps:      s.Overlaps,
		MinSeparation: s.MinSeparation,
	}
	if c.builds > 0 {
		stats.BuildMeanUS = c.buildSumUS / float64(c.builds)
	}
	if c.arrivals > 0 {
		stats.ArrivalMeanSec = c.arrivalSecs / float64(c.arrivals)
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.orders = 0
	c.builds = 0
	c.cellsReset = 0
	c.buildSumUS = 0
	c.buildMaxUS = 0
	c.arrivals = 0
	c.arrivalSecs = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
