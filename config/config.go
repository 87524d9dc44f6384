// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/legion/navigation"
	"github.com/pthm-cable/legion/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Grid       GridConfig       `yaml:"grid"`
	Map        MapConfig        `yaml:"map"`
	Boids      BoidsConfig      `yaml:"boids"`
	Avoidance  AvoidanceConfig  `yaml:"avoidance"`
	Steering   SteeringConfig   `yaml:"steering"`
	Population PopulationConfig `yaml:"population"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds tick and movement parameters.
// The world extent itself follows from the grid.
type WorldConfig struct {
	DT       float64 `yaml:"dt"`
	Friction float64 `yaml:"friction"` // velocity damping per second
	Seed     int64   `yaml:"seed"`
}

// GridConfig holds navigation grid dimensions.
type GridConfig struct {
	Width        int     `yaml:"width"`  // cells along X
	Height       int     `yaml:"height"` // cells along Z
	CellDiameter float64 `yaml:"cell_diameter"`
	Integration  string  `yaml:"integration"` // fifo | bucket
}

// MapConfig holds static obstacle placement.
type MapConfig struct {
	Outcrops  OutcropConfig `yaml:"outcrops"`
	KeepClear float64       `yaml:"keep_clear"` // half extent kept open around spawns and order points
	Boxes     []BoxConfig   `yaml:"boxes"`
}

// OutcropConfig holds procedural rock parameters.
type OutcropConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Spacing   float64 `yaml:"spacing"`
	Scale     float64 `yaml:"scale"`
	Threshold float64 `yaml:"threshold"`
	Height    float64 `yaml:"height"`
}

// BoxConfig places one hand-authored collider.
type BoxConfig struct {
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
	HalfX  float64 `yaml:"half_x"`
	HalfZ  float64 `yaml:"half_z"`
	Height float64 `yaml:"height"`
	Sensor bool    `yaml:"sensor"`
}

// BoidsConfig holds per-agent flocking weights and radii.
type BoidsConfig struct {
	Separation         float64 `yaml:"separation"`
	Alignment          float64 `yaml:"alignment"`
	Cohesion           float64 `yaml:"cohesion"`
	NeighborRadius     float64 `yaml:"neighbor_radius"`      // entry radius
	NeighborExitRadius float64 `yaml:"neighbor_exit_radius"` // must exceed neighbor_radius
}

// AvoidanceConfig holds reciprocal avoidance parameters.
type AvoidanceConfig struct {
	TimeHorizon        float64 `yaml:"time_horizon"`
	NeighborDist       float64 `yaml:"neighbor_dist"`
	MaxNeighbors       int     `yaml:"max_neighbors"`
	Responsibility     float64 `yaml:"responsibility"`
	Radius             float64 `yaml:"radius"`
	UseCurrentVelocity bool    `yaml:"use_current_velocity"`
}

// SteeringConfig holds the shared steering knobs.
type SteeringConfig struct {
	Mode            string  `yaml:"mode"` // boids | avoidance | both
	FlowWeight      float64 `yaml:"flow_weight"`
	Smoothing       float64 `yaml:"smoothing"`
	MaxForce        float64 `yaml:"max_force"` // 0 disables
	MaxSpeed        float64 `yaml:"max_speed"` // 0 disables
	BucketsPerAxis  int     `yaml:"buckets_per_axis"`
	ResetOnRetarget bool    `yaml:"reset_on_retarget"`
	FootprintPad    float64 `yaml:"footprint_pad"`
	Workers         int     `yaml:"workers"` // avoidance solver goroutines, 0 = GOMAXPROCS
}

// PopulationConfig holds agent spawning parameters.
type PopulationConfig struct {
	BodyRadius       float64 `yaml:"body_radius"`
	FormationSpacing float64 `yaml:"formation_spacing"`
}

// ScenarioConfig scripts squads and their orders.
type ScenarioConfig struct {
	Squads []SquadConfig `yaml:"squads"`
	Orders []OrderConfig `yaml:"orders"`

	// A group order completes once ArrivalFraction of its followers are
	// Arrived or inside the arrival radius: ArrivalRadius plus the radius
	// of the group packed at formation spacing.
	ArrivalRadius   float64 `yaml:"arrival_radius"`
	ArrivalFraction float64 `yaml:"arrival_fraction"`
}

// SquadConfig spawns one group in a rectangular formation.
type SquadConfig struct {
	Name    string  `yaml:"name"`
	Group   uint32  `yaml:"group"`
	Count   int     `yaml:"count"`
	Columns int     `yaml:"columns"` // 0 = square-ish
	X       float64 `yaml:"x"`
	Z       float64 `yaml:"z"`
}

// OrderConfig issues a destination (or release) to a squad at a tick.
type OrderConfig struct {
	Tick    int32   `yaml:"tick"`
	Squad   string  `yaml:"squad"`
	X       float64 `yaml:"x"`
	Z       float64 `yaml:"z"`
	Release bool    `yaml:"release"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // seconds per nav window
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // ticks averaged by the perf collector
}

// MetricsConfig holds the prometheus exporter settings.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ExtentX     float64 // Grid.Width * CellDiameter
	ExtentZ     float64 // Grid.Height * CellDiameter
	BucketSize  float64 // smaller bucket side
	Steering    systems.SteeringMode
	Integration navigation.IntegrationMode
	SquadIndex  map[string]int // name -> index into Scenario.Squads
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	return Load("")
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Refresh recomputes derived values after fields were changed in code.
func (c *Config) Refresh() error {
	c.computeDerived()
	return c.Validate()
}

// computeDerived calculates values derived from loaded config.
// Unparseable modes fall back to their defaults; Validate reports them.
func (c *Config) computeDerived() {
	c.Derived.ExtentX = float64(c.Grid.Width) * c.Grid.CellDiameter
	c.Derived.ExtentZ = float64(c.Grid.Height) * c.Grid.CellDiameter

	c.Derived.BucketSize = 0
	if c.Steering.BucketsPerAxis > 0 {
		per := float64(c.Steering.BucketsPerAxis)
		c.Derived.BucketSize = math.Min(c.Derived.ExtentX/per, c.Derived.ExtentZ/per)
	}

	c.Derived.Steering, _ = systems.ParseSteeringMode(c.Steering.Mode)
	c.Derived.Integration, _ = navigation.ParseIntegrationMode(c.Grid.Integration)

	c.Derived.SquadIndex = make(map[string]int, len(c.Scenario.Squads))
	for i, s := range c.Scenario.Squads {
		c.Derived.SquadIndex[s.Name] = i
	}
}

// Validate checks the configuration for values the simulation cannot run with.
func (c *Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("grid %dx%d: %w", c.Grid.Width, c.Grid.Height, navigation.ErrEmptyGrid)
	}
	if c.Grid.CellDiameter <= 0 {
		return fmt.Errorf("grid cell_diameter %g: %w", c.Grid.CellDiameter, navigation.ErrBadDiameter)
	}
	if _, ok := navigation.ParseIntegrationMode(c.Grid.Integration); !ok {
		return fmt.Errorf("unknown grid integration %q", c.Grid.Integration)
	}
	if _, err := systems.ParseSteeringMode(c.Steering.Mode); err != nil {
		return err
	}
	if c.World.DT <= 0 {
		return errors.New("world dt must be positive")
	}
	if c.Boids.NeighborRadius <= 0 {
		return errors.New("boids neighbor_radius must be positive")
	}
	if c.Boids.NeighborExitRadius <= c.Boids.NeighborRadius {
		return fmt.Errorf("boids neighbor_exit_radius %g must exceed neighbor_radius %g",
			c.Boids.NeighborExitRadius, c.Boids.NeighborRadius)
	}
	if c.Steering.Smoothing < 0 || c.Steering.Smoothing > 1 {
		return fmt.Errorf("steering smoothing %g outside [0,1]", c.Steering.Smoothing)
	}
	if c.Steering.Workers < 0 {
		return fmt.Errorf("steering workers %d must be >= 0", c.Steering.Workers)
	}
	if c.Steering.BucketsPerAxis < 1 {
		return fmt.Errorf("steering buckets_per_axis %d must be at least 1", c.Steering.BucketsPerAxis)
	}
	// Neighbor queries only look at the 3x3 bucket neighborhood.
	reach := math.Max(c.Boids.NeighborExitRadius, c.Avoidance.NeighborDist)
	if c.Derived.BucketSize < reach {
		return fmt.Errorf("bucket size %g smaller than neighbor reach %g; lower steering.buckets_per_axis",
			c.Derived.BucketSize, reach)
	}
	if c.Avoidance.TimeHorizon <= 0 {
		return errors.New("avoidance time_horizon must be positive")
	}
	if c.Avoidance.Radius <= 0 {
		return errors.New("avoidance radius must be positive")
	}

	seen := make(map[string]bool, len(c.Scenario.Squads))
	for _, s := range c.Scenario.Squads {
		if s.Name == "" {
			return errors.New("scenario squad without a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario squad %q", s.Name)
		}
		seen[s.Name] = true
		if s.Count < 0 {
			return fmt.Errorf("scenario squad %q has negative count", s.Name)
		}
	}
	if c.Scenario.ArrivalRadius < 0 {
		return fmt.Errorf("scenario arrival_radius %g must not be negative", c.Scenario.ArrivalRadius)
	}
	if c.Scenario.ArrivalFraction <= 0 || c.Scenario.ArrivalFraction > 1 {
		return fmt.Errorf("scenario arrival_fraction %g must be in (0, 1]", c.Scenario.ArrivalFraction)
	}
	for _, o := range c.Scenario.Orders {
		if !seen[o.Squad] {
			return fmt.Errorf("order at tick %d references unknown squad %q", o.Tick, o.Squad)
		}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
