package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/legion/navigation"
	"github.com/pthm-cable/legion/systems"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Grid.Width)
	assert.Equal(t, 100, cfg.Grid.Height)
	assert.Equal(t, 10.0, cfg.Grid.CellDiameter)
	assert.Equal(t, 1000.0, cfg.Derived.ExtentX)
	assert.Equal(t, 1000.0, cfg.Derived.ExtentZ)
	assert.Equal(t, 25.0, cfg.Derived.BucketSize)
	assert.Equal(t, systems.SteerBoids, cfg.Derived.Steering)
	assert.Equal(t, navigation.IntegrationFIFO, cfg.Derived.Integration)
	assert.True(t, cfg.Steering.ResetOnRetarget)
	assert.Greater(t, cfg.Boids.NeighborExitRadius, cfg.Boids.NeighborRadius)

	require.Len(t, cfg.Scenario.Squads, 2)
	assert.Equal(t, 1, cfg.Derived.SquadIndex["bravo"])
	assert.Equal(t, 20.0, cfg.Scenario.ArrivalRadius)
	assert.Equal(t, 0.95, cfg.Scenario.ArrivalFraction)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeFile(t, `
grid:
  width: 40
  integration: bucket
steering:
  mode: both
  buckets_per_axis: 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Grid.Width)
	assert.Equal(t, 100, cfg.Grid.Height, "untouched keys keep defaults")
	assert.Equal(t, 400.0, cfg.Derived.ExtentX)
	assert.Equal(t, 40.0, cfg.Derived.BucketSize)
	assert.Equal(t, systems.SteerBoth, cfg.Derived.Steering)
	assert.Equal(t, navigation.IntegrationBucket, cfg.Derived.Integration)
	assert.Equal(t, 80.0, cfg.Boids.Separation)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "grid: [not, a, map]"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		target error
	}{
		{"zero width", func(c *Config) { c.Grid.Width = 0 }, navigation.ErrEmptyGrid},
		{"zero height", func(c *Config) { c.Grid.Height = 0 }, navigation.ErrEmptyGrid},
		{"bad diameter", func(c *Config) { c.Grid.CellDiameter = -1 }, navigation.ErrBadDiameter},
		{"unknown integration", func(c *Config) { c.Grid.Integration = "dijkstra" }, nil},
		{"unknown steering", func(c *Config) { c.Steering.Mode = "rvo" }, nil},
		{"exit radius not above entry", func(c *Config) { c.Boids.NeighborExitRadius = c.Boids.NeighborRadius }, nil},
		{"buckets too small", func(c *Config) { c.Steering.BucketsPerAxis = 200 }, nil},
		{"no buckets", func(c *Config) { c.Steering.BucketsPerAxis = 0 }, nil},
		{"zero dt", func(c *Config) { c.World.DT = 0 }, nil},
		{"smoothing above one", func(c *Config) { c.Steering.Smoothing = 1.5 }, nil},
		{"negative workers", func(c *Config) { c.Steering.Workers = -1 }, nil},
		{"negative arrival radius", func(c *Config) { c.Scenario.ArrivalRadius = -1 }, nil},
		{"zero arrival fraction", func(c *Config) { c.Scenario.ArrivalFraction = 0 }, nil},
		{"arrival fraction above one", func(c *Config) { c.Scenario.ArrivalFraction = 1.2 }, nil},
		{"duplicate squad", func(c *Config) { c.Scenario.Squads[1].Name = c.Scenario.Squads[0].Name }, nil},
		{"order for unknown squad", func(c *Config) { c.Scenario.Orders[0].Squad = "charlie" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Defaults()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Refresh()
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)
	cfg.Steering.FlowWeight = 42
	cfg.Boids.Cohesion = 3.5

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42.0, back.Steering.FlowWeight)
	assert.Equal(t, 3.5, back.Boids.Cohesion)
	assert.Equal(t, cfg.Scenario, back.Scenario)
}

func TestGlobalAccessor(t *testing.T) {
	prev := global
	defer func() { global = prev }()

	global = nil
	assert.Panics(t, func() { Cfg() })
	assert.Panics(t, func() { MustInit(filepath.Join(t.TempDir(), "missing.yaml")) })

	require.NoError(t, Init(""))
	assert.Equal(t, 100, Cfg().Grid.Width)
}
