package main

import (
	"github.com/pthm-cable/legion/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the flocking parameters tuned by the optimizer.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Boid weights
			{Name: "separation", Path: "boids.separation", Min: 10, Max: 200, Default: 80},
			{Name: "alignment", Path: "boids.alignment", Min: 0, Max: 60, Default: 15},
			{Name: "cohesion", Path: "boids.cohesion", Min: 0, Max: 60, Default: 10},
			{Name: "neighbor_radius", Path: "boids.neighbor_radius", Min: 5, Max: 18, Default: 12},
			// Steering blend
			{Name: "flow_weight", Path: "steering.flow_weight", Min: 10, Max: 150, Default: 60},
			{Name: "smoothing", Path: "steering.smoothing", Min: 0.05, Max: 1, Default: 0.3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct and refreshes
// derived values. The exit radius keeps its margin over the entry radius.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	margin := cfg.Boids.NeighborExitRadius - cfg.Boids.NeighborRadius
	if margin <= 0 {
		margin = 2
	}
	cfg.Boids.Separation = clamped[0]
	cfg.Boids.Alignment = clamped[1]
	cfg.Boids.Cohesion = clamped[2]
	cfg.Boids.NeighborRadius = clamped[3]
	cfg.Boids.NeighborExitRadius = clamped[3] + margin
	cfg.Steering.FlowWeight = clamped[4]
	cfg.Steering.Smoothing = clamped[5]

	return cfg.Refresh()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Boids.Separation,
		cfg.Boids.Alignment,
		cfg.Boids.Cohesion,
		cfg.Boids.NeighborRadius,
		cfg.Steering.FlowWeight,
		cfg.Steering.Smoothing,
	}
}
