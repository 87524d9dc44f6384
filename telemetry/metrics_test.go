package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics("legion", reg)
	require.NoError(t, err)

	m.ObserveTick(2 * time.Millisecond)
	m.SetStates(1, 2, 3)
	m.IncOrders(2)
	m.IncOrders(0)
	m.ObserveBuild(time.Millisecond, 4)
	m.SetOverlaps(5)

	families, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				got[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				got[mf.GetName()] = float64(metric.GetHistogram().GetSampleCount())
			case metric.GetGauge() != nil:
				name := mf.GetName()
				for _, l := range metric.GetLabel() {
					name += "/" + l.GetValue()
				}
				got[name] = metric.GetGauge().GetValue()
			}
		}
	}

	want := map[string]float64{
		"legion_tick_duration_seconds":            1,
		"legion_agents/idle":                      1,
		"legion_agents/active":                    2,
		"legion_agents/arrived":                   3,
		"legion_orders_total":                     2,
		"legion_flowfield_builds_total":           1,
		"legion_flowfield_build_duration_seconds": 1,
		"legion_footprint_cells_reset_total":      4,
		"legion_overlapping_pairs":                5,
	}
	for name, v := range want {
		assert.Equal(t, v, got[name], name)
	}

	_, err = NewMetrics("legion", reg)
	assert.Error(t, err, "duplicate registration")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTick(time.Second)
		m.SetStates(1, 1, 1)
		m.IncOrders(1)
		m.ObserveBuild(time.Second, 1)
		m.SetOverlaps(1)
	})
}
