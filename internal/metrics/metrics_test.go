package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("messages_saved", map[string]string{"channel": "@news"}, "saved")
	r.IncrementCounter("messages_saved", map[string]string{"channel": "@news"}, "saved")
	r.AddToCounter("messages_saved", 3, map[string]string{"channel": "@other"}, "saved")

	assert.Equal(t, float64(2), r.CounterValue("messages_saved", map[string]string{"channel": "@news"}))
	assert.Equal(t, float64(3), r.CounterValue("messages_saved", map[string]string{"channel": "@other"}))
	assert.Equal(t, float64(0), r.CounterValue("messages_saved", nil))
}

func TestRegistry_Gauges(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("active_channels", 3, nil, "channels")
	r.SetGauge("active_channels", 5, nil, "channels")

	all := r.GetAllMetrics()
	gauges := all["gauges"].(map[string]*Metric)
	assert.Equal(t, float64(5), gauges["active_channels"].Value)
}

func TestRegistry_LabelOrderIrrelevant(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("c", map[string]string{"a": "1", "b": "2"}, "")
	r.IncrementCounter("c", map[string]string{"b": "2", "a": "1"}, "")

	assert.Equal(t, float64(2), r.CounterValue("c", map[string]string{"a": "1", "b": "2"}))
}

func TestRegistry_GetAllMetrics(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("messages_dropped", nil, "dropped")

	all := r.GetAllMetrics()
	counters := all["counters"].(map[string]*Metric)
	assert.Len(t, counters, 1)
	assert.Contains(t, all, "uptime_ms")
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("x", nil, "")
	r.Reset()
	assert.Equal(t, float64(0), r.CounterValue("x", nil))
}
