// internal/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/status"
)

const namespace = "modbus_gateway"

// Collector exports poll cycles and device health.
type Collector struct {
	cycles        *prometheus.CounterVec
	requests      *prometheus.CounterVec
	requestErrors *prometheus.CounterVec
	health        *prometheus.GaugeVec
	secondsInErr  *prometheus.GaugeVec
	values        *prometheus.GaugeVec
}

// New registers the gateway collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Total number of poll cycles per device",
		}, []string{"device"}),

		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of Modbus requests issued per device",
		}, []string{"device"}),

		requestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Total number of failed Modbus requests per device",
		}, []string{"device"}),

		health: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_health",
			Help:      "Device health code (0 unknown, 1 ok, 2 error, 3 stale, 4 disabled)",
		}, []string{"device"}),

		secondsInErr: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_seconds_in_error",
			Help:      "Seconds the device has been out of the ok state",
		}, []string{"device"}),

		values: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "variable_value",
			Help:      "Last decoded value of a numeric or boolean variable",
		}, []string{"device", "variable"}),
	}
}

// ObservePoll records one poll cycle.
func (c *Collector) ObservePoll(res poller.PollResult) {
	c.cycles.WithLabelValues(res.DeviceID).Inc()
	c.requests.WithLabelValues(res.DeviceID).Add(float64(res.Requests))
	c.requestErrors.WithLabelValues(res.DeviceID).Add(float64(len(res.Errors)))

	for _, v := range res.Values {
		f, ok := toFloat(v.Value)
		if !ok {
			continue
		}
		c.values.WithLabelValues(res.DeviceID, v.Name).Set(f)
	}
}

// ObserveStatus publishes the device snapshot.
func (c *Collector) ObserveStatus(device string, snap status.Snapshot) {
	c.health.WithLabelValues(device).Set(float64(snap.Health))
	c.secondsInErr.WithLabelValues(device).Set(float64(snap.SecondsInError))
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int16:
		return float64(x), true
	case uint16:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint32:
		return float64(x), true
	case float32:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
