// Package prom adapts metrics.Metrics to Prometheus, mirroring the
// teacher's cache/metrics/prom adapter: counters/gauges constructed and
// registered in New, one small method per signal.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fairsched/fairsched/metrics"
)

// Adapter implements metrics.Metrics and exports Prometheus counters and
// gauges. Safe for concurrent use; all Prometheus metric types are
// goroutine-safe.
type Adapter struct {
	dispatched         *prometheus.CounterVec
	cancelled          *prometheus.CounterVec
	accumulated        *prometheus.GaugeVec
	dispatchedCapacity *prometheus.CounterVec

	capacityHead prometheus.Gauge
	capacityTail prometheus.Gauge
	capacityCeil prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "dispatched_total",
			Help:        "Requests dispatched, by priority class",
			ConstLabels: constLabels,
		}, []string{"class"}),
		cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cancelled_total",
			Help:        "Requests cancelled before dispatch, by priority class",
			ConstLabels: constLabels,
		}, []string{"class"}),
		accumulated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "class_accumulated",
			Help:        "Virtual-time cursor per priority class",
			ConstLabels: constLabels,
		}, []string{"class"}),
		dispatchedCapacity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "dispatched_capacity_total",
			Help:        "Fixed-point capacity dispatched, by priority class",
			ConstLabels: constLabels,
		}, []string{"class"}),
		capacityHead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "capacity_head",
			Help:        "Fair Group head rover (granted capacity frontier)",
			ConstLabels: constLabels,
		}),
		capacityTail: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "capacity_tail",
			Help:        "Fair Group tail rover (requested capacity frontier)",
			ConstLabels: constLabels,
		}),
		capacityCeil: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "capacity_ceil",
			Help:        "Fair Group ceil rover (replenishment headroom frontier)",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.dispatched, a.cancelled, a.accumulated, a.dispatchedCapacity,
		a.capacityHead, a.capacityTail, a.capacityCeil)
	return a
}

// Dispatched increments the dispatched counter and capacity counter for
// classID.
func (a *Adapter) Dispatched(classID int, capacity uint64) {
	label := classLabel(classID)
	a.dispatched.WithLabelValues(label).Inc()
	a.dispatchedCapacity.WithLabelValues(label).Add(float64(capacity))
}

// Cancelled increments the cancelled counter for classID.
func (a *Adapter) Cancelled(classID int) {
	a.cancelled.WithLabelValues(classLabel(classID)).Inc()
}

// ClassAccumulated sets the accumulated gauge for classID.
func (a *Adapter) ClassAccumulated(classID int, accumulated float64) {
	a.accumulated.WithLabelValues(classLabel(classID)).Set(accumulated)
}

// Capacity sets the three rover gauges.
func (a *Adapter) Capacity(head, tail, ceil uint64) {
	a.capacityHead.Set(float64(head))
	a.capacityTail.Set(float64(tail))
	a.capacityCeil.Set(float64(ceil))
}

func classLabel(classID int) string {
	if classID < 0 {
		return "unknown"
	}
	return strconv.Itoa(classID)
}

// Compile-time check: ensure Adapter implements metrics.Metrics.
var _ metrics.Metrics = (*Adapter)(nil)
