package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attendee module: registration and
// admission counters plus the latency of the scan-resolution critical path.
type Metrics struct {
	Registrations      prometheus.Counter
	CheckIns           prometheus.Counter
	CapacityRejections prometheus.Counter
	ScanDuration       prometheus.Histogram
}

// New creates a Metrics instance with all attendee module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_registrations_total",
			Help: "Total number of attendee registrations accepted",
		}),
		CheckIns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_checkins_total",
			Help: "Total number of successful check-ins",
		}),
		CapacityRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_capacity_rejections_total",
			Help: "Registrations rejected because the supplier limit was reached",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatepass_scan_resolution_duration_seconds",
			Help:    "Duration of scan-to-action resolution (checkpoint critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRegistrations records an accepted registration.
func (m *Metrics) IncrementRegistrations() {
	if m != nil {
		m.Registrations.Inc()
	}
}

// IncrementCheckIns records a successful admission.
func (m *Metrics) IncrementCheckIns() {
	if m != nil {
		m.CheckIns.Inc()
	}
}

// IncrementCapacityRejections records a supplier-limit rejection.
func (m *Metrics) IncrementCapacityRejections() {
	if m != nil {
		m.CapacityRejections.Inc()
	}
}

// ObserveScan records the duration of one scan resolution. Call with
// time.Now() captured at the start of the operation.
func (m *Metrics) ObserveScan(start time.Time) {
	if m != nil {
		m.ScanDuration.Observe(time.Since(start).Seconds())
	}
}
