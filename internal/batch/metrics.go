package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts batch work in a private registry
type Metrics struct {
	registry     *prometheus.Registry
	files        *prometheus.CounterVec
	rows         prometheus.Counter
	unknownCodes prometheus.Counter
	duration     *prometheus.HistogramVec
}

// NewMetrics creates and registers the batch collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "springconv_files_total",
			Help: "Files processed, by direction and status",
		}, []string{"direction", "status"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "springconv_rows_total",
			Help: "Test sequence rows converted",
		}),
		unknownCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "springconv_unknown_codes_total",
			Help: "Command codes found that have no layout entry",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "springconv_file_duration_seconds",
			Help:    "Time spent converting one file",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"direction"}),
	}
	m.registry.MustRegister(m.files, m.rows, m.unknownCodes, m.duration)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(direction Direction, outcome Outcome) {
	status := "ok"
	if outcome.Err != nil {
		status = "failed"
	}
	m.files.WithLabelValues(string(direction), status).Inc()
	m.duration.WithLabelValues(string(direction)).Observe(outcome.Duration.Seconds())
	if outcome.Result != nil && outcome.Result.Diagnostics != nil {
		m.rows.Add(float64(outcome.Result.Diagnostics.Rows))
		m.unknownCodes.Add(float64(len(outcome.Result.Diagnostics.UnknownCodes)))
	}
}
