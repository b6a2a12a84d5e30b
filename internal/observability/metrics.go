package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nepal_fire"

// Metrics holds the Prometheus counters, histograms, and gauges for the daily run.
type Metrics struct {
	// Latest run figures.
	FiresDetected     prometheus.Gauge
	FiresAttributed   prometheus.Gauge
	DistrictsAffected prometheus.Gauge
	ProtectedAreaHits prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage={download,load,attribute,render,publish}
	StageFailures *prometheus.CounterVec   // labels: stage
	Runs          *prometheus.CounterVec   // labels: command={monitor,publish}, outcome={success,error}

	WeatherFallbacks prometheus.Counter
	NotifyErrors     prometheus.Counter
	LastSuccess      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		FiresDetected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fires_detected",
			Help:      "Detections in the latest FIRMS file, before attribution.",
		}),
		FiresAttributed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fires_attributed",
			Help:      "Detections attributed to a district in the latest run.",
		}),
		DistrictsAffected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "districts_affected",
			Help:      "Districts with at least one detection in the latest run.",
		}),
		ProtectedAreaHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "protected_area_fires",
			Help:      "Detections inside protected areas in the latest run.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each run stage.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Stage failures by stage.",
		}, []string{"stage"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by command and outcome.",
		}, []string{"command", "outcome"}),
		WeatherFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fallbacks_total",
			Help:      "Snapshots published with sample weather data.",
		}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Snapshot notifications that failed to publish.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FiresDetected,
		m.FiresAttributed,
		m.DistrictsAffected,
		m.ProtectedAreaHits,
		m.StageDuration,
		m.StageFailures,
		m.Runs,
		m.WeatherFallbacks,
		m.NotifyErrors,
		m.LastSuccess,
	}
}

// WriteTextfile dumps the default registry in the node-exporter textfile
// format. One-shot runs use it instead of a scrape endpoint.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
