package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	WorkerSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ytdl",
			Name:      "worker_spawns_total",
			Help:      "Worker invocations by mode and result.",
		},
		[]string{"mode", "result"},
	)

	ProgressRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ytdl",
			Name:      "progress_records_total",
			Help:      "Worker output lines classified by the line parser.",
		},
		[]string{"kind"},
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ytdl",
			Name:      "worker_duration_seconds",
			Help:      "Wall time of worker invocations.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		},
		[]string{"mode"},
	)

	ActiveDownloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ytdl",
			Name:      "active_downloads",
			Help:      "Number of download-mode workers currently running.",
		},
	)

	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ytdl",
			Name:      "stream_subscribers",
			Help:      "Number of sinks attached to progress channels.",
		},
	)
)

// Register registers the service metrics into the default registry.
func Register() {
	prometheus.MustRegister(WorkerSpawns, ProgressRecords, WorkerDuration, ActiveDownloads, StreamSubscribers)
}
