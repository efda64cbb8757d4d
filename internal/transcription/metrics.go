package transcription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики оркестратора. nil-safe: нулевой *Metrics ничего не пишет.
type Metrics struct {
	Transcriptions *prometheus.CounterVec
	PollAttempts   prometheus.Histogram
	Duration       prometheus.Histogram
	InFlight       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transcriptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "transcript_transcriptions_total",
			Help: "Transcriptions by outcome (success, upload_error, job_error, poll_error, failed, timeout, canceled)",
		}, []string{"outcome"}),
		PollAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcript_poll_attempts",
			Help:    "Status polls per transcription job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcript_duration_seconds",
			Help:    "Upload to final result, seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34 minutes
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "transcript_in_flight",
			Help: "Transcriptions currently holding a concurrency slot",
		}),
	}
}

func (m *Metrics) observe(outcome string, polls int, seconds float64) {
	if m == nil {
		return
	}
	m.Transcriptions.WithLabelValues(outcome).Inc()
	if polls > 0 {
		m.PollAttempts.Observe(float64(polls))
	}
	m.Duration.Observe(seconds)
}

func (m *Metrics) acquired() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) released() {
	if m != nil {
		m.InFlight.Dec()
	}
}
