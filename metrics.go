package stripe

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Attempt describes one finished attempt of a send.
type Attempt struct {
	Method string
	Path   string

	// Number is the zero-based attempt index within the send.
	Number uint32

	// Status is the response status, or 0 when the transport failed.
	Status int

	Duration time.Duration
	Err      error

	// Outcome is the strategy decision taken after this attempt.
	Outcome RetryOutcome
}

// Observer is notified after every attempt. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveAttempt(a Attempt)
}

// PrometheusObserver exports attempt counts, retries and latency.
type PrometheusObserver struct {
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver creates the collectors and registers them with reg.
func NewPrometheusObserver(reg prometheus.Registerer, namespace string) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stripe",
				Name:      "attempts_total",
				Help:      "Total number of HTTP attempts made against the Stripe API.",
			},
			[]string{"method", "status"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stripe",
				Name:      "retries_total",
				Help:      "Total number of attempts followed by another attempt.",
			},
			[]string{"method"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stripe",
				Name:      "attempt_duration_seconds",
				Help:      "Duration of HTTP attempts against the Stripe API.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"method"},
		),
	}

	for _, c := range []prometheus.Collector{o.attempts, o.retries, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ObserveAttempt implements Observer.
func (o *PrometheusObserver) ObserveAttempt(a Attempt) {
	status := "error"
	if a.Status > 0 {
		status = strconv.Itoa(a.Status)
	}
	o.attempts.WithLabelValues(a.Method, status).Inc()
	o.duration.WithLabelValues(a.Method).Observe(a.Duration.Seconds())
	if a.Outcome.Continue {
		o.retries.WithLabelValues(a.Method).Inc()
	}
}
