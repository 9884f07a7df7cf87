package rest

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of an App.
type Metrics struct {
	requests           *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	documentBuild      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restdoc",
				Name:      "requests_total",
				Help:      "Requests dispatched, by resource, method and status code.",
			},
			[]string{"resource", "method", "code"},
		),
		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restdoc",
				Name:      "validation_failures_total",
				Help:      "Request bodies rejected by validation.",
			},
			[]string{"resource", "method"},
		),
		documentBuild: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "restdoc",
				Name:      "document_build_seconds",
				Help:      "Duration of OpenAPI document builds.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.validationFailures, m.documentBuild)
	}

	return m
}

func (m *Metrics) observeRequest(resource, method string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(resource, method, strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeValidationFailure(resource, method string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(resource, method).Inc()
}

func (m *Metrics) observeBuild(d time.Duration, _ error) {
	if m == nil {
		return
	}
	m.documentBuild.Observe(d.Seconds())
}
