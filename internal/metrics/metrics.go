// Package metrics defines the prometheus collectors exported on /metrics.
//
// Import Path: prompthub.io/prompthub/internal/metrics
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "prompthub.io/prompthub/internal/pkg/errors"
)

// HTTP metrics.
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthub_api_requests_total",
			Help: "Total HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompthub_api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Remote File Store metrics.
var (
	StoreCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthub_store_calls_total",
			Help: "Remote file store calls by backend, operation and outcome.",
		},
		[]string{"backend", "operation", "outcome"},
	)

	StoreCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompthub_store_call_duration_seconds",
			Help:    "Remote file store call latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend", "operation"},
	)
)

// Template catalogue metrics.
var (
	TemplateEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthub_template_events_total",
			Help: "Committed template changes by event type.",
		},
		[]string{"event_type"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompthub_webhook_events_total",
			Help: "Received repository webhooks by event key.",
		},
		[]string{"event_key"},
	)
)

// Outcome classifies a store call result for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// RecordStoreCall records one Remote File Store call.
func RecordStoreCall(backend, operation string, start time.Time, err error) {
	StoreCallsTotal.WithLabelValues(backend, operation, Outcome(err)).Inc()
	StoreCallDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// RecordTemplateEvent counts a committed template change.
func RecordTemplateEvent(eventType string) {
	TemplateEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordWebhook counts a received webhook.
func RecordWebhook(eventKey string) {
	if eventKey == "" {
		eventKey = "unknown"
	}
	WebhookEventsTotal.WithLabelValues(eventKey).Inc()
}
