// Package metrics defines the Prometheus collectors of the registration
// backend. Collectors are registered on the default registry at init and
// exposed by the router on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "registration"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - method: HTTP method
//   - route: gin route template (e.g. "/v1/applications/:id")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures handler latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Workflow metrics ──────────────────────────────────────────────────────────

// ApplicationsCreatedTotal counts applications accepted by CreateApplication.
var ApplicationsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_created_total",
		Help:      "Total number of registration applications created.",
	},
)

// StatusTransitionsTotal counts committed workflow transitions.
// Labels:
//   - from: previous application status
//   - to: new application status
var StatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of application status transitions.",
	},
	[]string{"from", "to"},
)

// DocumentValidationsTotal counts automatic validation outcomes.
// Label:
//   - result: "accepted" or "rejected"
var DocumentValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_validations_total",
		Help:      "Total number of automatic document validations, by result.",
	},
	[]string{"result"},
)

// CopiesDetectedTotal counts documents flagged as copies of another dossier's.
var CopiesDetectedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_copies_detected_total",
		Help:      "Total number of documents flagged as duplicates.",
	},
)

// ── Messaging metrics ─────────────────────────────────────────────────────────

// MessagesSentTotal counts outbound messages.
// Labels:
//   - channel: "email" or "sms"
//   - result: "sent" or "failed"
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of outbound email and SMS messages, by result.",
	},
	[]string{"channel", "result"},
)

// StatsCacheTotal counts statistics cache lookups.
// Label:
//   - result: "hit" or "miss"
var StatsCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stats_cache_total",
		Help:      "Total number of statistics cache lookups, by result.",
	},
	[]string{"result"},
)
