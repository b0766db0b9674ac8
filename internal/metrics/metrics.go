// Package metrics provides Prometheus collectors for the auth service (HTTP RED + login pipeline).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gc_auth"

var (
	// HTTPRequestTotal counts requests by method, route pattern, and status.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route, and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds is the request latency histogram.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "route"},
	)

	// LoginOutcomesTotal counts login pipeline results by outcome code.
	LoginOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_outcomes_total",
			Help:      "Login attempts by outcome code (SUCCESS, INVALID_CREDENTIALS, RATE_LIMIT, ...).",
		},
		[]string{"code"},
	)

	// AutoBlocksTotal counts accounts locked by the rate limiter.
	AutoBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_auto_blocks_total",
			Help:      "Total number of automatic account blocks.",
		},
	)

	// SessionsCreatedTotal counts issued sessions.
	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created.",
		},
	)

	// SessionValidationsTotal counts validations by result (valid, not_found, expired, idle, inactive_user, error).
	SessionValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_validations_total",
			Help:      "Session validations by result.",
		},
		[]string{"result"},
	)

	// GeoIPLookupsTotal counts resolver calls by result (cache_hit, local, success, fallback).
	GeoIPLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geoip_lookups_total",
			Help:      "GeoIP lookups by result.",
		},
		[]string{"result"},
	)

	// GeoIPLookupDurationSeconds is the latency of outbound geolocation calls.
	GeoIPLookupDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geoip_lookup_duration_seconds",
			Help:      "Outbound GeoIP lookup duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)
)
