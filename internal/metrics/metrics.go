// Package metrics provides the Prometheus collectors shared by the authority
// and the guards.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shopauth"

var (
	// LoginsTotal counts login attempts by result (success, unauthorized, error).
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)

	// RefreshRotationsTotal counts refresh rotations by result
	// (success, not_found, inactive, error).
	RefreshRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_rotations_total",
			Help:      "Refresh token rotations by result.",
		},
		[]string{"result"},
	)

	// RefreshReplaysTotal counts presentations of already revoked refresh tokens.
	RefreshReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_replays_total",
			Help:      "Presentations of refresh tokens that were already revoked.",
		},
	)

	// SigningKeyRotationsTotal counts signing key rotations.
	SigningKeyRotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signing_key_rotations_total",
			Help:      "Signing key rotations performed by the authority.",
		},
	)

	// TokenValidationsTotal counts access token validations at guards by result.
	TokenValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validations_total",
			Help:      "Access token validations by result.",
		},
		[]string{"service", "result"},
	)

	// PolicyDecisionsTotal counts policy evaluations by policy and decision.
	PolicyDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_decisions_total",
			Help:      "Policy evaluations by policy name and decision.",
		},
		[]string{"service", "policy", "decision"},
	)

	// KeySetRefreshesTotal counts JWKS refreshes at guards by result.
	KeySetRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyset_refreshes_total",
			Help:      "Verification key set refreshes by result.",
		},
		[]string{"result"},
	)

	// HTTPRequestDurationSeconds is request latency by route and status.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
		[]string{"method", "route", "status"},
	)
)
