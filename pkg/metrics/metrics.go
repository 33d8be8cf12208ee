package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by strategy type and
	// result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"type", "result"},
	)

	// AccountLockouts counts accounts locked after repeated failures.
	AccountLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authcore_account_lockouts_total",
			Help: "Total number of account lockouts applied",
		},
	)

	// TokenValidationFailures counts token validation failures by reason code.
	TokenValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_token_validation_failures_total",
			Help: "Total number of token validation failures",
		},
		[]string{"reason"},
	)

	// ActiveRefreshTokens tracks refresh tokens that are neither revoked nor expired.
	ActiveRefreshTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authcore_active_refresh_tokens",
			Help: "Number of active refresh tokens",
		},
	)

	// RefreshRotations counts refresh-token rotations by outcome
	// (success|not_found|revoked|expired).
	RefreshRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_refresh_rotations_total",
			Help: "Total number of refresh token rotation attempts",
		},
		[]string{"outcome"},
	)
)
