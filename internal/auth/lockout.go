package auth

import (
	"time"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/metrics"
)

// Lockout policy fallbacks.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutWindow    = 30 * time.Minute
)

// LockoutConfig defines the failed-attempt policy.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
	Clock     func() time.Time
}

// LockoutGuard holds the failed-attempt policy and applies its transitions to
// user records. It carries no per-user state; callers persist the mutated
// record.
type LockoutGuard struct {
	threshold int
	window    time.Duration
	now       func() time.Time
}

// NewLockoutGuard builds a guard with sane defaults.
func NewLockoutGuard(cfg LockoutConfig) *LockoutGuard {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}

	window := cfg.Window
	if window <= 0 {
		window = DefaultLockoutWindow
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LockoutGuard{
		threshold: threshold,
		window:    window,
		now:       clock,
	}
}

// IsLocked reports whether the user is inside an active lock window.
func (g *LockoutGuard) IsLocked(user *models.User) bool {
	return user.LockedUntil != nil && user.LockedUntil.After(g.now())
}

// ClearExpiredLock lifts a lock whose window has elapsed, reporting whether
// the record changed and needs persisting. The failed-attempt counter is not
// touched; only a successful authentication resets it, so one further failure
// after the window re-locks immediately.
func (g *LockoutGuard) ClearExpiredLock(user *models.User) bool {
	if user.LockedUntil == nil || user.LockedUntil.After(g.now()) {
		return false
	}

	user.LockedUntil = nil
	return true
}

// RecordFailure increments the failed-attempt counter and applies a lock once
// the threshold is reached. It reports whether a lock was newly applied.
func (g *LockoutGuard) RecordFailure(user *models.User) bool {
	user.FailedLoginAttempts++

	if user.FailedLoginAttempts < g.threshold {
		return false
	}

	lockedUntil := g.now().Add(g.window)
	user.LockedUntil = &lockedUntil
	metrics.AccountLockouts.Inc()
	return true
}

// RecordSuccess resets the counter and clears any lock, reporting whether the
// record changed.
func (g *LockoutGuard) RecordSuccess(user *models.User) bool {
	if user.FailedLoginAttempts == 0 && user.LockedUntil == nil {
		return false
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return true
}
