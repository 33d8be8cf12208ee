package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/pkg/logger"
)

const defaultCleanupSpec = "@hourly"

// Cleaner runs the recurring housekeeping jobs: deleting expired refresh
// tokens and pruning the access-token revocation set.
type Cleaner struct {
	refresh *iauth.RefreshTokenService
	tokens  *iauth.TokenService
	cron    *cron.Cron
	log     *zap.Logger
	enabled bool

	schedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil dependency
// results in the corresponding cleanup step being skipped.
func NewCleaner(refresh *iauth.RefreshTokenService, tokens *iauth.TokenService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		refresh:  refresh,
		tokens:   tokens,
		schedule: defaultCleanupSpec,
		log:      logger.WithComponent("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.refresh != nil || cleaner.tokens != nil

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it if
// at least one dependency is wired.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cleanup run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.refresh != nil {
		deleted, err := c.refresh.CleanupExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if deleted > 0 {
			c.log.Info("deleted expired refresh tokens", zap.Int64("count", deleted))
		}
	}

	if c.tokens != nil {
		if pruned := c.tokens.PruneRevoked(); pruned > 0 {
			c.log.Info("pruned expired revocation entries", zap.Int("count", pruned))
		}
	}

	return errs
}
