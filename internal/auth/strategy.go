package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

// Strategy authenticates one request variant. Implementations are stateless
// and safe for unrestricted concurrent use.
type Strategy interface {
	// Type is the discriminant the coordinator dispatches on.
	Type() Type
	// Validate runs structural checks on the request before any lookup.
	Validate(req Request) error
	// Authenticate runs the full flow and returns a result or a classified failure.
	Authenticate(ctx context.Context, req Request) (*Result, error)
}

// StrategyDeps bundles the collaborators every strategy composes.
type StrategyDeps struct {
	Directory UserDirectory
	Hasher    *PasswordHasher
	Guard     *LockoutGuard
	Tokens    *TokenService
	Refresh   *RefreshTokenService
	Clock     func() time.Time
	Logger    *zap.Logger
}

func (d *StrategyDeps) validate() error {
	if d.Directory == nil {
		return errors.New("strategy: user directory is required")
	}
	if d.Guard == nil {
		return errors.New("strategy: lockout guard is required")
	}
	if d.Tokens == nil {
		return errors.New("strategy: token service is required")
	}
	if d.Refresh == nil {
		return errors.New("strategy: refresh token service is required")
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = logger.WithComponent("auth")
	}
	return nil
}

// checkAccountGates evaluates the account-state gates in fixed order. The
// first failing gate wins; a lock whose window has elapsed is cleared and
// persisted before the remaining gates run.
func checkAccountGates(ctx context.Context, d StrategyDeps, user *models.User) error {
	if d.Guard.IsLocked(user) {
		return ErrAccountLocked
	}

	if d.Guard.ClearExpiredLock(user) {
		if err := d.Directory.Save(ctx, user); err != nil {
			return fmt.Errorf("auth: reset lock state: %w", err)
		}
	}

	if !user.Enabled {
		return ErrAccountDisabled
	}
	if !user.AccountNonExpired {
		return ErrAccountExpired
	}
	if !user.CredentialsNonExpired {
		return ErrCredentialsExpired
	}
	return nil
}

// failCredential records a failed secret check, persisting the counter (and
// any newly applied lock) before surfacing InvalidCredentials.
func failCredential(ctx context.Context, d StrategyDeps, authType Type, user *models.User) error {
	locked := d.Guard.RecordFailure(user)
	if err := d.Directory.Save(ctx, user); err != nil {
		return fmt.Errorf("auth: persist failed attempt: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues(string(authType), "failure").Inc()
	if locked {
		d.Logger.Warn("account locked after repeated failures",
			zap.String("username", user.Username),
			zap.Int("failed_attempts", user.FailedLoginAttempts))
	}

	return ErrInvalidCredentials
}

// finishLogin performs the success bookkeeping and assembles the result.
func finishLogin(ctx context.Context, d StrategyDeps, authType Type, user *models.User, meta RequestMetadata) (*Result, error) {
	now := d.Clock()

	d.Guard.RecordSuccess(user)
	user.LastLogin = &now
	if err := d.Directory.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("auth: persist login state: %w", err)
	}

	accessToken, err := d.Tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := d.Refresh.Create(ctx, user, meta.IPAddress, meta.UserAgent)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues(string(authType), "success").Inc()
	d.Logger.Info("authentication succeeded",
		zap.String("type", string(authType)),
		zap.String("username", user.Username))

	accessTTL := d.Tokens.AccessTokenTTL()
	return &Result{
		User:         user.Summary(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(accessTTL.Seconds()),
		ExpiresAt:    now.Add(accessTTL),
		Roles:        user.RoleNames(),
		SessionID:    uuid.NewString(),
		LastLogin:    &now,
	}, nil
}
