package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

// Refresh-token storage fallbacks.
const (
	DefaultMaxRefreshTokensPerUser = 5
	DefaultRefreshTokenLength      = 32
)

// RefreshConfig describes tunable behaviour for the RefreshTokenService.
type RefreshConfig struct {
	TTL         time.Duration
	MaxPerUser  int
	TokenLength int
	Clock       func() time.Time
}

// RefreshTokenService owns the lifecycle of opaque refresh-token rows:
// creation under a per-user cap, one-shot rotation, revocation, and cleanup.
type RefreshTokenService struct {
	db         *gorm.DB
	tokens     *TokenService
	ttl        time.Duration
	maxPerUser int
	tokenLen   int
	now        func() time.Time
	log        *zap.Logger
}

// NewRefreshTokenService constructs the store backed by the provided database
// and token issuer.
func NewRefreshTokenService(db *gorm.DB, tokens *TokenService, cfg RefreshConfig) (*RefreshTokenService, error) {
	if db == nil {
		return nil, errors.New("refresh service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("refresh service: token service is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = tokens.RefreshTokenTTL()
	}

	maxPerUser := cfg.MaxPerUser
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxRefreshTokensPerUser
	}

	length := cfg.TokenLength
	if length <= 0 {
		length = DefaultRefreshTokenLength
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &RefreshTokenService{
		db:         db,
		tokens:     tokens,
		ttl:        ttl,
		maxPerUser: maxPerUser,
		tokenLen:   length,
		now:        clock,
		log:        logger.WithComponent("auth.refresh"),
	}, nil
}

// Create inserts a new opaque refresh token for the user. When the user is at
// the active-token cap, the oldest active tokens are revoked first so exactly
// cap-1 remain before the insert. The count-evict-insert sequence runs inside
// one transaction to hold the cap under concurrent logins.
func (s *RefreshTokenService) Create(ctx context.Context, user *models.User, ipAddress, userAgent string) (*models.RefreshToken, error) {
	if user == nil || user.ID == "" {
		return nil, errors.New("refresh service: user with id is required")
	}

	value, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return nil, fmt.Errorf("refresh service: generate token value: %w", err)
	}

	now := s.now()
	token := &models.RefreshToken{
		Token:     value,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	var evicted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active []models.RefreshToken
		if err := tx.
			Where("user_id = ? AND revoked = ? AND expires_at > ?", user.ID, false, now).
			Order("created_at ASC").
			Find(&active).Error; err != nil {
			return err
		}

		if len(active) >= s.maxPerUser {
			overflow := active[:len(active)-s.maxPerUser+1]
			ids := make([]string, 0, len(overflow))
			for _, t := range overflow {
				ids = append(ids, t.ID)
			}

			result := tx.Model(&models.RefreshToken{}).Where("id IN ?", ids).Update("revoked", true)
			if result.Error != nil {
				return result.Error
			}
			evicted = result.RowsAffected
		}

		return tx.Create(token).Error
	})
	if err != nil {
		return nil, fmt.Errorf("refresh service: create token: %w", err)
	}

	metrics.ActiveRefreshTokens.Inc()
	if evicted > 0 {
		metrics.ActiveRefreshTokens.Sub(float64(evicted))
		s.log.Debug("evicted refresh tokens over cap",
			zap.String("user_id", user.ID),
			zap.Int64("evicted", evicted))
	}

	return token, nil
}

// RotateOnRefresh consumes the presented token and issues a replacement pair.
// A token that passes the state checks is revoked before any issuance, so it
// is never reusable regardless of how the rest of the rotation fares.
func (s *RefreshTokenService) RotateOnRefresh(ctx context.Context, tokenValue string) (*Result, error) {
	var token models.RefreshToken
	err := s.db.WithContext(ctx).Where("token = ?", tokenValue).Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.RefreshRotations.WithLabelValues("not_found").Inc()
		return nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("refresh service: find token: %w", err)
	}

	now := s.now()
	if token.Revoked {
		metrics.RefreshRotations.WithLabelValues("revoked").Inc()
		return nil, ErrRefreshTokenRevoked
	}
	if token.IsExpired(now) {
		metrics.RefreshRotations.WithLabelValues("expired").Inc()
		return nil, ErrRefreshTokenExpired
	}

	// The revoked guard in the WHERE clause makes consumption atomic: of two
	// concurrent rotations of the same token, only one update matches a row.
	consume := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", token.ID, false).
		Update("revoked", true)
	if consume.Error != nil {
		return nil, fmt.Errorf("refresh service: consume token: %w", consume.Error)
	}
	if consume.RowsAffected == 0 {
		metrics.RefreshRotations.WithLabelValues("revoked").Inc()
		return nil, ErrRefreshTokenRevoked
	}
	metrics.ActiveRefreshTokens.Dec()

	var user models.User
	if err := s.db.WithContext(ctx).Preload("Roles").Take(&user, "id = ?", token.UserID).Error; err != nil {
		return nil, fmt.Errorf("refresh service: load user: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(&user)
	if err != nil {
		return nil, err
	}

	replacement, err := s.Create(ctx, &user, token.IPAddress, token.UserAgent)
	if err != nil {
		return nil, err
	}

	metrics.RefreshRotations.WithLabelValues("success").Inc()

	accessTTL := s.tokens.AccessTokenTTL()
	return &Result{
		User:         user.Summary(),
		AccessToken:  accessToken,
		RefreshToken: replacement.Token,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(accessTTL.Seconds()),
		ExpiresAt:    now.Add(accessTTL),
		Roles:        user.RoleNames(),
		SessionID:    uuid.NewString(),
		LastLogin:    user.LastLogin,
	}, nil
}

// Revoke marks the token row revoked.
func (s *RefreshTokenService) Revoke(ctx context.Context, tokenValue string) error {
	result := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token = ?", tokenValue).
		Update("revoked", true)
	if result.Error != nil {
		return fmt.Errorf("refresh service: revoke token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}

	metrics.ActiveRefreshTokens.Dec()
	return nil
}

// RevokeAllForUser marks every active token belonging to the user revoked and
// returns how many rows changed.
func (s *RefreshTokenService) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	if result.Error != nil {
		return 0, fmt.Errorf("refresh service: revoke user tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveRefreshTokens.Sub(float64(result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// DeleteAllForUser removes every token row belonging to the user.
func (s *RefreshTokenService) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("refresh service: delete user tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupExpired deletes all rows whose expiry has passed. Only already-dead
// rows are touched, so it is safe to run alongside login traffic.
func (s *RefreshTokenService) CleanupExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("refresh service: cleanup expired tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.log.Debug("cleaned up expired refresh tokens", zap.Int64("deleted", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// ActiveCount reports the user's tokens that are neither revoked nor expired.
func (s *RefreshTokenService) ActiveCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, s.now()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("refresh service: count active tokens: %w", err)
	}
	return count, nil
}
