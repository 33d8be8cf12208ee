package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/metrics"
)

// Fallback token lifetimes when none are configured.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// Claim values for the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenConfig bundles the configuration required to build a TokenService.
// Secret holds the raw signing-key bytes; callers decode any textual key
// encoding before constructing the service.
type TokenConfig struct {
	Secret          []byte
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// TokenClaims represents the custom claims embedded in issued JWTs.
type TokenClaims struct {
	Email     string   `json:"email,omitempty"`
	UserID    string   `json:"userId,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly issued access/refresh token pair with its metadata.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	ExpiresAt    time.Time
	Roles        []string
	LastLogin    *time.Time
}

// TokenService issues and validates signed tokens and maintains the in-process
// revocation set. The set is scoped to this process only; horizontally scaled
// deployments need an external shared store behind the same interface.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	revoked map[string]time.Time // token -> its own expiry
}

// NewTokenService constructs a TokenService from the provided configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token service: secret must be provided")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		secret:     cfg.Secret,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		revoked:    make(map[string]time.Time),
	}, nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

// GenerateAccessToken issues a signed access token for the user.
func (s *TokenService) GenerateAccessToken(user *models.User) (string, error) {
	return s.generate(user, TokenTypeAccess, s.accessTTL)
}

// GenerateRefreshToken issues a signed refresh token for the user. The claim
// set matches the access token; only the type and lifetime differ.
func (s *TokenService) GenerateRefreshToken(user *models.User) (string, error) {
	return s.generate(user, TokenTypeRefresh, s.refreshTTL)
}

func (s *TokenService) generate(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	if user == nil || user.Username == "" {
		return "", errors.New("token service: user with username is required")
	}

	now := s.now()
	claims := &TokenClaims{
		Email:     user.Email,
		UserID:    user.ID,
		Roles:     user.RoleNames(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token service: sign token: %w", err)
	}

	return signed, nil
}

// GenerateTokenPair issues both tokens and the metadata bundled with them.
func (s *TokenService) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	accessToken, err := s.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		ExpiresAt:    s.now().Add(s.accessTTL),
		Roles:        user.RoleNames(),
		LastLogin:    user.LastLogin,
	}, nil
}

// Validate verifies a token against the expected type claim, classifying the
// first failing check. Roles are populated for access tokens only.
func (s *TokenService) Validate(tokenString, expectedType string) TokenValidationResult {
	if s.IsRevoked(tokenString) {
		return s.invalid(TokenCodeBlacklisted, "Token has been revoked")
	}

	claims, err := s.parse(tokenString)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return s.invalid(TokenCodeBadSignature, "Invalid token signature")
		case errors.Is(err, jwt.ErrTokenMalformed):
			return s.invalid(TokenCodeMalformed, "Malformed token")
		case errors.Is(err, jwt.ErrTokenExpired):
			return s.invalid(TokenCodeExpired, "Token has expired")
		default:
			return s.invalid(TokenCodeValidationFailed, "Token validation failed")
		}
	}

	if claims.TokenType != expectedType {
		return s.invalid(TokenCodeWrongType, "Invalid token type")
	}

	if claims.Issuer != s.issuer || !containsAudience(claims.Audience, s.audience) {
		return s.invalid(TokenCodeWrongIssuerAud, "Invalid token issuer or audience")
	}

	result := TokenValidationResult{
		Valid:    true,
		Username: claims.Subject,
	}
	if expectedType == TokenTypeAccess {
		result.Roles = claims.Roles
	}
	if claims.IssuedAt != nil {
		issuedAt := claims.IssuedAt.Time
		result.IssuedAt = &issuedAt
	}
	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		result.ExpiresAt = &expiresAt
	}

	return result
}

func (s *TokenService) invalid(code, message string) TokenValidationResult {
	metrics.TokenValidationFailures.WithLabelValues(code).Inc()
	return TokenValidationResult{
		Valid:        false,
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

func (s *TokenService) parse(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims TokenClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// ExtractUsername returns the subject claim, or an empty string when the
// token does not verify.
func (s *TokenService) ExtractUsername(tokenString string) string {
	claims, err := s.parse(tokenString)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// ExtractRoles returns the role claims, or nil when the token does not verify.
func (s *TokenService) ExtractRoles(tokenString string) []string {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil
	}
	return claims.Roles
}

// Revoke adds the token to the revocation set for the remainder of its
// lifetime. Tokens that cannot be decoded are still held, bounded by the
// refresh TTL as the longest lifetime any issued token can have.
func (s *TokenService) Revoke(tokenString string) {
	if tokenString == "" {
		return
	}

	expiry := s.now().Add(s.refreshTTL)
	var claims TokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err == nil && claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	s.revoked[tokenString] = expiry
	s.mu.Unlock()
}

// IsRevoked reports whether the token is in the revocation set.
func (s *TokenService) IsRevoked(tokenString string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[tokenString]
	return ok
}

// PruneRevoked removes revocation entries whose tokens have expired on their
// own, bounding the set by token lifetime rather than process lifetime. It
// returns the number of entries removed.
func (s *TokenService) PruneRevoked() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, expiry := range s.revoked {
		if expiry.Before(now) {
			delete(s.revoked, token)
			removed++
		}
	}
	return removed
}

func containsAudience(audience jwt.ClaimStrings, expected string) bool {
	if expected == "" {
		return true
	}
	for _, aud := range audience {
		if aud == expected {
			return true
		}
	}
	return false
}
