package auth

import (
	"net/http"

	apperrors "github.com/charlesng35/authcore/pkg/errors"
)

// Authentication failures. Lookup misses and wrong secrets surface the same
// ErrInvalidCredentials so account existence never leaks.
var (
	ErrInvalidCredentials = apperrors.New(
		"INVALID_CREDENTIALS", "Invalid credentials", http.StatusUnauthorized)
	ErrAccountLocked = apperrors.New(
		"ACCOUNT_LOCKED", "Account is locked due to too many failed login attempts", http.StatusUnauthorized)
	ErrAccountDisabled = apperrors.New(
		"ACCOUNT_DISABLED", "Account is disabled", http.StatusUnauthorized)
	ErrAccountExpired = apperrors.New(
		"ACCOUNT_EXPIRED", "Account has expired", http.StatusUnauthorized)
	ErrCredentialsExpired = apperrors.New(
		"CREDENTIALS_EXPIRED", "Credentials have expired", http.StatusUnauthorized)
	ErrUnsupportedAuthType = apperrors.New(
		"UNSUPPORTED_AUTH_TYPE", "Authentication type not supported", http.StatusBadRequest)
	ErrInvalidRequestType = apperrors.New(
		"INVALID_REQUEST_TYPE", "Request does not match the strategy's expected variant", http.StatusBadRequest)
)

// Refresh-token failures. Each reflects the terminal state of the presented
// token; none of them touch user account state.
var (
	ErrRefreshTokenNotFound = apperrors.New(
		"REFRESH_TOKEN_NOT_FOUND", "Refresh token not found", http.StatusUnauthorized)
	ErrRefreshTokenRevoked = apperrors.New(
		"REFRESH_TOKEN_REVOKED", "Refresh token has been revoked", http.StatusUnauthorized)
	ErrRefreshTokenExpired = apperrors.New(
		"REFRESH_TOKEN_EXPIRED", "Refresh token has expired", http.StatusUnauthorized)
)

// Token validation classification codes carried in TokenValidationResult.
const (
	TokenCodeBlacklisted      = "TOKEN_BLACKLISTED"
	TokenCodeBadSignature     = "INVALID_SIGNATURE"
	TokenCodeMalformed        = "MALFORMED_TOKEN"
	TokenCodeExpired          = "TOKEN_EXPIRED"
	TokenCodeWrongType        = "INVALID_TOKEN_TYPE"
	TokenCodeWrongIssuerAud   = "INVALID_ISSUER_OR_AUDIENCE"
	TokenCodeValidationFailed = "VALIDATION_ERROR"
)
