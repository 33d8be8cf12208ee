package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/validator"
)

func TestUsernamePasswordSuccess(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass", models.RoleUser, models.RoleStudent)

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	result, err := strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username:        "alice",
		Password:        "Secur3@Pass",
		RequestMetadata: RequestMetadata{IPAddress: "10.0.0.1", UserAgent: "unit-test"},
	})
	require.NoError(t, err)

	require.Equal(t, user.ID, result.User.ID)
	require.Equal(t, "alice", result.User.Username)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, TokenTypeBearer, result.TokenType)
	require.Equal(t, int64(DefaultAccessTokenTTL.Seconds()), result.ExpiresIn)
	require.ElementsMatch(t, []string{models.RoleUser, models.RoleStudent}, result.Roles)
	require.NotEmpty(t, result.SessionID)
	require.NotNil(t, result.LastLogin)
	require.True(t, result.LastLogin.Equal(env.clock.Now()))

	validation := env.tokens.Validate(result.AccessToken, TokenTypeAccess)
	require.True(t, validation.Valid)
	require.Equal(t, "alice", validation.Username)

	var stored models.RefreshToken
	require.NoError(t, env.db.Take(&stored, "token = ?", result.RefreshToken).Error)
	require.Equal(t, user.ID, stored.UserID)
	require.Equal(t, "10.0.0.1", stored.IPAddress)
	require.Equal(t, "unit-test", stored.UserAgent)
	require.True(t, stored.IsActive(env.clock.Now()))

	reloaded := reloadUser(t, env.db, user.ID)
	require.NotNil(t, reloaded.LastLogin)
	require.Zero(t, reloaded.FailedLoginAttempts)
}

func TestUsernamePasswordWrongPasswordCountsFailure(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	reloaded := reloadUser(t, env.db, user.ID)
	require.Equal(t, 1, reloaded.FailedLoginAttempts)
	require.Nil(t, reloaded.LockedUntil)
}

func TestUsernamePasswordUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "nobody",
		Password: "whatever-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
			Username: "alice",
			Password: "wrong-password",
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	reloaded := reloadUser(t, env.db, user.ID)
	require.Equal(t, DefaultLockoutThreshold, reloaded.FailedLoginAttempts)
	require.NotNil(t, reloaded.LockedUntil)

	// The correct password no longer helps while the lock holds, and the
	// attempt does not move the counter.
	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "Secur3@Pass",
	})
	require.ErrorIs(t, err, ErrAccountLocked)

	reloaded = reloadUser(t, env.db, user.ID)
	require.Equal(t, DefaultLockoutThreshold, reloaded.FailedLoginAttempts)
}

func TestLockExpiresAndLoginSucceeds(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, _ = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
			Username: "alice",
			Password: "wrong-password",
		})
	}

	env.clock.Advance(DefaultLockoutWindow + time.Minute)

	result, err := strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "Secur3@Pass",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	reloaded := reloadUser(t, env.db, user.ID)
	require.Zero(t, reloaded.FailedLoginAttempts)
	require.Nil(t, reloaded.LockedUntil)
}

func TestWrongPasswordAfterLockWindowRelocks(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, _ = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
			Username: "alice",
			Password: "wrong-password",
		})
	}

	env.clock.Advance(DefaultLockoutWindow + time.Minute)

	// The expired lock lifts, but the counter is still at the threshold, so
	// a single further failure locks the account again.
	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	reloaded := reloadUser(t, env.db, user.ID)
	require.Equal(t, DefaultLockoutThreshold+1, reloaded.FailedLoginAttempts)
	require.NotNil(t, reloaded.LockedUntil)

	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "Secur3@Pass",
	})
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestUsernamePasswordValidation(t *testing.T) {
	env := newTestEnv(t)

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "",
		Password: "whatever-password",
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	first, ok := verrs.First()
	require.True(t, ok)
	require.Equal(t, "USERNAME_REQUIRED", first.Code)
}

func TestUsernamePasswordRejectsForeignRequest(t *testing.T) {
	env := newTestEnv(t)

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = strategy.Authenticate(context.Background(), EmailPasswordRequest{
		Email:    "alice@example.com",
		Password: "Secur3@Pass",
	})
	require.ErrorIs(t, err, ErrInvalidRequestType)
}

func TestAccountExpiredGate(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")
	require.NoError(t, env.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("account_non_expired", false).Error)

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "Secur3@Pass",
	})
	require.ErrorIs(t, err, ErrAccountExpired)
}

func TestCredentialsExpiredGate(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")
	require.NoError(t, env.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("credentials_non_expired", false).Error)

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "Secur3@Pass",
	})
	require.ErrorIs(t, err, ErrCredentialsExpired)
}

func TestDisabledAccountHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")
	require.NoError(t, env.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("enabled", false).Error)

	strategy, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)

	// Disabled accounts are filtered by the directory, so the failure is
	// indistinguishable from an unknown user.
	_, err = strategy.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "Secur3@Pass",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEmailPasswordSuccess(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass", models.RoleStudent)

	strategy, err := NewEmailPasswordStrategy(env.deps)
	require.NoError(t, err)

	result, err := strategy.Authenticate(context.Background(), EmailPasswordRequest{
		Email:    "ALICE@example.com",
		Password: "Secur3@Pass",
	})
	require.NoError(t, err)
	require.Equal(t, user.ID, result.User.ID)
	require.Equal(t, []string{models.RoleStudent}, result.Roles)
}

func TestEmailPasswordValidation(t *testing.T) {
	env := newTestEnv(t)

	strategy, err := NewEmailPasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = strategy.Authenticate(context.Background(), EmailPasswordRequest{
		Email:    "not-an-email",
		Password: "whatever-password",
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	first, ok := verrs.First()
	require.True(t, ok)
	require.Equal(t, "EMAIL_INVALID_FORMAT", first.Code)
}

func TestEmailPasswordSharesLockoutCounter(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "alice", "Secur3@Pass")

	byUsername, err := NewUsernamePasswordStrategy(env.deps)
	require.NoError(t, err)
	byEmail, err := NewEmailPasswordStrategy(env.deps)
	require.NoError(t, err)

	_, err = byUsername.Authenticate(context.Background(), UsernamePasswordRequest{
		Username: "alice",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = byEmail.Authenticate(context.Background(), EmailPasswordRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	reloaded := reloadUser(t, env.db, user.ID)
	require.Equal(t, 2, reloaded.FailedLoginAttempts)
}
