package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db      *gorm.DB
	clock   *testClock
	deps    StrategyDeps
	tokens  *TokenService
	refresh *RefreshTokenService
	guard   *LockoutGuard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedRoles())
	clock := newTestClock()

	tokens, err := NewTokenService(TokenConfig{
		Secret:   []byte("unit-test-signing-secret-0123456789"),
		Issuer:   "auth-core",
		Audience: "auth-core-clients",
		Clock:    clock.Now,
	})
	require.NoError(t, err)

	refresh, err := NewRefreshTokenService(db, tokens, RefreshConfig{Clock: clock.Now})
	require.NoError(t, err)

	directory, err := NewGormUserDirectory(db)
	require.NoError(t, err)

	guard := NewLockoutGuard(LockoutConfig{Clock: clock.Now})

	deps := StrategyDeps{
		Directory: directory,
		Hasher:    NewPasswordHasher(),
		Guard:     guard,
		Tokens:    tokens,
		Refresh:   refresh,
		Clock:     clock.Now,
	}
	require.NoError(t, deps.validate())

	return &testEnv{
		db:      db,
		clock:   clock,
		deps:    deps,
		tokens:  tokens,
		refresh: refresh,
		guard:   guard,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string, roleNames ...string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	var roles []models.Role
	if len(roleNames) > 0 {
		require.NoError(t, db.Where("name IN ?", roleNames).Find(&roles).Error)
		require.Len(t, roles, len(roleNames))
	}

	user := &models.User{
		Username:              username,
		Email:                 username + "@example.com",
		Password:              hash,
		Enabled:               true,
		AccountNonExpired:     true,
		CredentialsNonExpired: true,
		Roles:                 roles,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()

	var user models.User
	require.NoError(t, db.Preload("Roles").Take(&user, "id = ?", id).Error)
	return &user
}
