package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/authcore/internal/auth"
	testutil "github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func (c *fixedClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword("Cle@nup3r-pass")
	require.NoError(t, err)

	user := &models.User{
		Username:              username,
		Email:                 username + "@example.com",
		Password:              hash,
		Enabled:               true,
		AccountNonExpired:     true,
		CredentialsNonExpired: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func setupCleanerDeps(t *testing.T) (*gorm.DB, *iauth.RefreshTokenService, *iauth.TokenService, *fixedClock) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &fixedClock{current: time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)}

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret: []byte("cleanup-secret-cleanup-secret-value"),
		Issuer: "auth-core",
		Clock:  clock.Now,
	})
	require.NoError(t, err)

	refresh, err := iauth.NewRefreshTokenService(db, tokens, iauth.RefreshConfig{
		TTL:   time.Hour,
		Clock: clock.Now,
	})
	require.NoError(t, err)

	return db, refresh, tokens, clock
}

func TestCleanerRunOnce(t *testing.T) {
	db, refresh, tokens, clock := setupCleanerDeps(t)
	user := seedUser(t, db, "cleanup-user")

	expired, err := refresh.Create(context.Background(), user, "", "")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	active, err := refresh.Create(context.Background(), user, "", "")
	require.NoError(t, err)

	accessToken, err := tokens.GenerateAccessToken(user)
	require.NoError(t, err)
	tokens.Revoke(accessToken)

	cleaner := NewCleaner(refresh, tokens)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("token = ?", expired.Token).Count(&count).Error)
	require.Zero(t, count)

	var stored models.RefreshToken
	require.NoError(t, db.Take(&stored, "token = ?", active.Token).Error)
	require.False(t, stored.Revoked)
}

func TestCleanerStartSchedulesJob(t *testing.T) {
	_, refresh, tokens, _ := setupCleanerDeps(t)

	cleaner := NewCleaner(refresh, tokens, WithSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())

	done := cleaner.Stop()
	select {
	case <-done.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}

func TestCleanerWithoutDependenciesIsInert(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
