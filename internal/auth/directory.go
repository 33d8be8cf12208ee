package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/authcore/internal/models"
)

// ErrUserNotFound is returned by directory lookups that match no active user.
// Strategies translate it so callers cannot distinguish a missing account
// from a wrong secret.
var ErrUserNotFound = errors.New("directory: user not found")

// UserDirectory is the external collaborator that stores and looks up users.
// "Active" lookups are pre-filtered to enabled accounts; the engine re-checks
// account state regardless.
type UserDirectory interface {
	FindActiveByUsername(ctx context.Context, username string) (*models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// GormUserDirectory is the default database-backed directory.
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory wraps a database handle as a UserDirectory.
func NewGormUserDirectory(db *gorm.DB) (*GormUserDirectory, error) {
	if db == nil {
		return nil, errors.New("directory: db is required")
	}
	return &GormUserDirectory{db: db}, nil
}

func (d *GormUserDirectory) FindActiveByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.findActive(ctx, "LOWER(username) = LOWER(?)", strings.TrimSpace(username))
}

func (d *GormUserDirectory) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findActive(ctx, "LOWER(email) = LOWER(?)", strings.TrimSpace(email))
}

func (d *GormUserDirectory) findActive(ctx context.Context, query, value string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Preload("Roles").
		Where(query, value).
		Where("enabled = ?", true).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: query user: %w", err)
	}
	return &user, nil
}

// Save persists the user's own columns. Role membership is owned elsewhere
// and never written here.
func (d *GormUserDirectory) Save(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return errors.New("directory: user with id is required")
	}

	if err := d.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error; err != nil {
		return fmt.Errorf("directory: save user: %w", err)
	}
	return nil
}

func (d *GormUserDirectory) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return d.exists(ctx, "LOWER(username) = LOWER(?)", strings.TrimSpace(username))
}

func (d *GormUserDirectory) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return d.exists(ctx, "LOWER(email) = LOWER(?)", strings.TrimSpace(email))
}

func (d *GormUserDirectory) exists(ctx context.Context, query, value string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.User{}).Where(query, value).Count(&count).Error; err != nil {
		return false, fmt.Errorf("directory: count users: %w", err)
	}
	return count > 0, nil
}
