package models

import (
	"time"
)

// RefreshToken is an opaque long-lived credential row. A token leaves the
// active state exactly once: either Revoked is set (rotation, explicit
// revoke, cap eviction) or its expiry passes.
type RefreshToken struct {
	BaseModel

	Token  string `gorm:"uniqueIndex;not null" json:"-"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// IsExpired reports whether the token's expiry has passed at the given time.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// IsActive reports whether the token is neither revoked nor expired.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
