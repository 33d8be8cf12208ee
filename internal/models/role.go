package models

// Well-known role names seeded at migration time. Roles are immutable after
// seeding and referenced, never owned, by users.
const (
	RoleUser      = "ROLE_USER"
	RoleAdmin     = "ROLE_ADMIN"
	RoleModerator = "ROLE_MODERATOR"
	RoleStudent   = "ROLE_STUDENT"
	RoleProfessor = "ROLE_PROFESSOR"
	RoleGuest     = "ROLE_GUEST"
)

type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	Users []User `gorm:"many2many:user_roles;" json:"users,omitempty"`
}
