package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.RefreshToken{},
	)
}

// SeedRoles populates the enumerated role set. Roles are immutable after
// seeding; repeat runs are no-ops.
func SeedRoles(db *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleUser, Description: "Standard user access"},
		{Name: models.RoleAdmin, Description: "Full system access"},
		{Name: models.RoleModerator, Description: "Moderation privileges"},
		{Name: models.RoleStudent, Description: "Student access"},
		{Name: models.RoleProfessor, Description: "Professor access"},
		{Name: models.RoleGuest, Description: "Read-only guest access"},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{Name: role.Name}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	return nil
}
