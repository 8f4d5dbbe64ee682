package models

import "time"

const (
	RoleAdministrator = "administrator"
	RoleUser          = "user"
)

// Role represents user roles with numeric primary key
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

// DefaultRoles are seeded before any user is created.
var DefaultRoles = []Role{
	{Name: RoleAdministrator, Description: "Sees and corrects every scan"},
	{Name: RoleUser, Description: "Scans own receipts"},
}
