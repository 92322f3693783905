package models

import "gorm.io/gorm"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Membership is the single source of truth for workspace access: one row
// binds one user to one workspace with exactly one role.
type Membership struct {
	gorm.Model

	UserID      uint `gorm:"not null;uniqueIndex:idx_user_workspace"`
	WorkspaceID uint `gorm:"not null;uniqueIndex:idx_user_workspace"`
	Role        Role `gorm:"type:varchar(16);not null;default:user"`

	// Relationships
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Workspace Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
