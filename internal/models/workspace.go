package models

import "gorm.io/gorm"

type Workspace struct {
	gorm.Model

	Name       string `gorm:"size:70;uniqueIndex;not null"`
	InviteCode string `gorm:"size:8;uniqueIndex;not null"` // immutable once assigned

	// Relationships
	Memberships []Membership `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	TaskLists   []TaskList   `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
