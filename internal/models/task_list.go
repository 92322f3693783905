package models

import "gorm.io/gorm"

type TaskList struct {
	gorm.Model

	Title       string `gorm:"size:255;not null"`
	WorkspaceID uint   `gorm:"not null;index"`

	// Relationships
	Workspace Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tasks     []Task    `gorm:"foreignKey:TaskListID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
