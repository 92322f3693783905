package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

type Task struct {
	gorm.Model

	Title       string         `gorm:"size:255;not null"`
	Description string         `gorm:"type:text"`
	Status      string         `gorm:"not null;default:todo"` // "todo", "in_progress", "done"
	Priority    string         `gorm:"not null;default:medium"`
	Tags        datatypes.JSON `gorm:"type:jsonb"`
	DueDate     *time.Time
	CompletedAt *time.Time

	TaskListID   uint `gorm:"not null;index"`
	CreatedByID  uint `gorm:"not null;index"`
	AssignedToID *uint

	// Relationships
	TaskList   TaskList  `gorm:"foreignKey:TaskListID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	CreatedBy  User      `gorm:"foreignKey:CreatedByID"`
	AssignedTo *User     `gorm:"foreignKey:AssignedToID"`
	Comments   []Comment `gorm:"foreignKey:TaskID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	TimeLogs   []TimeLog `gorm:"foreignKey:TaskID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
