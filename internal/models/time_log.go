package models

import (
	"time"

	"gorm.io/gorm"
)

type TimeLog struct {
	gorm.Model

	TaskID   uint      `gorm:"not null;index"`
	UserID   uint      `gorm:"not null;index"`
	WorkDate time.Time `gorm:"not null"` // the day the time was spent
	Seconds  int       `gorm:"not null"`

	// Relationships
	Task Task `gorm:"foreignKey:TaskID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
