package models

import (
	"time"

	"github.com/google/uuid"
)

// Birthday is the reminder row for one person. UserID is unique when set, so
// an account has at most one birthday; rows without a user are allowed.
type Birthday struct {
	Base
	UserID      *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Name        string     `gorm:"not null" json:"name"`
	DateOfBirth time.Time  `gorm:"type:date;not null" json:"date_of_birth"`
	WorkspaceID *uuid.UUID `gorm:"type:uuid;index" json:"workspace_id"`

	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Birthday) TableName() string {
	return "birthdays"
}
