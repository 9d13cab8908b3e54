package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Base
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Name         string     `json:"name"`
	DateOfBirth  time.Time  `gorm:"type:date;not null" json:"date_of_birth"`
	WorkspaceID  *uuid.UUID `gorm:"type:uuid;index" json:"workspace_id"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	IsSuperuser  bool       `gorm:"default:false" json:"is_superuser"`
	IsVerified   bool       `gorm:"default:false" json:"is_verified"`

	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:SET NULL" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName is what reminders call the user.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
