package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// User is the local account. Accounts provisioned from an external identity
// carry ExternalID (the provider's subject) and never have a usable password.
type User struct {
	gorm.Model
	Email      string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username   string         `json:"username" gorm:"uniqueIndex;size:150;not null"`
	FullName   string         `json:"full_name" gorm:"size:255;default:''"`
	Role       string         `json:"role" gorm:"size:20;default:'student'"`
	Password   string         `json:"-"`
	ExternalID *string        `json:"external_id,omitempty" gorm:"uniqueIndex;size:255"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	IsActive   bool           `json:"is_active" gorm:"default:true"`
	LastLogin  *time.Time     `json:"last_login"`

	FailedLoginAttempts int        `json:"-" gorm:"default:0"`
	LastFailedLogin     *time.Time `json:"-"`
	BlockedUntil        *time.Time `json:"-"`
}

func (u *User) IsInstructor() bool {
	return u != nil && u.Role == RoleInstructor
}
