package models

import (
	"time"

	"gorm.io/gorm"
)

// LoginTracking records every successful sign-in, local or external.
type LoginTracking struct {
	gorm.Model
	UserID    uint      `json:"user_id" gorm:"index"`
	Method    string    `json:"method"` // password, identity
	IPAddress string    `json:"ip_address"`
	Device    string    `json:"device"`
	Timestamp time.Time `json:"timestamp"`
}
