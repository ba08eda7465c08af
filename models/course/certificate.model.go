package course

import "time"

// Certificate is issued once per user and course after the enrollment completes.
type Certificate struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_certificate_user_course"`
	CourseID          uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_certificate_user_course"`
	Course            *Course   `json:"course,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CertificateNumber string    `json:"certificate_number" gorm:"uniqueIndex;size:64;not null"`
	CertificateURL    string    `json:"certificate_url"`
	IssuedAt          time.Time `json:"issued_at"`
	IsValid           bool      `json:"is_valid" gorm:"default:true"`
}
