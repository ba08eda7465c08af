package course

import "time"

// Enrollment relates one user to one course and carries the aggregate progress.
// ProgressPercentage and CompletedAt are owned by the reconciliation path.
type Enrollment struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	UserID             uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID           uint       `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course;index"`
	Course             *Course    `json:"course,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	EnrolledAt         time.Time  `json:"enrolled_at" gorm:"autoCreateTime"`
	CompletedAt        *time.Time `json:"completed_at"`
	ProgressPercentage int        `json:"progress_percentage" gorm:"default:0"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
