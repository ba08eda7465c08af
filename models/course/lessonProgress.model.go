package course

import "time"

// A lesson counts as complete once CompletionNumerator/CompletionDenominator
// (80%) of its duration has been watched. Kept as integers so SQL and Go agree
// exactly at the boundary.
const (
	CompletionNumerator   = 4
	CompletionDenominator = 5
)

// LessonProgress is the watch record of one user for one lesson.
// WatchTimeSeconds is overwritten on every update; CompletedAt is the creation time.
type LessonProgress struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UserID           uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_progress_user_lesson"`
	LessonID         uint      `json:"lesson_id" gorm:"not null;uniqueIndex:idx_progress_user_lesson;index"`
	Lesson           *Lesson   `json:"lesson,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	WatchTimeSeconds int       `json:"watch_time_seconds" gorm:"not null;default:0"`
	CompletedAt      time.Time `json:"completed_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsLessonComplete is the completion predicate used by reconciliation.
func IsLessonComplete(watchTimeSeconds, durationMinutes int) bool {
	return watchTimeSeconds*CompletionDenominator >= durationMinutes*60*CompletionNumerator
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
