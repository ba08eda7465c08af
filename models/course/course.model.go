package course

import (
	"time"

	"gorm.io/gorm"
)

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Category groups courses in the catalog
type Category struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description"`
	Icon        string `json:"icon" gorm:"size:50"`
}

// Course represents a learning course
type Course struct {
	gorm.Model
	Title         string    `json:"title" gorm:"size:200;not null"`
	Description   string    `json:"description" gorm:"type:text"`
	ThumbnailURL  string    `json:"thumbnail_url"`
	InstructorID  uint      `json:"instructor_id" gorm:"index;not null"`
	CategoryID    *uint     `json:"category_id" gorm:"index"`
	Category      *Category `json:"category,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Price         float64   `json:"price" gorm:"type:decimal(10,2);default:0"`
	IsFeatured    bool      `json:"is_featured" gorm:"default:false"`
	IsPublished   bool      `json:"is_published" gorm:"default:false"`
	DurationHours int       `json:"duration_hours" gorm:"default:0"`
	Level         string    `json:"level" gorm:"size:20;default:'beginner'"`
	Lessons       []Lesson  `json:"lessons,omitempty"`
}

// Lesson is one ordered unit of a course. OrderIndex is unique within the course.
type Lesson struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	CourseID        uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_lesson_course_order"`
	Title           string    `json:"title" gorm:"size:200;not null"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"video_url"`
	DurationMinutes int       `json:"duration_minutes" gorm:"default:0"`
	OrderIndex      int       `json:"order_index" gorm:"not null;uniqueIndex:idx_lesson_course_order"`
	IsFree          bool      `json:"is_free" gorm:"default:false"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DurationSeconds is the full-credit watch time for the lesson.
func (l *Lesson) DurationSeconds() int {
	return l.DurationMinutes * 60
}
