package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"gorm.io/gorm"

	"scholar/models/course"
)

// CourseStats summarises enrollment activity for one course.
type CourseStats struct {
	CourseID             uint    `json:"course_id"`
	TotalLessons         int64   `json:"total_lessons"`
	TotalEnrollments     int64   `json:"total_enrollments"`
	CompletedEnrollments int64   `json:"completed_enrollments"`
	AverageProgress      float64 `json:"average_progress"`
	EnrollmentsThisMonth int64   `json:"enrollments_this_month"`
	CompletionsThisMonth int64   `json:"completions_this_month"`
	CertificatesIssued   int64   `json:"certificates_issued"`
}

// Dashboard serves instructor statistics.
type Dashboard struct {
	db      *gorm.DB
	catalog *Catalog
	now     func() time.Time
}

func NewDashboard(db *gorm.DB, catalog *Catalog) *Dashboard {
	return &Dashboard{db: db, catalog: catalog, now: time.Now}
}

func (d *Dashboard) CourseStats(ctx context.Context, instructorID, courseID uint) (*CourseStats, error) {
	if _, err := d.catalog.ownCourse(ctx, instructorID, courseID, false); err != nil {
		return nil, err
	}
	db := d.db.WithContext(ctx)
	monthStart := now.With(d.now().UTC()).BeginningOfMonth()
	stats := &CourseStats{CourseID: courseID}

	enrollments := func() *gorm.DB {
		return db.Model(&course.Enrollment{}).Where("course_id = ?", courseID)
	}
	if err := db.Model(&course.Lesson{}).Where("course_id = ?", courseID).Count(&stats.TotalLessons).Error; err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}
	if err := enrollments().Count(&stats.TotalEnrollments).Error; err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	if err := enrollments().Where("completed_at IS NOT NULL").Count(&stats.CompletedEnrollments).Error; err != nil {
		return nil, fmt.Errorf("count completions: %w", err)
	}
	if err := enrollments().Where("enrolled_at >= ?", monthStart).Count(&stats.EnrollmentsThisMonth).Error; err != nil {
		return nil, fmt.Errorf("count monthly enrollments: %w", err)
	}
	if err := enrollments().Where("completed_at >= ?", monthStart).Count(&stats.CompletionsThisMonth).Error; err != nil {
		return nil, fmt.Errorf("count monthly completions: %w", err)
	}
	if err := enrollments().Select("COALESCE(AVG(progress_percentage), 0)").Scan(&stats.AverageProgress).Error; err != nil {
		return nil, fmt.Errorf("average progress: %w", err)
	}
	if err := db.Model(&course.Certificate{}).Where("course_id = ?", courseID).Count(&stats.CertificatesIssued).Error; err != nil {
		return nil, fmt.Errorf("count certificates: %w", err)
	}
	return stats, nil
}
