package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models/course"
)

// Ledger owns the enrollment table: who is enrolled in what. It is also the
// ReconcileStore backing the Reconciler.
type Ledger struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedger(db *gorm.DB, log *logger.Logger) *Ledger {
	return &Ledger{db: db, log: log.With("service", "Ledger")}
}

// isUniqueViolation reports whether err came from a unique constraint. Drivers
// that gorm cannot translate are matched on their message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// Enroll creates the enrollment of userID in a published course.
func (l *Ledger) Enroll(ctx context.Context, userID, courseID uint) (*course.Enrollment, error) {
	db := l.db.WithContext(ctx)

	var c course.Course
	err := db.Where("id = ? AND is_published = ?", courseID, true).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrCourseNotAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}

	enrolled, err := l.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, apperr.ErrAlreadyEnrolled
	}

	enrollment := &course.Enrollment{UserID: userID, CourseID: courseID}
	if err := db.Create(enrollment).Error; err != nil {
		// lost a race with a concurrent enroll
		if isUniqueViolation(err) {
			return nil, apperr.ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	enrollment.Course = &c

	l.log.Info("User enrolled", "user_id", userID, "course_id", courseID, "enrollment_id", enrollment.ID)
	return enrollment, nil
}

// Unenroll removes the enrollment. Lesson progress rows are kept.
func (l *Ledger) Unenroll(ctx context.Context, userID, courseID uint) error {
	result := l.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&course.Enrollment{})
	if result.Error != nil {
		return fmt.Errorf("delete enrollment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Enrollment")
	}
	l.log.Info("User unenrolled", "user_id", userID, "course_id", courseID)
	return nil
}

// DeleteByID removes one of the user's enrollments by id.
func (l *Ledger) DeleteByID(ctx context.Context, userID, enrollmentID uint) error {
	result := l.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", enrollmentID, userID).
		Delete(&course.Enrollment{})
	if result.Error != nil {
		return fmt.Errorf("delete enrollment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Enrollment")
	}
	return nil
}

func (l *Ledger) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&course.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}

// Find returns the enrollment of userID in courseID with its course.
func (l *Ledger) Find(ctx context.Context, userID, courseID uint) (*course.Enrollment, error) {
	var enrollment course.Enrollment
	err := l.db.WithContext(ctx).Preload("Course").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Enrollment")
	}
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	return &enrollment, nil
}

// Get returns one of the user's enrollments by id.
func (l *Ledger) Get(ctx context.Context, userID, enrollmentID uint) (*course.Enrollment, error) {
	var enrollment course.Enrollment
	err := l.db.WithContext(ctx).Preload("Course").
		Where("id = ? AND user_id = ?", enrollmentID, userID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Enrollment")
	}
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	return &enrollment, nil
}

// List pages through the user's enrollments, newest first.
func (l *Ledger) List(ctx context.Context, userID uint, page Page) ([]course.Enrollment, int64, error) {
	db := l.db.WithContext(ctx).Model(&course.Enrollment{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}

	var enrollments []course.Enrollment
	err := db.Preload("Course").
		Order("enrolled_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&enrollments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, total, nil
}

func (l *Ledger) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return l.db.WithContext(ctx).Transaction(fn)
}

func (l *Ledger) FindEnrollmentID(ctx context.Context, userID, courseID uint) (uint, bool, error) {
	var ids []uint
	err := l.db.WithContext(ctx).Model(&course.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).Pluck("id", &ids).Error
	if err != nil {
		return 0, false, fmt.Errorf("find enrollment: %w", err)
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

func (l *Ledger) ListEnrollmentIDs(ctx context.Context, incompleteOnly bool) ([]uint, error) {
	db := l.db.WithContext(ctx).Model(&course.Enrollment{})
	if incompleteOnly {
		db = db.Where("completed_at IS NULL")
	}
	var ids []uint
	if err := db.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list enrollment ids: %w", err)
	}
	return ids, nil
}

func (l *Ledger) ListCourseEnrollmentIDs(ctx context.Context, courseID uint) ([]uint, error) {
	var ids []uint
	err := l.db.WithContext(ctx).Model(&course.Enrollment{}).
		Where("course_id = ?", courseID).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return ids, nil
}

// LockEnrollment loads the enrollment row with SELECT ... FOR UPDATE. The sqlite
// dialect drops the locking clause; the keyed lock covers it there.
func (l *Ledger) LockEnrollment(tx *gorm.DB, enrollmentID uint) (*course.Enrollment, error) {
	var enrollment course.Enrollment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&enrollment, enrollmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Enrollment")
	}
	if err != nil {
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	return &enrollment, nil
}

func (l *Ledger) CountLessons(tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := tx.Model(&course.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

// CountCompletedLessons counts the user's progress rows in the course that
// satisfy the completion predicate.
func (l *Ledger) CountCompletedLessons(tx *gorm.DB, userID, courseID uint) (int64, error) {
	var count int64
	err := tx.Model(&course.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Where("lesson_progress.user_id = ? AND lessons.course_id = ?", userID, courseID).
		Where("lesson_progress.watch_time_seconds * ? >= lessons.duration_minutes * 60 * ?",
			course.CompletionDenominator, course.CompletionNumerator).
		Count(&count).Error
	return count, err
}

func (l *Ledger) SaveEnrollment(tx *gorm.DB, enrollment *course.Enrollment) error {
	return tx.Model(enrollment).Select("progress_percentage", "completed_at", "updated_at").
		Updates(enrollment).Error
}
