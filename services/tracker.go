package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models/course"
)

// Tracker records per-lesson watch progress. Every write is followed by a
// reconciliation of the owning enrollment.
type Tracker struct {
	db         *gorm.DB
	ledger     *Ledger
	reconciler *Reconciler
	log        *logger.Logger
}

func NewTracker(db *gorm.DB, ledger *Ledger, reconciler *Reconciler, log *logger.Logger) *Tracker {
	return &Tracker{db: db, ledger: ledger, reconciler: reconciler, log: log.With("service", "Tracker")}
}

// RecordProgress sets (not adds) the user's watch time for a lesson.
func (t *Tracker) RecordProgress(ctx context.Context, userID, lessonID uint, watchTimeSeconds int) (*course.LessonProgress, error) {
	if watchTimeSeconds < 0 {
		return nil, apperr.ValidationField("watch_time_seconds", "must be zero or greater")
	}
	lesson, err := t.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return t.write(ctx, userID, lesson, watchTimeSeconds)
}

// MarkComplete credits the lesson's full duration.
func (t *Tracker) MarkComplete(ctx context.Context, userID, lessonID uint) (*course.LessonProgress, error) {
	lesson, err := t.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return t.write(ctx, userID, lesson, lesson.DurationSeconds())
}

// UpdateByID overwrites the watch time of one of the user's progress rows.
func (t *Tracker) UpdateByID(ctx context.Context, userID, progressID uint, watchTimeSeconds int) (*course.LessonProgress, error) {
	if watchTimeSeconds < 0 {
		return nil, apperr.ValidationField("watch_time_seconds", "must be zero or greater")
	}
	progress, err := t.Get(ctx, userID, progressID)
	if err != nil {
		return nil, err
	}
	return t.write(ctx, userID, progress.Lesson, watchTimeSeconds)
}

// Delete removes one of the user's progress rows and reconciles the enrollment.
func (t *Tracker) Delete(ctx context.Context, userID, progressID uint) error {
	progress, err := t.Get(ctx, userID, progressID)
	if err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).Delete(&course.LessonProgress{}, progress.ID).Error; err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	t.reconcile(ctx, userID, progress.Lesson.CourseID)
	return nil
}

func (t *Tracker) Get(ctx context.Context, userID, progressID uint) (*course.LessonProgress, error) {
	var progress course.LessonProgress
	err := t.db.WithContext(ctx).Preload("Lesson").
		Where("id = ? AND user_id = ?", progressID, userID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Progress")
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if progress.Lesson == nil {
		return nil, apperr.NotFound("Lesson")
	}
	return &progress, nil
}

// List returns the user's progress rows, optionally limited to one course.
func (t *Tracker) List(ctx context.Context, userID uint, courseID *uint) ([]course.LessonProgress, error) {
	db := t.db.WithContext(ctx).Preload("Lesson").Where("lesson_progress.user_id = ?", userID)
	if courseID != nil {
		db = db.Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
			Where("lessons.course_id = ?", *courseID)
	}
	var rows []course.LessonProgress
	if err := db.Order("lesson_progress.updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

// LessonStatus is one lesson line of a CourseProgressReport.
type LessonStatus struct {
	LessonID         uint       `json:"lesson_id"`
	Title            string     `json:"lesson_title"`
	OrderIndex       int        `json:"order_index"`
	DurationMinutes  int        `json:"duration_minutes"`
	IsCompleted      bool       `json:"is_completed"`
	WatchTimeSeconds int        `json:"watch_time_seconds"`
	CompletedAt      *time.Time `json:"completed_at"`
}

type CourseProgressReport struct {
	CourseID           uint           `json:"course_id"`
	CourseTitle        string         `json:"course_title"`
	ProgressPercentage int            `json:"enrollment_progress"`
	CompletedAt        *time.Time     `json:"completed_at"`
	TotalLessons       int            `json:"total_lessons"`
	CompletedLessons   int            `json:"completed_lessons"`
	Lessons            []LessonStatus `json:"lessons"`
}

// CourseProgress reports per-lesson status for an enrolled course. The stored
// percentage is returned as-is; it is not recomputed here.
func (t *Tracker) CourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgressReport, error) {
	enrollment, err := t.ledger.Find(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Course not found or you are not enrolled", nil)
		}
		return nil, err
	}

	db := t.db.WithContext(ctx)
	var lessons []course.Lesson
	if err := db.Where("course_id = ?", courseID).Order("order_index").Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	var rows []course.LessonProgress
	err = db.Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Where("lesson_progress.user_id = ? AND lessons.course_id = ?", userID, courseID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	byLesson := make(map[uint]course.LessonProgress, len(rows))
	for _, row := range rows {
		byLesson[row.LessonID] = row
	}

	report := &CourseProgressReport{
		CourseID:           courseID,
		ProgressPercentage: enrollment.ProgressPercentage,
		CompletedAt:        enrollment.CompletedAt,
		TotalLessons:       len(lessons),
		Lessons:            make([]LessonStatus, 0, len(lessons)),
	}
	if enrollment.Course != nil {
		report.CourseTitle = enrollment.Course.Title
	}
	for _, lesson := range lessons {
		status := LessonStatus{
			LessonID:        lesson.ID,
			Title:           lesson.Title,
			OrderIndex:      lesson.OrderIndex,
			DurationMinutes: lesson.DurationMinutes,
		}
		if row, ok := byLesson[lesson.ID]; ok {
			completedAt := row.CompletedAt
			status.WatchTimeSeconds = row.WatchTimeSeconds
			status.CompletedAt = &completedAt
			status.IsCompleted = course.IsLessonComplete(row.WatchTimeSeconds, lesson.DurationMinutes)
		}
		if status.IsCompleted {
			report.CompletedLessons++
		}
		report.Lessons = append(report.Lessons, status)
	}
	return report, nil
}

func (t *Tracker) lesson(ctx context.Context, lessonID uint) (*course.Lesson, error) {
	var lesson course.Lesson
	err := t.db.WithContext(ctx).First(&lesson, lessonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Lesson")
	}
	if err != nil {
		return nil, fmt.Errorf("load lesson %d: %w", lessonID, err)
	}
	return &lesson, nil
}

// write upserts the (user, lesson) row then reconciles. The upsert overwrites
// watch time, so concurrent writers converge on the last value.
func (t *Tracker) write(ctx context.Context, userID uint, lesson *course.Lesson, watchTimeSeconds int) (*course.LessonProgress, error) {
	enrolled, err := t.ledger.IsEnrolled(ctx, userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, apperr.ErrNotEnrolled
	}

	db := t.db.WithContext(ctx)
	row := &course.LessonProgress{UserID: userID, LessonID: lesson.ID, WatchTimeSeconds: watchTimeSeconds}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"watch_time_seconds", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	var saved course.LessonProgress
	err = db.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("reload progress: %w", err)
	}
	saved.Lesson = lesson

	t.reconcile(ctx, userID, lesson.CourseID)
	return &saved, nil
}

// reconcile runs after a committed progress write. A failure leaves the
// enrollment stale until the next reconcile; the write itself stands.
func (t *Tracker) reconcile(ctx context.Context, userID, courseID uint) {
	if _, err := t.reconciler.ReconcileFor(ctx, userID, courseID); err != nil {
		t.log.Warn("Reconcile after progress write failed", "user_id", userID, "course_id", courseID, "error", err)
	}
}
