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

const featuredLimit = 6

var courseOrderings = map[string]string{
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"title":       "title ASC",
	"-title":      "title DESC",
	"price":       "price ASC",
	"-price":      "price DESC",
}

// Catalog manages categories, courses and lessons. Lesson changes alter the
// denominator of every enrollment in the course, so they trigger a course-wide
// reconcile.
type Catalog struct {
	db         *gorm.DB
	reconciler *Reconciler
	log        *logger.Logger
}

func NewCatalog(db *gorm.DB, reconciler *Reconciler, log *logger.Logger) *Catalog {
	return &Catalog{db: db, reconciler: reconciler, log: log.With("service", "Catalog")}
}

func (c *Catalog) Categories(ctx context.Context) ([]course.Category, error) {
	var categories []course.Category
	err := c.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}

func (c *Catalog) CreateCategory(ctx context.Context, category *course.Category) error {
	return c.db.WithContext(ctx).Create(category).Error
}

type CourseFilter struct {
	CategoryID   *uint
	InstructorID *uint
	Level        string
	IsFeatured   *bool
	Search       string
	Ordering     string
	Page         Page
}

// Published lists published courses matching the filter.
func (c *Catalog) Published(ctx context.Context, f CourseFilter) ([]course.Course, int64, error) {
	db := c.db.WithContext(ctx).Model(&course.Course{}).Where("is_published = ?", true)
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if f.InstructorID != nil {
		db = db.Where("instructor_id = ?", *f.InstructorID)
	}
	if f.Level != "" {
		db = db.Where("level = ?", f.Level)
	}
	if f.IsFeatured != nil {
		db = db.Where("is_featured = ?", *f.IsFeatured)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	order, ok := courseOrderings[f.Ordering]
	if !ok {
		order = courseOrderings["-created_at"]
	}
	var courses []course.Course
	err := db.Preload("Category").Order(order).Order("id").
		Offset(f.Page.Offset()).Limit(f.Page.Limit).
		Find(&courses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

func (c *Catalog) Featured(ctx context.Context) ([]course.Course, error) {
	var courses []course.Course
	err := c.db.WithContext(ctx).Preload("Category").
		Where("is_featured = ? AND is_published = ?", true, true).
		Order("created_at DESC").Limit(featuredLimit).
		Find(&courses).Error
	return courses, err
}

// CourseDetail is a course with its ordered lessons and totals.
type CourseDetail struct {
	course.Course
	TotalLessons         int `json:"total_lessons"`
	TotalDurationMinutes int `json:"total_duration_minutes"`
}

func newCourseDetail(c course.Course) *CourseDetail {
	detail := &CourseDetail{Course: c, TotalLessons: len(c.Lessons)}
	for _, l := range c.Lessons {
		detail.TotalDurationMinutes += l.DurationMinutes
	}
	return detail
}

func orderedLessons(db *gorm.DB) *gorm.DB {
	return db.Order("order_index")
}

// PublishedDetail returns a published course by id.
func (c *Catalog) PublishedDetail(ctx context.Context, id uint) (*CourseDetail, error) {
	var found course.Course
	err := c.db.WithContext(ctx).Preload("Category").Preload("Lessons", orderedLessons).
		Where("id = ? AND is_published = ?", id, true).
		First(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Course")
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	return newCourseDetail(found), nil
}

// CourseInput carries course fields; nil means "leave unchanged" on update.
type CourseInput struct {
	Title         *string
	Description   *string
	ThumbnailURL  *string
	CategoryID    *uint
	Price         *float64
	IsFeatured    *bool
	IsPublished   *bool
	DurationHours *int
	Level         *string
}

func (c *Catalog) InstructorCourses(ctx context.Context, instructorID uint, page Page) ([]course.Course, int64, error) {
	db := c.db.WithContext(ctx).Model(&course.Course{}).Where("instructor_id = ?", instructorID)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var courses []course.Course
	err := db.Preload("Category").Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&courses).Error
	return courses, total, err
}

func (c *Catalog) CreateCourse(ctx context.Context, instructorID uint, in CourseInput) (*course.Course, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, apperr.ValidationField("title", "is required")
	}
	if err := c.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	created := &course.Course{InstructorID: instructorID, Level: course.LevelBeginner}
	applyCourseInput(created, in)
	if err := c.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	c.log.Info("Course created", "course_id", created.ID, "instructor_id", instructorID)
	return created, nil
}

// InstructorCourse returns one of the instructor's own courses, published or not.
func (c *Catalog) InstructorCourse(ctx context.Context, instructorID, id uint) (*CourseDetail, error) {
	found, err := c.ownCourse(ctx, instructorID, id, true)
	if err != nil {
		return nil, err
	}
	return newCourseDetail(*found), nil
}

func (c *Catalog) UpdateCourse(ctx context.Context, instructorID, id uint, in CourseInput) (*course.Course, error) {
	found, err := c.ownCourse(ctx, instructorID, id, false)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, apperr.ValidationField("title", "may not be blank")
	}
	if err := c.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	applyCourseInput(found, in)
	// Select("*") so false and zero values are written too
	if err := c.db.WithContext(ctx).Model(found).Select("*").Omit("created_at", "deleted_at", clause.Associations).Updates(found).Error; err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	return found, nil
}

func (c *Catalog) DeleteCourse(ctx context.Context, instructorID, id uint) error {
	found, err := c.ownCourse(ctx, instructorID, id, false)
	if err != nil {
		return err
	}
	if err := c.db.WithContext(ctx).Delete(found).Error; err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	c.log.Info("Course deleted", "course_id", id, "instructor_id", instructorID)
	return nil
}

func applyCourseInput(dst *course.Course, in CourseInput) {
	if in.Title != nil {
		dst.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		dst.Description = *in.Description
	}
	if in.ThumbnailURL != nil {
		dst.ThumbnailURL = *in.ThumbnailURL
	}
	if in.CategoryID != nil {
		dst.CategoryID = in.CategoryID
		dst.Category = nil
	}
	if in.Price != nil {
		dst.Price = *in.Price
	}
	if in.IsFeatured != nil {
		dst.IsFeatured = *in.IsFeatured
	}
	if in.IsPublished != nil {
		dst.IsPublished = *in.IsPublished
	}
	if in.DurationHours != nil {
		dst.DurationHours = *in.DurationHours
	}
	if in.Level != nil {
		dst.Level = *in.Level
	}
}

func (c *Catalog) checkCategory(ctx context.Context, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	if err := c.db.WithContext(ctx).Model(&course.Category{}).Where("id = ?", *categoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.ValidationField("category_id", "does not exist")
	}
	return nil
}

func (c *Catalog) ownCourse(ctx context.Context, instructorID, id uint, withLessons bool) (*course.Course, error) {
	db := c.db.WithContext(ctx).Preload("Category")
	if withLessons {
		db = db.Preload("Lessons", orderedLessons)
	}
	var found course.Course
	err := db.Where("id = ? AND instructor_id = ?", id, instructorID).First(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Course")
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	return &found, nil
}

// Lessons lists a course's lessons for its instructor.
func (c *Catalog) Lessons(ctx context.Context, instructorID, courseID uint) ([]course.Lesson, error) {
	if _, err := c.ownCourse(ctx, instructorID, courseID, false); err != nil {
		return nil, err
	}
	var lessons []course.Lesson
	err := c.db.WithContext(ctx).Where("course_id = ?", courseID).Order("order_index").Find(&lessons).Error
	return lessons, err
}

// LessonInput carries lesson fields; nil means "leave unchanged" on update. A
// missing or zero OrderIndex on create appends after the current last lesson.
type LessonInput struct {
	Title           *string
	Description     *string
	VideoURL        *string
	DurationMinutes *int
	OrderIndex      *int
	IsFree          *bool
}

func (c *Catalog) CreateLesson(ctx context.Context, instructorID, courseID uint, in LessonInput) (*course.Lesson, error) {
	if _, err := c.ownCourse(ctx, instructorID, courseID, false); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, apperr.ValidationField("title", "is required")
	}

	lesson := &course.Lesson{CourseID: courseID}
	applyLessonInput(lesson, in)
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lesson.OrderIndex <= 0 {
			var max int
			if err := tx.Model(&course.Lesson{}).Where("course_id = ?", courseID).
				Select("COALESCE(MAX(order_index), 0)").Scan(&max).Error; err != nil {
				return err
			}
			lesson.OrderIndex = max + 1
		}
		return tx.Create(lesson).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ValidationField("order_index", "already used in this course")
		}
		return nil, fmt.Errorf("create lesson: %w", err)
	}

	c.reconcileCourse(ctx, courseID)
	return lesson, nil
}

func (c *Catalog) UpdateLesson(ctx context.Context, instructorID, lessonID uint, in LessonInput) (*course.Lesson, error) {
	lesson, err := c.ownLesson(ctx, instructorID, lessonID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, apperr.ValidationField("title", "may not be blank")
	}
	if in.OrderIndex != nil && *in.OrderIndex <= 0 {
		return nil, apperr.ValidationField("order_index", "must be greater than zero")
	}
	oldDuration := lesson.DurationMinutes
	applyLessonInput(lesson, in)
	if err := c.db.WithContext(ctx).Model(lesson).Select("*").Omit("created_at", clause.Associations).Updates(lesson).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ValidationField("order_index", "already used in this course")
		}
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	if lesson.DurationMinutes != oldDuration {
		c.reconcileCourse(ctx, lesson.CourseID)
	}
	return lesson, nil
}

func (c *Catalog) DeleteLesson(ctx context.Context, instructorID, lessonID uint) error {
	lesson, err := c.ownLesson(ctx, instructorID, lessonID)
	if err != nil {
		return err
	}
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&course.LessonProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(lesson).Error
	})
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	c.reconcileCourse(ctx, lesson.CourseID)
	return nil
}

func applyLessonInput(dst *course.Lesson, in LessonInput) {
	if in.Title != nil {
		dst.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		dst.Description = *in.Description
	}
	if in.VideoURL != nil {
		dst.VideoURL = *in.VideoURL
	}
	if in.DurationMinutes != nil {
		dst.DurationMinutes = *in.DurationMinutes
	}
	if in.OrderIndex != nil {
		dst.OrderIndex = *in.OrderIndex
	}
	if in.IsFree != nil {
		dst.IsFree = *in.IsFree
	}
}

func (c *Catalog) ownLesson(ctx context.Context, instructorID, lessonID uint) (*course.Lesson, error) {
	var lesson course.Lesson
	err := c.db.WithContext(ctx).
		Joins("JOIN courses ON courses.id = lessons.course_id AND courses.deleted_at IS NULL").
		Where("lessons.id = ? AND courses.instructor_id = ?", lessonID, instructorID).
		First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Lesson")
	}
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	return &lesson, nil
}

func (c *Catalog) reconcileCourse(ctx context.Context, courseID uint) {
	if c.reconciler == nil {
		return
	}
	if _, failed, err := c.reconciler.ReconcileCourse(ctx, courseID); err != nil || failed > 0 {
		c.log.Warn("Course reconcile incomplete", "course_id", courseID, "failed", failed, "error", err)
	}
}
