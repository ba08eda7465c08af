package courseValidator

import (
	"github.com/gofiber/fiber/v2"

	"scholar/services"
	"scholar/validators"
)

const (
	CourseListKey   = "validatedCourseList"
	CategoryKey     = "validatedCategory"
	CourseCreateKey = "validatedCourseCreate"
	CourseUpdateKey = "validatedCourseUpdate"
	LessonCreateKey = "validatedLessonCreate"
	LessonUpdateKey = "validatedLessonUpdate"
)

type CourseListQuery struct {
	Category   *uint  `query:"category"`
	Instructor *uint  `query:"instructor"`
	Level      string `query:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	IsFeatured *bool  `query:"is_featured"`
	Search     string `query:"search" validate:"max=200"`
	Ordering   string `query:"ordering" validate:"omitempty,oneof=created_at -created_at title -title price -price"`
	Page       int    `query:"page" validate:"gte=0"`
	Limit      int    `query:"limit" validate:"gte=0,lte=100"`
}

func (q *CourseListQuery) Filter() services.CourseFilter {
	return services.CourseFilter{
		CategoryID:   q.Category,
		InstructorID: q.Instructor,
		Level:        q.Level,
		IsFeatured:   q.IsFeatured,
		Search:       q.Search,
		Ordering:     q.Ordering,
		Page:         services.NewPage(q.Page, q.Limit),
	}
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Icon        string `json:"icon" validate:"max=50"`
}

type CourseCreateRequest struct {
	Title         *string  `json:"title" validate:"required,min=1,max=200"`
	Description   *string  `json:"description"`
	ThumbnailURL  *string  `json:"thumbnail_url" validate:"omitempty,url"`
	CategoryID    *uint    `json:"category_id"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	IsFeatured    *bool    `json:"is_featured"`
	IsPublished   *bool    `json:"is_published"`
	DurationHours *int     `json:"duration_hours" validate:"omitempty,gte=0"`
	Level         *string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
}

type CourseUpdateRequest struct {
	Title         *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string  `json:"description"`
	ThumbnailURL  *string  `json:"thumbnail_url" validate:"omitempty,url"`
	CategoryID    *uint    `json:"category_id"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	IsFeatured    *bool    `json:"is_featured"`
	IsPublished   *bool    `json:"is_published"`
	DurationHours *int     `json:"duration_hours" validate:"omitempty,gte=0"`
	Level         *string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
}

func (r *CourseCreateRequest) Input() services.CourseInput {
	return services.CourseInput{
		Title: r.Title, Description: r.Description, ThumbnailURL: r.ThumbnailURL,
		CategoryID: r.CategoryID, Price: r.Price, IsFeatured: r.IsFeatured,
		IsPublished: r.IsPublished, DurationHours: r.DurationHours, Level: r.Level,
	}
}

func (r *CourseUpdateRequest) Input() services.CourseInput {
	return services.CourseInput{
		Title: r.Title, Description: r.Description, ThumbnailURL: r.ThumbnailURL,
		CategoryID: r.CategoryID, Price: r.Price, IsFeatured: r.IsFeatured,
		IsPublished: r.IsPublished, DurationHours: r.DurationHours, Level: r.Level,
	}
}

type LessonCreateRequest struct {
	Title           *string `json:"title" validate:"required,min=1,max=200"`
	Description     *string `json:"description"`
	VideoURL        *string `json:"video_url" validate:"omitempty,url"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	OrderIndex      *int    `json:"order_index" validate:"omitempty,gte=0"`
	IsFree          *bool   `json:"is_free"`
}

type LessonUpdateRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description"`
	VideoURL        *string `json:"video_url" validate:"omitempty,url"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	OrderIndex      *int    `json:"order_index" validate:"omitempty,gte=1"`
	IsFree          *bool   `json:"is_free"`
}

func (r *LessonCreateRequest) Input() services.LessonInput {
	return services.LessonInput{
		Title: r.Title, Description: r.Description, VideoURL: r.VideoURL,
		DurationMinutes: r.DurationMinutes, OrderIndex: r.OrderIndex, IsFree: r.IsFree,
	}
}

func (r *LessonUpdateRequest) Input() services.LessonInput {
	return services.LessonInput{
		Title: r.Title, Description: r.Description, VideoURL: r.VideoURL,
		DurationMinutes: r.DurationMinutes, OrderIndex: r.OrderIndex, IsFree: r.IsFree,
	}
}

func CourseList() fiber.Handler    { return validators.Query[CourseListQuery](CourseListKey) }
func Category() fiber.Handler      { return validators.Body[CategoryRequest](CategoryKey) }
func CreateCourse() fiber.Handler  { return validators.Body[CourseCreateRequest](CourseCreateKey) }
func UpdateCourse() fiber.Handler  { return validators.Body[CourseUpdateRequest](CourseUpdateKey) }
func CreateLesson() fiber.Handler  { return validators.Body[LessonCreateRequest](LessonCreateKey) }
func UpdateLesson() fiber.Handler  { return validators.Body[LessonUpdateRequest](LessonUpdateKey) }
