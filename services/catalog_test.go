package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholar/apperr"
	"scholar/models"
	"scholar/models/course"
)

func ptr[T any](v T) *T { return &v }

func TestCatalogPublishedFilters(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalog(f.db, f.reconciler, f.log)
	ctx := context.Background()
	tutor := f.instructor(t, "grace@example.com")

	cat := &course.Category{Name: "Programming"}
	require.NoError(t, catalog.CreateCategory(ctx, cat))

	goCourse, err := catalog.CreateCourse(ctx, tutor.ID, CourseInput{
		Title: ptr("Concurrency in Go"), Description: ptr("channels and goroutines"),
		CategoryID: &cat.ID, Price: ptr(20.0), IsPublished: ptr(true), IsFeatured: ptr(true),
	})
	require.NoError(t, err)
	_, err = catalog.CreateCourse(ctx, tutor.ID, CourseInput{Title: ptr("Algebra"), Price: ptr(5.0), IsPublished: ptr(true), Level: ptr(course.LevelAdvanced)})
	require.NoError(t, err)
	_, err = catalog.CreateCourse(ctx, tutor.ID, CourseInput{Title: ptr("Draft")})
	require.NoError(t, err)

	all, total, err := catalog.Published(ctx, CourseFilter{Ordering: "price", Page: NewPage(1, 10)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, "Algebra", all[0].Title)

	found, _, err := catalog.Published(ctx, CourseFilter{Search: "GOROUTINE", Page: NewPage(1, 10)})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, goCourse.ID, found[0].ID)

	byCat, _, err := catalog.Published(ctx, CourseFilter{CategoryID: &cat.ID, Page: NewPage(1, 10)})
	require.NoError(t, err)
	assert.Len(t, byCat, 1)

	advanced, _, err := catalog.Published(ctx, CourseFilter{Level: course.LevelAdvanced, Page: NewPage(1, 10)})
	require.NoError(t, err)
	assert.Len(t, advanced, 1)

	featured, err := catalog.Featured(ctx)
	require.NoError(t, err)
	assert.Len(t, featured, 1)

	_, err = catalog.CreateCourse(ctx, tutor.ID, CourseInput{Title: ptr("Bad"), CategoryID: ptr(uint(999))})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCatalogInstructorOwnership(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalog(f.db, f.reconciler, f.log)
	ctx := context.Background()
	grace := f.instructor(t, "grace@example.com")
	alan := f.instructor(t, "alan@example.com")

	c, err := catalog.CreateCourse(ctx, grace.ID, CourseInput{Title: ptr("Compilers")})
	require.NoError(t, err)
	assert.False(t, c.IsPublished)

	_, err = catalog.PublishedDetail(ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = catalog.UpdateCourse(ctx, alan.ID, c.ID, CourseInput{IsPublished: ptr(true)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := catalog.UpdateCourse(ctx, grace.ID, c.ID, CourseInput{IsPublished: ptr(true), Price: ptr(0.0)})
	require.NoError(t, err)
	assert.True(t, updated.IsPublished)

	detail, err := catalog.PublishedDetail(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, detail.TotalLessons)

	unpublished, err := catalog.UpdateCourse(ctx, grace.ID, c.ID, CourseInput{IsPublished: ptr(false)})
	require.NoError(t, err)
	assert.False(t, unpublished.IsPublished)

	assert.ErrorIs(t, catalog.DeleteCourse(ctx, alan.ID, c.ID), apperr.ErrNotFound)
	require.NoError(t, catalog.DeleteCourse(ctx, grace.ID, c.ID))
	_, err = catalog.InstructorCourse(ctx, grace.ID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateLessonOrderIndex(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalog(f.db, f.reconciler, f.log)
	ctx := context.Background()
	tutor := f.instructor(t, "grace@example.com")
	c, err := catalog.CreateCourse(ctx, tutor.ID, CourseInput{Title: ptr("Networks"), IsPublished: ptr(true)})
	require.NoError(t, err)

	first, err := catalog.CreateLesson(ctx, tutor.ID, c.ID, LessonInput{Title: ptr("Intro"), DurationMinutes: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 1, first.OrderIndex)

	explicit, err := catalog.CreateLesson(ctx, tutor.ID, c.ID, LessonInput{Title: ptr("Deep dive"), OrderIndex: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, explicit.OrderIndex)

	next, err := catalog.CreateLesson(ctx, tutor.ID, c.ID, LessonInput{Title: ptr("Wrap up"), OrderIndex: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 11, next.OrderIndex)

	_, err = catalog.CreateLesson(ctx, tutor.ID, c.ID, LessonInput{Title: ptr("Clash"), OrderIndex: ptr(10)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	other := f.instructor(t, "alan@example.com")
	_, err = catalog.CreateLesson(ctx, other.ID, c.ID, LessonInput{Title: ptr("Intruder")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	lessons, err := catalog.Lessons(ctx, tutor.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	assert.Equal(t, []int{1, 10, 11}, []int{lessons[0].OrderIndex, lessons[1].OrderIndex, lessons[2].OrderIndex})
}

func TestLessonChangesReconcileEnrollments(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalog(f.db, f.reconciler, f.log)
	ctx := context.Background()
	tutor := f.instructor(t, "grace@example.com")
	student := f.user(t, "ada@example.com")
	c, lessons := f.course(t, tutor.ID, true, 10, 10)
	e := f.enroll(t, student.ID, c.ID)

	_, err := f.tracker.MarkComplete(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, f.enrollment(t, e.ID).ProgressPercentage)

	require.NoError(t, catalog.DeleteLesson(ctx, tutor.ID, lessons[1].ID))
	assert.Equal(t, 100, f.enrollment(t, e.ID).ProgressPercentage)

	_, err = catalog.CreateLesson(ctx, tutor.ID, c.ID, LessonInput{Title: ptr("More"), DurationMinutes: ptr(3)})
	require.NoError(t, err)
	got := f.enrollment(t, e.ID)
	assert.Equal(t, 50, got.ProgressPercentage)
	assert.NotNil(t, got.CompletedAt)

	// doubling the duration drops the first lesson below the threshold
	_, err = catalog.UpdateLesson(ctx, tutor.ID, lessons[0].ID, LessonInput{DurationMinutes: ptr(20)})
	require.NoError(t, err)
	assert.Equal(t, 0, f.enrollment(t, e.ID).ProgressPercentage)
}

func TestDashboardCourseStats(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalog(f.db, f.reconciler, f.log)
	dashboard := NewDashboard(f.db, catalog)
	ctx := context.Background()
	tutor := f.instructor(t, "grace@example.com")
	c, lessons := f.course(t, tutor.ID, true, 10, 10)

	students := []*models.User{f.user(t, "a@example.com"), f.user(t, "b@example.com")}
	for _, s := range students {
		f.enroll(t, s.ID, c.ID)
	}
	for _, l := range lessons {
		_, err := f.tracker.MarkComplete(ctx, students[0].ID, l.ID)
		require.NoError(t, err)
	}

	stats, err := dashboard.CourseStats(ctx, tutor.ID, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalLessons)
	assert.EqualValues(t, 2, stats.TotalEnrollments)
	assert.EqualValues(t, 1, stats.CompletedEnrollments)
	assert.InDelta(t, 50.0, stats.AverageProgress, 0.001)
	assert.EqualValues(t, 2, stats.EnrollmentsThisMonth)
	assert.EqualValues(t, 1, stats.CompletionsThisMonth)

	dashboard.now = func() time.Time { return time.Now().AddDate(0, 2, 0) }
	later, err := dashboard.CourseStats(ctx, tutor.ID, c.ID)
	require.NoError(t, err)
	assert.Zero(t, later.EnrollmentsThisMonth)
	assert.Zero(t, later.CompletionsThisMonth)

	other := f.instructor(t, "alan@example.com")
	_, err = dashboard.CourseStats(ctx, other.ID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func (r *recordingNotifier) CertificateIssued(_ context.Context, user *models.User, _ *course.Course, cert *course.Certificate) error {
	r.mu.Lock()
	r.calls = append(r.calls, user.Email+":"+cert.CertificateNumber)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestCertificateIssue(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{done: make(chan struct{}, 1)}
	certs := NewCertificates(f.db, f.ledger, notifier, f.log)
	ctx := context.Background()
	tutor := f.instructor(t, "grace@example.com")
	student := f.user(t, "ada@example.com")
	c, lessons := f.course(t, tutor.ID, true, 10)

	_, _, err := certs.Issue(ctx, student, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotEnrolled)

	f.enroll(t, student.ID, c.ID)
	_, _, err = certs.Issue(ctx, student, c.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.tracker.MarkComplete(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)

	cert, created, err := certs.Issue(ctx, student, c.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, cert.IsValid)
	assert.Contains(t, cert.CertificateURL, cert.CertificateNumber)

	select {
	case <-notifier.done:
	case <-time.After(5 * time.Second):
		t.Fatal("notifier was not called")
	}

	again, created, err := certs.Issue(ctx, student, c.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cert.ID, again.ID)

	verified, err := certs.Verify(ctx, cert.CertificateNumber)
	require.NoError(t, err)
	assert.Equal(t, cert.ID, verified.ID)
	require.NotNil(t, verified.Course)

	_, err = certs.Verify(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := certs.List(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = certs.Get(ctx, tutor.ID, cert.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
