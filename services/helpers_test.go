package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scholar/database"
	"scholar/logger"
	"scholar/models"
	"scholar/models/course"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scholar.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

type fixture struct {
	db         *gorm.DB
	log        *logger.Logger
	ledger     *Ledger
	reconciler *Reconciler
	tracker    *Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	ledger := NewLedger(db, log)
	reconciler := NewReconciler(ledger, NewKeyedMutex(), log)
	return &fixture{
		db:         db,
		log:        log,
		ledger:     ledger,
		reconciler: reconciler,
		tracker:    NewTracker(db, ledger, reconciler, log),
	}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Username: email, Role: models.RoleStudent, IsActive: true}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) instructor(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Username: email, Role: models.RoleInstructor, IsActive: true}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// course creates a published course with one lesson per duration (minutes).
func (f *fixture) course(t *testing.T, instructorID uint, published bool, durations ...int) (*course.Course, []course.Lesson) {
	t.Helper()
	c := &course.Course{Title: "Go in Practice", InstructorID: instructorID, IsPublished: published, Level: course.LevelBeginner}
	require.NoError(t, f.db.Create(c).Error)
	if !published {
		require.NoError(t, f.db.Model(c).Update("is_published", false).Error)
	}

	lessons := make([]course.Lesson, 0, len(durations))
	for i, minutes := range durations {
		l := course.Lesson{
			CourseID:        c.ID,
			Title:           fmt.Sprintf("Lesson %d", i+1),
			DurationMinutes: minutes,
			OrderIndex:      i + 1,
		}
		require.NoError(t, f.db.Create(&l).Error)
		lessons = append(lessons, l)
	}
	return c, lessons
}

func (f *fixture) enroll(t *testing.T, userID, courseID uint) *course.Enrollment {
	t.Helper()
	e, err := f.ledger.Enroll(context.Background(), userID, courseID)
	require.NoError(t, err)
	return e
}

func (f *fixture) enrollment(t *testing.T, id uint) course.Enrollment {
	t.Helper()
	var e course.Enrollment
	require.NoError(t, f.db.First(&e, id).Error)
	return e
}
