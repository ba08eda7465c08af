package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models/course"
)

// ReconcileStore is everything the reconciliation engine reads and writes.
// Methods taking tx run inside the transaction opened by Transaction.
type ReconcileStore interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	FindEnrollmentID(ctx context.Context, userID, courseID uint) (uint, bool, error)
	ListEnrollmentIDs(ctx context.Context, incompleteOnly bool) ([]uint, error)
	ListCourseEnrollmentIDs(ctx context.Context, courseID uint) ([]uint, error)
	LockEnrollment(tx *gorm.DB, enrollmentID uint) (*course.Enrollment, error)
	CountLessons(tx *gorm.DB, courseID uint) (int64, error)
	CountCompletedLessons(tx *gorm.DB, userID, courseID uint) (int64, error)
	SaveEnrollment(tx *gorm.DB, enrollment *course.Enrollment) error
}

// Reconciler recomputes enrollment progress from the persisted lesson progress.
// At most one reconciliation runs per enrollment at a time: the keyed lock
// serialises callers and the row lock inside the transaction covers writers
// that bypass this process.
type Reconciler struct {
	store  ReconcileStore
	locker Locker
	now    func() time.Time
	log    *logger.Logger
}

func NewReconciler(store ReconcileStore, locker Locker, log *logger.Logger) *Reconciler {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Reconciler{
		store:  store,
		locker: locker,
		now:    time.Now,
		log:    log.With("service", "Reconciler"),
	}
}

// ComputePercentage returns floor(100*completed/total), 0 for an empty course.
func ComputePercentage(completed, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(completed * 100 / total)
}

// applyProgress stores pct and stamps CompletedAt the first time pct hits 100.
// CompletedAt is never cleared. Reports whether the stamp happened now.
func applyProgress(enrollment *course.Enrollment, pct int, now time.Time) bool {
	enrollment.ProgressPercentage = pct
	if pct == 100 && enrollment.CompletedAt == nil {
		stamp := now.UTC()
		enrollment.CompletedAt = &stamp
		return true
	}
	return false
}

func enrollmentLockKey(enrollmentID uint) string {
	return "enrollment:" + strconv.FormatUint(uint64(enrollmentID), 10)
}

// Reconcile recomputes and persists one enrollment. The enrollment is saved even
// when nothing changed.
func (r *Reconciler) Reconcile(ctx context.Context, enrollmentID uint) (*course.Enrollment, error) {
	start := time.Now()
	defer func() { reconcileDuration.Observe(time.Since(start).Seconds()) }()

	unlock, err := r.locker.Lock(ctx, enrollmentLockKey(enrollmentID))
	reconcileLockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		reconcileTotal.WithLabelValues("lock_error").Inc()
		return nil, fmt.Errorf("lock enrollment %d: %w", enrollmentID, err)
	}
	defer unlock()

	var (
		result  *course.Enrollment
		stamped bool
	)
	err = r.store.Transaction(ctx, func(tx *gorm.DB) error {
		enrollment, err := r.store.LockEnrollment(tx, enrollmentID)
		if err != nil {
			return err
		}

		total, err := r.store.CountLessons(tx, enrollment.CourseID)
		if err != nil {
			return fmt.Errorf("count lessons: %w", err)
		}
		var completed int64
		if total > 0 {
			completed, err = r.store.CountCompletedLessons(tx, enrollment.UserID, enrollment.CourseID)
			if err != nil {
				return fmt.Errorf("count completed lessons: %w", err)
			}
		}

		stamped = applyProgress(enrollment, ComputePercentage(completed, total), r.now())
		if err := r.store.SaveEnrollment(tx, enrollment); err != nil {
			return fmt.Errorf("save enrollment: %w", err)
		}
		result = enrollment
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			reconcileTotal.WithLabelValues("missing").Inc()
		} else {
			reconcileTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	reconcileTotal.WithLabelValues("ok").Inc()
	if stamped {
		enrollmentCompletions.Inc()
		r.log.Info("Enrollment completed", "enrollment_id", result.ID, "user_id", result.UserID, "course_id", result.CourseID)
	}
	return result, nil
}

// ReconcileFor reconciles the enrollment of userID in courseID. A missing
// enrollment, including one removed while waiting for the lock, is a no-op and
// returns (nil, nil).
func (r *Reconciler) ReconcileFor(ctx context.Context, userID, courseID uint) (*course.Enrollment, error) {
	enrollmentID, ok, err := r.store.FindEnrollmentID(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	enrollment, err := r.Reconcile(ctx, enrollmentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return enrollment, err
}

// Sweep reconciles every enrollment that has not completed yet. Failures are
// logged and counted; the sweep carries on with the next enrollment.
func (r *Reconciler) Sweep(ctx context.Context) (reconciled, failed int, err error) {
	ids, err := r.store.ListEnrollmentIDs(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	return r.reconcileAll(ctx, ids)
}

// ReconcileCourse reconciles every enrollment of a course, used after the
// course's lesson set changes.
func (r *Reconciler) ReconcileCourse(ctx context.Context, courseID uint) (reconciled, failed int, err error) {
	ids, err := r.store.ListCourseEnrollmentIDs(ctx, courseID)
	if err != nil {
		return 0, 0, err
	}
	return r.reconcileAll(ctx, ids)
}

func (r *Reconciler) reconcileAll(ctx context.Context, ids []uint) (reconciled, failed int, err error) {
	for _, id := range ids {
		if ctx.Err() != nil {
			return reconciled, failed, ctx.Err()
		}
		if _, err := r.Reconcile(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			failed++
			r.log.Warn("Reconcile failed", "enrollment_id", id, "error", err)
			continue
		}
		reconciled++
	}
	return reconciled, failed, nil
}
