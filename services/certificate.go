package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models"
	"scholar/models/course"
)

// CertificateNotifier is told about newly issued certificates.
type CertificateNotifier interface {
	CertificateIssued(ctx context.Context, user *models.User, c *course.Course, cert *course.Certificate) error
}

// Certificates issues one certificate per completed enrollment.
type Certificates struct {
	db       *gorm.DB
	ledger   *Ledger
	notifier CertificateNotifier
	now      func() time.Time
	log      *logger.Logger
}

func NewCertificates(db *gorm.DB, ledger *Ledger, notifier CertificateNotifier, log *logger.Logger) *Certificates {
	return &Certificates{db: db, ledger: ledger, notifier: notifier, now: time.Now, log: log.With("service", "Certificates")}
}

func certificatePath(number string) string {
	return "/api/certificates/verify/" + number
}

// Issue returns the user's certificate for the course, creating it when the
// enrollment is complete. created is false when one already existed.
func (s *Certificates) Issue(ctx context.Context, user *models.User, courseID uint) (*course.Certificate, bool, error) {
	enrollment, err := s.ledger.Find(ctx, user.ID, courseID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, false, apperr.ErrNotEnrolled
		}
		return nil, false, err
	}

	if existing, err := s.find(ctx, "user_id = ? AND course_id = ?", user.ID, courseID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	if enrollment.CompletedAt == nil {
		return nil, false, apperr.ValidationField("course", "complete the course first")
	}

	number := strings.ToUpper(uuid.NewString())
	cert := &course.Certificate{
		UserID:            user.ID,
		CourseID:          courseID,
		CertificateNumber: number,
		CertificateURL:    certificatePath(number),
		IssuedAt:          s.now().UTC(),
		IsValid:           true,
	}
	if err := s.db.WithContext(ctx).Create(cert).Error; err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.find(ctx, "user_id = ? AND course_id = ?", user.ID, courseID)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create certificate: %w", err)
	}
	cert.Course = enrollment.Course
	s.log.Info("Certificate issued", "user_id", user.ID, "course_id", courseID, "certificate_number", number)

	if s.notifier != nil {
		go s.notify(*user, enrollment.Course, *cert)
	}
	return cert, true, nil
}

func (s *Certificates) notify(user models.User, c *course.Course, cert course.Certificate) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.notifier.CertificateIssued(ctx, &user, c, &cert); err != nil {
		s.log.Error("Certificate email failed", "user_id", user.ID, "certificate_number", cert.CertificateNumber, "error", err)
	}
}

func (s *Certificates) List(ctx context.Context, userID uint) ([]course.Certificate, error) {
	var certs []course.Certificate
	err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).Order("issued_at DESC").
		Find(&certs).Error
	return certs, err
}

func (s *Certificates) Get(ctx context.Context, userID, id uint) (*course.Certificate, error) {
	return s.find(ctx, "id = ? AND user_id = ?", id, userID)
}

// Verify looks a certificate up by its public number.
func (s *Certificates) Verify(ctx context.Context, number string) (*course.Certificate, error) {
	return s.find(ctx, "certificate_number = ?", strings.ToUpper(strings.TrimSpace(number)))
}

func (s *Certificates) find(ctx context.Context, query string, args ...interface{}) (*course.Certificate, error) {
	var cert course.Certificate
	err := s.db.WithContext(ctx).Preload("Course").Where(query, args...).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Certificate")
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &cert, nil
}
