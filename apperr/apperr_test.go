package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrNotEnrolled, http.StatusForbidden},
		{ErrForbidden, http.StatusForbidden},
		{ErrAlreadyEnrolled, http.StatusBadRequest},
		{ValidationField("email", "Email already registered"), http.StatusBadRequest},
		{ErrCourseNotAvailable, http.StatusNotFound},
		{NotFound("Lesson"), http.StatusNotFound},
		{ErrMalformedHeader, http.StatusUnauthorized},
		{ErrInvalidSignature, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, Status(tc.err), "status for %v", tc.err)
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	cause := errors.New("signature mismatch")
	err := fmt.Errorf("authenticate: %w", Wrap(ErrInvalidSignature, cause))

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTokenExpired)
	assert.True(t, IsAuthFailure(err))
	assert.False(t, IsAuthFailure(ErrNotEnrolled))
	assert.Equal(t, KindInternal, KindOf(cause))
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("Enrollment")
	assert.Equal(t, "Enrollment not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
