package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"user_id", 7,
		"refresh_token", "eyJ.abc.def",
		"Password", "hunter22",
		"dangling",
	})

	assert.Equal(t, []interface{}{
		"user_id", 7,
		"refresh_token", "[REDACTED]",
		"Password", "[REDACTED]",
		"dangling",
	}, out)
}

func TestNewNopDoesNotPanic(t *testing.T) {
	log := NewNop().With("component", "test")
	log.Info("hello", "token", "x")
	log.Sync()
}
