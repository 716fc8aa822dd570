package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"password parameter", "host=localhost password=secret123 dbname=test", "host=localhost password=[REDACTED] dbname=test"},
		{"uppercase password", "host=localhost PASSWORD=secret123", "host=localhost PASSWORD=[REDACTED]"},
		{"url credentials", "postgres://rules:hunter2@db:5432/rules", "postgres://[REDACTED]@[REDACTED]/rules"},
		{"at sign in password", "postgresql://user:p@ssw0rd!@#@localhost:5432/dbname", "postgresql://[REDACTED]@[REDACTED]/dbname"},
		{"endpoint without credentials", "http://localhost:9000", "http://localhost:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeConnectionString(tt.input))
		})
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"password in error", errors.New("connect failed: password=topsecret"), "connect failed: password=[REDACTED]"},
		{"bearer token", errors.New("401 for Bearer sk-abc.def.ghi"), "401 for Bearer [REDACTED]"},
		{"api key", errors.New("request api_key=ABCDEFGHIJKLMNOPQRSTUV failed"), "request api_key=[REDACTED] failed"},
		{"short key kept", errors.New("key=abc"), "key=abc"},
		{"redis url", errors.New("dial redis://default:pw@cache:6379 refused"), "dial redis://[REDACTED]@[REDACTED] refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeError(tt.err))
		})
	}
}

func TestTruncatePattern(t *testing.T) {
	short := `(?i)^account[ _-]?id$`
	assert.Equal(t, short, TruncatePattern(short))

	long := strings.Repeat("a", MaxPatternLogLength+10)
	got := TruncatePattern(long)
	assert.Len(t, got, MaxPatternLogLength+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("local", "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewLogger("production", "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	_, err = NewLogger("local", "loud")
	assert.Error(t, err)
}
