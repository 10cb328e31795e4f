package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := &Error{Type: ErrorTypeServerError, Message: "bad gateway", Code: 502}
	assert.Equal(t, "server_error error (code 502): bad gateway", err.Error())

	wrapped := Wrap(ErrorTypeConfig, "missing registry", fmt.Errorf("open data/hashtag_set.json"))
	assert.Equal(t, "config error: missing registry: open data/hashtag_set.json", wrapped.Error())
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", fmt.Errorf("boom"), false},
		{"config", New(ErrorTypeConfig, "no api key"), true},
		{"auth wrapped", fmt.Errorf("failed to fetch batch: %w", New(ErrorTypeAuth, "key rejected")), true},
		{"network", New(ErrorTypeNetwork, "reset"), false},
		{"not found", New(ErrorTypeNotFound, "gone"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestFromStatusCode(t *testing.T) {
	assert.Equal(t, ErrorTypeAuth, FromStatusCode(403))
	assert.Equal(t, ErrorTypeNotFound, FromStatusCode(404))
	assert.Equal(t, ErrorTypeRateLimit, FromStatusCode(429))
	assert.Equal(t, ErrorTypeServerError, FromStatusCode(503))
	assert.Equal(t, ErrorTypeNetwork, FromStatusCode(0))
	assert.Equal(t, ErrorTypeUnknown, FromStatusCode(418))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrorTypeRateLimit))
	assert.True(t, IsTransient(ErrorTypeTimeout))
	assert.False(t, IsTransient(ErrorTypeParsing))
	assert.False(t, IsTransient(ErrorTypeConfig))
	assert.False(t, IsTransient(ErrorTypeAuth))
}
