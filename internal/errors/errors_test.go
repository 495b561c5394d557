package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"golift.io/starr"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"wrapped transient", fmt.Errorf("queue: %w", NewTransient("get queue", errors.New("boom"))), true},
		{"deadline", context.DeadlineExceeded, true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"vendor 503", &starr.ReqError{Code: http.StatusServiceUnavailable}, true},
		{"vendor 404", &starr.ReqError{Code: http.StatusNotFound}, false},
		{"non retryable wins", NewNonRetryableError("bad key", context.DeadlineExceeded), false},
		{"plain", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("sonarr", "4K", "missing api key")

	assert.True(t, IsConfiguration(err))
	assert.True(t, errors.Is(err, ErrInstanceNotConfigured))
	assert.Equal(t, `sonarr instance "4K": missing api key`, err.Error())
	assert.Equal(t, "radarr: not configured", NewConfigurationError("radarr", "", "not configured").Error())
}

func TestNonRetryable(t *testing.T) {
	cause := errors.New("unauthorized")
	err := NewNonRetryableError("check connection", cause)

	assert.True(t, IsNonRetryable(fmt.Errorf("wrapped: %w", err)))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "check connection: unauthorized", err.Error())
	assert.False(t, IsNonRetryable(cause))
}
