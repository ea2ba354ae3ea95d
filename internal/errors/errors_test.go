package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
)

func TestPipelineErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *apperrors.PipelineError
		want string
	}{
		{
			name: "without cause",
			err:  apperrors.NewDownloadTimeoutError("no attendance data file downloaded"),
			want: "[DOWNLOAD_TIMEOUT] no attendance data file downloaded",
		},
		{
			name: "with cause",
			err:  apperrors.NewNavigationError("failed to load login page", errors.New("net::ERR_TIMED_OUT")),
			want: "[NAVIGATION] failed to load login page: net::ERR_TIMED_OUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("chrome exited unexpectedly")
	err := apperrors.NewSessionInitError("failed to start browser", cause)

	assert.True(t, errors.Is(err, cause))

	var perr *apperrors.PipelineError
	assert.True(t, errors.As(fmt.Errorf("pipeline run: %w", err), &perr))
	assert.Equal(t, apperrors.ReasonSessionInit, perr.Reason)
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.FailureReason
	}{
		{"nil", nil, ""},
		{"pipeline error", apperrors.NewAuthenticationError("login failed", nil), apperrors.ReasonAuthentication},
		{"wrapped pipeline error", fmt.Errorf("run: %w", apperrors.NewMalformedReportError("no identity cell", nil)), apperrors.ReasonMalformedReport},
		{"foreign error", errors.New("boom"), apperrors.ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.ReasonOf(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	err := apperrors.NewAuthenticationError("login failed, check your username and password", nil)
	assert.Equal(t, "login failed, check your username and password", apperrors.UserMessage(err))

	assert.Equal(t, "an unexpected error occurred, please try again later", apperrors.UserMessage(errors.New("segfault")))
	assert.Equal(t, "", apperrors.UserMessage(nil))
}

func TestWithContext(t *testing.T) {
	err := apperrors.NewElementNotFoundError("username field not found", nil).
		WithContext("selector", "#txtId2")

	assert.Equal(t, "#txtId2", err.Context["selector"])
}
