// Package errors defines the failure taxonomy for the attendance pipeline.
// Every expected failure mode collapses to a PipelineError carrying an
// enumerated reason plus a free-text diagnostic; panics are reserved for
// programming errors only.
package errors

import (
	"errors"
	"fmt"
)

// FailureReason identifies which part of the pipeline failed.
type FailureReason string

const (
	ReasonSessionInit       FailureReason = "SESSION_INIT"
	ReasonNavigation        FailureReason = "NAVIGATION"
	ReasonElementNotFound   FailureReason = "ELEMENT_NOT_FOUND"
	ReasonInputVerification FailureReason = "INPUT_VERIFICATION"
	ReasonAuthentication    FailureReason = "AUTHENTICATION_FAILED"
	ReasonExportControl     FailureReason = "EXPORT_CONTROL_NOT_FOUND"
	ReasonDownloadTimeout   FailureReason = "DOWNLOAD_TIMEOUT"
	ReasonMalformedReport   FailureReason = "MALFORMED_REPORT"
	ReasonUnknown           FailureReason = "UNKNOWN"
)

// PipelineError is the application error type for the scraping pipeline.
type PipelineError struct {
	Reason  FailureReason
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Reason, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with PipelineError.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithContext attaches a diagnostic key/value to the error.
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a PipelineError with the given reason.
func New(reason FailureReason, message string, cause error) *PipelineError {
	return &PipelineError{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

// Helper constructors for the common failure modes.

func NewSessionInitError(message string, cause error) *PipelineError {
	return New(ReasonSessionInit, message, cause)
}

func NewNavigationError(message string, cause error) *PipelineError {
	return New(ReasonNavigation, message, cause)
}

func NewElementNotFoundError(message string, cause error) *PipelineError {
	return New(ReasonElementNotFound, message, cause)
}

func NewInputVerificationError(message string) *PipelineError {
	return New(ReasonInputVerification, message, nil)
}

func NewAuthenticationError(message string, cause error) *PipelineError {
	return New(ReasonAuthentication, message, cause)
}

func NewExportControlError(message string, cause error) *PipelineError {
	return New(ReasonExportControl, message, cause)
}

func NewDownloadTimeoutError(message string) *PipelineError {
	return New(ReasonDownloadTimeout, message, nil)
}

func NewMalformedReportError(message string, cause error) *PipelineError {
	return New(ReasonMalformedReport, message, cause)
}

// ReasonOf extracts the failure reason from an error chain. Errors that are
// not PipelineErrors are unexpected by definition and map to ReasonUnknown.
func ReasonOf(err error) FailureReason {
	if err == nil {
		return ""
	}
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Reason
	}
	return ReasonUnknown
}

// UserMessage returns the human-readable diagnostic for an error, suitable
// for presenting to the end user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Message
	}
	return "an unexpected error occurred, please try again later"
}
