// Package errors provides standardized error handling for the application engine.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSessionAcquireFailed ErrorCode = "SESSION_ACQUIRE_FAILED"
	ErrCodeSessionTimeout       ErrorCode = "SESSION_TIMEOUT"
	ErrCodeSessionReleaseFailed ErrorCode = "SESSION_RELEASE_FAILED"

	ErrCodeLoginFailed   ErrorCode = "LOGIN_FAILED"
	ErrCodeSearchFailed  ErrorCode = "SEARCH_FAILED"
	ErrCodeSurfaceError  ErrorCode = "SURFACE_ERROR"
	ErrCodeListingFailed ErrorCode = "LISTING_FAILED"

	ErrCodeFormTimeout           ErrorCode = "FORM_TIMEOUT"
	ErrCodeFormStepLimit         ErrorCode = "FORM_STEP_LIMIT"
	ErrCodeNavigationNotFound    ErrorCode = "NAVIGATION_NOT_FOUND"
	ErrCodeSubmissionUnverified  ErrorCode = "SUBMISSION_UNVERIFIED"
	ErrCodeQuotaRaceLost         ErrorCode = "QUOTA_RACE_LOST"
	ErrCodeClassifierUnavailable ErrorCode = "CLASSIFIER_UNAVAILABLE"

	ErrCodeLedgerQueryFailed  ErrorCode = "LEDGER_QUERY_FAILED"
	ErrCodeLedgerInsertFailed ErrorCode = "LEDGER_INSERT_FAILED"
	ErrCodeQuotaCheckFailed   ErrorCode = "QUOTA_CHECK_FAILED"

	ErrCodeApplicantValidationFailed ErrorCode = "APPLICANT_VALIDATION_FAILED"
	ErrCodeApplicantQueryFailed      ErrorCode = "APPLICANT_QUERY_FAILED"

	ErrCodeExportFailed           ErrorCode = "EXPORT_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSessionAcquireFailedError creates a retryable session acquisition error.
func NewSessionAcquireFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionAcquireFailed,
		Message:   "Failed to acquire an interactive session",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLoginFailedError creates a retryable login error.
func NewLoginFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLoginFailed,
		Message:   "Login to the target surface failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchFailedError creates a retryable job search error.
func NewSearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchFailed,
		Message:   "Job search on the target surface failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassifierUnavailableError records a degraded relevance decision (fail-open).
func NewClassifierUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassifierUnavailable,
		Message:   "Relevance classifier unavailable, proceeding fail-open",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuotaCheckFailedError records a degraded quota decision (fail-open).
func NewQuotaCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaCheckFailed,
		Message:   "Daily quota check failed, proceeding fail-open",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerInsertFailedError creates a reconciliation-gap error: the real-world
// submission already happened and is never rolled back.
func NewLedgerInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerInsertFailed,
		Message:   "Application record write failed after confirmed submission",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicantValidationFailedError creates a non-retryable applicant row error.
func NewApplicantValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicantValidationFailed,
		Message:   "Applicant row failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExportFailedError creates a retryable export error.
func NewExportFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExportFailed,
		Message:   "Applicant export failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for the supervisor loop.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSessionAcquireFailed,
		ErrCodeLedgerQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExportFailed:
		return 3

	case ErrCodeLoginFailed,
		ErrCodeSearchFailed:
		return 2

	default:
		// Business outcomes (quota, abandonment, verification) are never retried.
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
