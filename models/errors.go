package models

import (
	"errors"
	"fmt"
)

// Error codes used in run reports, API responses and internal error handling.
const (
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeBlockDetected     = "BLOCK_DETECTED"
	ErrCodeExtractionEmpty   = "EXTRACTION_EMPTY"
	ErrCodeMediaResolution   = "MEDIA_RESOLUTION_FAILED"
	ErrCodeMediaForbidden    = "MEDIA_FORBIDDEN"
	ErrCodeDownloadFailed    = "DOWNLOAD_FAILED"
	ErrCodeExportFailed      = "EXPORT_FAILED"
	ErrCodeBrowserCrash      = "BROWSER_CRASH"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in reports and API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the outermost ScrapeError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// AsScrapeError returns err as a *ScrapeError, wrapping foreign errors as internal.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}
