package models

import "fmt"

// Error codes used in API responses, error records and internal error handling.
const (
	ErrCodeTimeout            = "SCRAPE_TIMEOUT"
	ErrCodeNavigation         = "NAVIGATION_FAILED"
	ErrCodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeStorage            = "STORAGE_FAILED"
	ErrCodeNotify             = "NOTIFY_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"

	// Static fetch failure codes, carried in ErrorRecord.Code.
	ErrCodeDNS           = "DNS_LOOKUP_FAILED"
	ErrCodeHTTPStatus    = "HTTP_ERROR"
	ErrCodeTooManyRedirs = "TOO_MANY_REDIRECTS"
	ErrCodeFetch         = "FETCH_FAILED"
)

// Phase identifies the pipeline stage that produced an ErrorRecord.
type Phase string

const (
	PhaseFetch         Phase = "fetch"
	PhaseStaticScrape  Phase = "static_scrape"
	PhaseRender        Phase = "render"
	PhaseFallback      Phase = "fallback"
	PhaseFallbackError Phase = "fallback_error"
)

// ErrorRecord is a non-fatal failure attached to a ScrapeResult.
type ErrorRecord struct {
	Message string `json:"message"`
	Phase   Phase  `json:"phase"`
	Code    string `json:"code,omitempty"`
	Status  *int   `json:"status,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// ErrorDetail is the structured error in API responses.
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
