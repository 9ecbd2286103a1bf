// Package pipelineerror defines the typed errors raised by the ingestion
// pipeline. Callers distinguish failure classes with errors.As and render
// user-facing messages from the structured fields.
package pipelineerror

import (
	"fmt"
	"time"
)

// UnsupportedFormatError indicates a document of a MIME type no extractor
// handles.
type UnsupportedFormatError struct {
	MIMEType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format: %s", e.MIMEType)
}

// NewUnsupportedFormatError creates a new UnsupportedFormatError.
func NewUnsupportedFormatError(mimeType string) *UnsupportedFormatError {
	return &UnsupportedFormatError{MIMEType: mimeType}
}

// UnreadableDocumentError indicates a document whose format is supported
// but whose content could not be decoded.
type UnreadableDocumentError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *UnreadableDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable document %s: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("unreadable document %s: %s", e.Filename, e.Reason)
}

func (e *UnreadableDocumentError) Unwrap() error {
	return e.Err
}

// NewUnreadableDocumentError creates a new UnreadableDocumentError.
func NewUnreadableDocumentError(filename, reason string, err error) *UnreadableDocumentError {
	return &UnreadableDocumentError{Filename: filename, Reason: reason, Err: err}
}

// ProviderAuthError indicates a provider rejected the stored credentials.
// Sync aborts the run on this error instead of retrying.
type ProviderAuthError struct {
	Provider   string
	StatusCode int
}

func (e *ProviderAuthError) Error() string {
	return fmt.Sprintf("provider %s rejected credentials (status %d)", e.Provider, e.StatusCode)
}

// NewProviderAuthError creates a new ProviderAuthError.
func NewProviderAuthError(provider string, statusCode int) *ProviderAuthError {
	return &ProviderAuthError{Provider: provider, StatusCode: statusCode}
}

// RateLookupError indicates an exchange rate could not be fetched. The
// converter treats it as a signal to mark the transaction unconverted,
// never as a reason to fail ingestion.
type RateLookupError struct {
	Base  string
	Quote string
	Date  time.Time
	Err   error
}

func (e *RateLookupError) Error() string {
	return fmt.Sprintf("rate lookup %s/%s on %s failed: %v",
		e.Base, e.Quote, e.Date.Format("2006-01-02"), e.Err)
}

func (e *RateLookupError) Unwrap() error {
	return e.Err
}

// NewRateLookupError creates a new RateLookupError.
func NewRateLookupError(base, quote string, date time.Time, err error) *RateLookupError {
	return &RateLookupError{Base: base, Quote: quote, Date: date, Err: err}
}

// QuotaExhaustedError indicates the monthly AI quota has no calls left.
type QuotaExhaustedError struct {
	UserID string
	Month  string
	Limit  int
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("AI quota exhausted for user %s in %s (limit %d)", e.UserID, e.Month, e.Limit)
}

// NewQuotaExhaustedError creates a new QuotaExhaustedError.
func NewQuotaExhaustedError(userID, month string, limit int) *QuotaExhaustedError {
	return &QuotaExhaustedError{UserID: userID, Month: month, Limit: limit}
}

// ExtractionError indicates the AI fallback failed to produce a usable
// result: transport failure, malformed response, or empty output.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("AI extraction failed at %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(stage string, err error) *ExtractionError {
	return &ExtractionError{Stage: stage, Err: err}
}
