package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies worker failures for propagation and retry decisions
type ErrorType string

const (
	// ErrorTypeFetch represents page or webhook transport errors
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParsePage represents a page whose expected structure is absent
	ErrorTypeParsePage ErrorType = "parse_page"
	// ErrorTypeParseEntry represents a single malformed listing entry
	ErrorTypeParseEntry ErrorType = "parse_entry"
	// ErrorTypeRateLimit represents a source-imposed request block
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStore represents deduplication store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeNotify represents notification delivery errors
	ErrorTypeNotify ErrorType = "notify"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// WorkerError is the error type carried across component boundaries.
// Transient marks failures worth retrying (timeouts, 5xx, connection resets);
// everything else surfaces immediately.
type WorkerError struct {
	Type      ErrorType
	Source    string
	Message   string
	Err       error
	Transient bool
	Time      time.Time
}

// Error implements the error interface
func (e *WorkerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *WorkerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the operation may succeed on a later attempt
func (e *WorkerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeNotify:
		return e.Transient
	default:
		return false
	}
}

// New creates a new WorkerError
func New(errType ErrorType, source, message string, err error) *WorkerError {
	return &WorkerError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a fetch error; transient selects retry eligibility
func NewFetch(source, message string, err error, transient bool) *WorkerError {
	e := New(ErrorTypeFetch, source, message, err)
	e.Transient = transient
	return e
}

// NewParsePage creates a page-level parsing error
func NewParsePage(source, message string, err error) *WorkerError {
	return New(ErrorTypeParsePage, source, message, err)
}

// NewParseEntry creates an entry-level parsing error
func NewParseEntry(source, message string, err error) *WorkerError {
	return New(ErrorTypeParseEntry, source, message, err)
}

// NewRateLimit creates a rate limit error
func NewRateLimit(source string, duration time.Duration) *WorkerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewStore creates a store error
func NewStore(source, message string, err error) *WorkerError {
	return New(ErrorTypeStore, source, message, err)
}

// NewNotify creates a notification delivery error
func NewNotify(source, message string, err error, transient bool) *WorkerError {
	e := New(ErrorTypeNotify, source, message, err)
	e.Transient = transient
	return e
}

// NewConfiguration creates a configuration error
func NewConfiguration(message string, err error) *WorkerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsRetryable reports whether err (or any error it wraps) is a retryable
// WorkerError. Unknown error values are treated as retryable so plain
// transport errors from the standard library still get bounded retries.
func IsRetryable(err error) bool {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.IsRetryable()
	}
	return err != nil
}

// IsType reports whether err wraps a WorkerError of the given type
func IsType(err error, errType ErrorType) bool {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Type == errType
	}
	return false
}
