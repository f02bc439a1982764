package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation represents a missing or malformed payload field
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConstraint represents a database uniqueness conflict at commit time
	ErrorTypeConstraint ErrorType = "constraint"
	// ErrorTypeExtraction represents a field extractor that could not recover a value
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeFatalPage represents a detail page without a title
	ErrorTypeFatalPage ErrorType = "fatal_page"
	// ErrorTypeTransport represents network failures talking to the API
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeBrowser represents browser session failures
	ErrorTypeBrowser ErrorType = "browser"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeConflict represents a request that clashes with current state
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeNotFound represents a missing entity
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// AppError represents a classified application error
type AppError struct {
	Type      ErrorType
	Component string
	Message   string
	Fields    map[string]string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg = msg + " (" + strings.Join(parts, "; ") + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, msg)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Type == ErrorTypeTransport
}

// New creates a new AppError
func New(errType ErrorType, component, message string, err error) *AppError {
	return &AppError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewValidation creates a validation error carrying per-field reasons
func NewValidation(component string, fields map[string]string) *AppError {
	e := New(ErrorTypeValidation, component, "invalid payload", nil)
	e.Fields = fields
	return e
}

// NewConstraint creates a new constraint violation error
func NewConstraint(component, message string, err error) *AppError {
	return New(ErrorTypeConstraint, component, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(component, message string, err error) *AppError {
	return New(ErrorTypeExtraction, component, message, err)
}

// NewFatalPage creates an error for a detail page that yields no record
func NewFatalPage(component, url string) *AppError {
	return New(ErrorTypeFatalPage, component, "no title on "+url, nil)
}

// NewTransport creates a new transport error
func NewTransport(component, message string, err error) *AppError {
	return New(ErrorTypeTransport, component, message, err)
}

// NewBrowser creates a new browser session error
func NewBrowser(component, message string, err error) *AppError {
	return New(ErrorTypeBrowser, component, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(component string, duration time.Duration) *AppError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, component, message, nil)
}

// NewConflict creates a new conflict error
func NewConflict(component, message string) *AppError {
	return New(ErrorTypeConflict, component, message, nil)
}

// NewNotFound creates a new not-found error
func NewNotFound(component, message string) *AppError {
	return New(ErrorTypeNotFound, component, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *AppError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// As returns the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err's chain holds an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == errType
}
