package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType classifies gateway supervision failures
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeBinaryNotFound     ErrorType = "binary_not_found"
	ErrorTypeNoPortAvailable    ErrorType = "no_port_available"
	ErrorTypeExitedDuringStart  ErrorType = "gateway_exited_during_startup"
	ErrorTypeSpawnFailed        ErrorType = "gateway_spawn_failed"
	ErrorTypeHealthCheckTimeout ErrorType = "health_check_timeout"
	ErrorTypeRestartFailed      ErrorType = "restart_failed"
	ErrorTypeIO                 ErrorType = "io"
	ErrorTypeInternal           ErrorType = "internal"
	ErrorTypeCancelled          ErrorType = "cancelled"
)

// Sentinels for errors.Is matching; DomainError.Is compares by type only.
var (
	ErrValidation         = &DomainError{Type: ErrorTypeValidation}
	ErrBinaryNotFound     = &DomainError{Type: ErrorTypeBinaryNotFound}
	ErrNoPortAvailable    = &DomainError{Type: ErrorTypeNoPortAvailable}
	ErrExitedDuringStart  = &DomainError{Type: ErrorTypeExitedDuringStart}
	ErrSpawnFailed        = &DomainError{Type: ErrorTypeSpawnFailed}
	ErrHealthCheckTimeout = &DomainError{Type: ErrorTypeHealthCheckTimeout}
	ErrRestartFailed      = &DomainError{Type: ErrorTypeRestartFailed}
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

// NewBinaryNotFoundError keeps the resolver's error as the cause so its
// platform and path details reach the caller unchanged.
func NewBinaryNotFoundError(cause error) *DomainError {
	return NewDomainError(ErrorTypeBinaryNotFound, "gateway binary could not be resolved", cause)
}

func NewNoPortAvailableError(start, count int) *DomainError {
	return NewDomainError(ErrorTypeNoPortAvailable,
		fmt.Sprintf("no available port found in range %d-%d", start, start+count-1), nil).
		WithContext("start_port", start).
		WithContext("range", count)
}

// NewExitedDuringStartupError reports an exit observed before the gateway
// became healthy. Exactly one of code or signal is meaningful; signal is
// empty for a normal exit and code is -1 for a signal exit.
func NewExitedDuringStartupError(code int, signal string) *DomainError {
	e := NewDomainError(ErrorTypeExitedDuringStart, "gateway exited before becoming healthy", nil).
		WithContext("exit_code", code)
	if signal != "" {
		e.WithContext("signal", signal)
	}
	return e
}

func NewSpawnFailedError(path string, cause error) *DomainError {
	return NewDomainError(ErrorTypeSpawnFailed, "failed to spawn gateway process", cause).
		WithContext("path", path)
}

func NewHealthCheckTimeoutError(port int, timeoutMs int64) *DomainError {
	return NewDomainError(ErrorTypeHealthCheckTimeout,
		fmt.Sprintf("gateway did not become healthy within %dms on port %d", timeoutMs, port), nil).
		WithContext("port", port).
		WithContext("timeout_ms", timeoutMs)
}

func NewRestartFailedError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeRestartFailed, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

func isType(err error, t ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == t
}

// Error checking helpers
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

func IsBinaryNotFoundError(err error) bool { return isType(err, ErrorTypeBinaryNotFound) }

func IsNoPortAvailableError(err error) bool { return isType(err, ErrorTypeNoPortAvailable) }

func IsExitedDuringStartupError(err error) bool { return isType(err, ErrorTypeExitedDuringStart) }

func IsSpawnFailedError(err error) bool { return isType(err, ErrorTypeSpawnFailed) }

func IsHealthCheckTimeoutError(err error) bool { return isType(err, ErrorTypeHealthCheckTimeout) }

func IsRestartFailedError(err error) bool { return isType(err, ErrorTypeRestartFailed) }

func IsIOError(err error) bool { return isType(err, ErrorTypeIO) }

func IsCancelledError(err error) bool { return isType(err, ErrorTypeCancelled) }

// ContextValue returns a context entry from the first DomainError in the chain.
func ContextValue(err error, key string) (interface{}, bool) {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return nil, false
	}
	v, ok := domainErr.Context[key]
	return v, ok
}

// Error aggregation for bulk operations
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *ErrorCollection) Unwrap() []error {
	return e.Errors
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
