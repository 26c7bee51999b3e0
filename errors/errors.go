// Package errors provides the error classification shared by every semlink package.
// It includes error classes, common sentinel errors, and helpers for consistent
// wrapping so callers can decide between retrying, rejecting input, or stopping.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinels shared by the resolver backends, the loaders and the CLI.
var (
	ErrBackendFailure    = errors.New("backend request failed")
	ErrConnectionLost    = errors.New("connection lost")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrRateLimited       = errors.New("rate limited")

	ErrInvalidData   = errors.New("invalid data format")
	ErrParsingFailed = errors.New("parsing failed")
	// ErrDataCorrupted marks stored nodes that no longer decode.
	ErrDataCorrupted = errors.New("data corrupted")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// sentinelClass classifies unwrapped sentinels. context.DeadlineExceeded is
// listed because backends surface it from their own request deadlines.
var sentinelClass = []struct {
	err   error
	class ErrorClass
}{
	{ErrConnectionTimeout, ErrorTransient},
	{ErrConnectionLost, ErrorTransient},
	{ErrRateLimited, ErrorTransient},
	{context.DeadlineExceeded, ErrorTransient},
	{ErrInvalidConfig, ErrorFatal},
	{ErrMissingConfig, ErrorFatal},
	{ErrDataCorrupted, ErrorFatal},
	{ErrInvalidData, ErrorInvalid},
	{ErrParsingFailed, ErrorInvalid},
}

// transientPatterns match driver and HTTP errors that carry no typed sentinel.
var transientPatterns = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"temporary",
	"unavailable",
	"too many requests",
}

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// classOf reports the class of err. An explicit ClassifiedError wins over
// sentinels, and sentinels win over message patterns.
func classOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	for _, sc := range sentinelClass {
		if errors.Is(err, sc.err) {
			return sc.class, true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return ErrorTransient, true
		}
	}
	return ErrorTransient, false
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	class, ok := classOf(err)
	return ok && class == ErrorTransient
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	class, _ := classOf(err)
	return class == ErrorFatal
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	class, _ := classOf(err)
	return class == ErrorInvalid
}

// Classify returns the error class for an error. Unknown errors count as
// transient so backends get a retry.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	class, _ := classOf(err)
	return class
}

func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}
