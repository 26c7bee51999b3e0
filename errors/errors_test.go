package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"wrapped corrupted", fmt.Errorf("%w: timeout", ErrDataCorrupted), false},
		{"rate limited", ErrRateLimited, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("query endpoint: %w", context.DeadlineExceeded), true},
		{"invalid data", ErrInvalidData, false},
		{"timeout in message", fmt.Errorf("i/o timeout"), true},
		{"429 from endpoint", fmt.Errorf("endpoint replied: Too Many Requests"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"data corrupted", ErrDataCorrupted, true},
		{"corrupted node", fmt.Errorf("decode node: %w", ErrDataCorrupted), true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"parsing failed", ErrParsingFailed, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"connection timeout", ErrConnectionTimeout, ErrorTransient},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"invalid data", ErrInvalidData, ErrorInvalid},
		{"unknown error", fmt.Errorf("unknown error"), ErrorTransient},
		{"classified error", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassifiedError(t *testing.T) {
	baseErr := fmt.Errorf("base error")
	ce := newClassified(ErrorTransient, baseErr, "Registry", "Resolve", "custom message")

	if ce.Class != ErrorTransient {
		t.Errorf("expected ErrorTransient, got %v", ce.Class)
	}
	if ce.Component != "Registry" {
		t.Errorf("expected Registry, got %s", ce.Component)
	}
	if ce.Operation != "Resolve" {
		t.Errorf("expected Resolve, got %s", ce.Operation)
	}
	if ce.Error() != "custom message" {
		t.Errorf("expected 'custom message', got %s", ce.Error())
	}
	if !errors.Is(ce, baseErr) {
		t.Error("classified error should unwrap to base error")
	}
}

func TestClassifiedError_NoMessage(t *testing.T) {
	ce := newClassified(ErrorTransient, fmt.Errorf("base error"), "Registry", "Resolve", "")

	if ce.Error() != "base error" {
		t.Errorf("expected 'base error', got %s", ce.Error())
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		component string
		method    string
		action    string
		expected  string
	}{
		{"nil error", nil, "component", "method", "action", ""},
		{
			"basic wrap",
			fmt.Errorf("original error"),
			"Context",
			"Parse",
			"import resolution",
			"Context.Parse: import resolution failed: original error",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Wrap(test.err, test.component, test.method, test.action)
			if test.expected == "" {
				if result != nil {
					t.Errorf("expected nil, got %v", result)
				}
				return
			}
			if result == nil || result.Error() != test.expected {
				t.Errorf("expected '%s', got '%v'", test.expected, result)
			}
		})
	}
}

func TestWrapClassified(t *testing.T) {
	baseErr := fmt.Errorf("original error")

	tests := []struct {
		name     string
		wrapFunc func(error, string, string, string) error
		class    ErrorClass
	}{
		{"WrapTransient", WrapTransient, ErrorTransient},
		{"WrapFatal", WrapFatal, ErrorFatal},
		{"WrapInvalid", WrapInvalid, ErrorInvalid},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.wrapFunc(baseErr, "component", "method", "action")

			var ce *ClassifiedError
			if !errors.As(result, &ce) {
				t.Fatal("result should be a ClassifiedError")
			}
			if ce.Class != test.class {
				t.Errorf("expected %v, got %v", test.class, ce.Class)
			}
			if !strings.Contains(ce.Error(), "component.method: action failed") {
				t.Errorf("error should contain standard format, got: %s", ce.Error())
			}
			if !errors.Is(result, baseErr) {
				t.Error("wrapped error should keep the base error in its chain")
			}
		})
	}

	if WrapInvalid(nil, "c", "m", "a") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapKeepsSentinel(t *testing.T) {
	err := Wrap(WrapInvalid(ErrParsingFailed, "Context", "Parse", "term"), "Loader", "Load", "context file")

	if !errors.Is(err, ErrParsingFailed) {
		t.Error("sentinel should survive double wrapping")
	}
	if !IsInvalid(err) {
		t.Error("classification should survive plain Wrap")
	}
}
