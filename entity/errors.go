package entity

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	// ErrRequiredField is reported when a required field has neither a value nor an identifier
	ErrRequiredField = stderrors.New("required field missing")

	// ErrFieldType is reported when a value does not fit the field's declared kind or datatype
	ErrFieldType = stderrors.New("field value has wrong type")

	// ErrUnknownField is returned when accessing a field the type does not declare
	ErrUnknownField = stderrors.New("unknown field")

	// ErrNoResolver is returned when a reference must be resolved but no resolver is bound
	ErrNoResolver = stderrors.New("no resolver bound")

	// ErrNoIdentifier is returned when an entity has no identifier and its type has no hook
	ErrNoIdentifier = stderrors.New("entity has no identifier")

	// ErrInvalidType is returned when registering a malformed type
	ErrInvalidType = stderrors.New("invalid entity type")
)

// Violation is a single field-level construction failure.
type Violation struct {
	Field string
	Err   error
}

func (v Violation) Error() string {
	if v.Field == "" {
		return v.Err.Error()
	}
	return fmt.Sprintf("field %s: %v", v.Field, v.Err)
}

func (v Violation) Unwrap() error {
	return v.Err
}

// ConstructionError reports every violation found while constructing an
// entity. No entity is produced when it is returned.
type ConstructionError struct {
	Type       string
	ID         string
	Violations []Violation
}

func (e *ConstructionError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Error())
	}
	subject := e.Type
	if e.ID != "" {
		subject = fmt.Sprintf("%s %s", e.Type, e.ID)
	}
	return fmt.Sprintf("construct %s: %s", subject, strings.Join(parts, "; "))
}

// Unwrap exposes each violation to errors.Is and errors.As.
func (e *ConstructionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Violations))
	for _, v := range e.Violations {
		errs = append(errs, v)
	}
	return errs
}

func (e *ConstructionError) add(field string, err error) {
	e.Violations = append(e.Violations, Violation{Field: field, Err: err})
}
