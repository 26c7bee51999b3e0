// Package graph converts between entities, triples and persisted documents.
package graph

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Document errors
var (
	// ErrInvalidDocument indicates the document is not a JSON object or array of nodes
	ErrInvalidDocument = stderrors.New("invalid document")

	// ErrInvalidNode indicates a node or value cannot be expanded
	ErrInvalidNode = stderrors.New("invalid node")
)

// Entity errors
var (
	// ErrUnknownType indicates no registered type matches a subject's type tags
	ErrUnknownType = stderrors.New("unknown type")

	// ErrMissingIdentifier indicates an entity has neither an identifier nor an identify hook
	ErrMissingIdentifier = stderrors.New("missing identifier")

	// ErrSubjectNotFound indicates a node expanded to no constructible subject
	ErrSubjectNotFound = stderrors.New("subject not found")
)

// SubjectError is the failure to construct the entity of one subject.
type SubjectError struct {
	Subject string
	Err     error
}

func (e SubjectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Subject, e.Err)
}

func (e SubjectError) Unwrap() error {
	return e.Err
}

// SubjectErrors aggregates per-subject failures of FromGraph. Subjects not
// listed were constructed.
type SubjectErrors struct {
	Errors []SubjectError
}

func (e *SubjectErrors) Error() string {
	parts := make([]string, len(e.Errors))
	for i, se := range e.Errors {
		parts[i] = se.Error()
	}
	return fmt.Sprintf("%d subject(s) failed: %s", len(e.Errors), strings.Join(parts, "; "))
}

// Unwrap exposes every subject error to errors.Is and errors.As.
func (e *SubjectErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, se := range e.Errors {
		out[i] = se
	}
	return out
}

// Subjects returns the failed subjects in graph order.
func (e *SubjectErrors) Subjects() []string {
	out := make([]string, len(e.Errors))
	for i, se := range e.Errors {
		out[i] = se.Subject
	}
	return out
}
