package schema

import (
	stderrors "errors"
)

var (
	// ErrMissingID indicates a schema without "id" or "$id"
	ErrMissingID = stderrors.New("schema has no id")

	// ErrUnknownSchema indicates an "allOf" reference to a schema that was not supplied
	ErrUnknownSchema = stderrors.New("unknown schema reference")

	// ErrInheritanceCycle indicates schemas inheriting from each other
	ErrInheritanceCycle = stderrors.New("schema inheritance cycle")

	// ErrValidation indicates entity values rejected by the compiled schema
	ErrValidation = stderrors.New("schema validation failed")
)
