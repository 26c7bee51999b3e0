package vocabulary

import (
	stderrors "errors"
)

var (
	// ErrInvalidContext is returned when a context value or term definition is malformed
	ErrInvalidContext = stderrors.New("invalid context")

	// ErrUnknownImport is returned when a named fragment is not registered
	ErrUnknownImport = stderrors.New("unknown context import")

	// ErrImportCycle is returned when fragments import each other
	ErrImportCycle = stderrors.New("context import cycle")

	// ErrUnsupportedFormat is returned for context files that are neither JSON nor YAML
	ErrUnsupportedFormat = stderrors.New("unsupported context file format")
)
