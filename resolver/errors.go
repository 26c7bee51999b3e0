package resolver

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrNoResolver indicates no resolver is registered for a namespace
	ErrNoResolver = stderrors.New("no resolver registered")

	// ErrResolverPanic indicates a resolver panicked during a batch call
	ErrResolverPanic = stderrors.New("resolver panicked")
)

// UnresolvedNamespaceError reports identifiers whose namespace has no resolver.
type UnresolvedNamespaceError struct {
	Namespace string
	IRIs      []string
}

func (e *UnresolvedNamespaceError) Error() string {
	if len(e.IRIs) == 0 {
		return fmt.Sprintf("no resolver for namespace %q", e.Namespace)
	}
	return fmt.Sprintf("no resolver for namespace %q (%d identifiers)", e.Namespace, len(e.IRIs))
}

// Unwrap returns ErrNoResolver.
func (e *UnresolvedNamespaceError) Unwrap() error {
	return ErrNoResolver
}
