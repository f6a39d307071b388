package di

import (
	"fmt"
	"reflect"
	"strings"
)

// DuplicateDeclarationError is returned when an identifier is declared twice
// in the same environment. The first declaration is kept.
type DuplicateDeclarationError struct {
	ID          Identifier
	Environment string
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("duplicate declaration for '%s' in %s environment", e.ID, e.Environment)
}

// UnknownDeclarationError is returned when an identifier that was never
// declared is resolved. Requester is the component whose construction asked
// for it, or the zero Identifier for a top-level lookup.
type UnknownDeclarationError struct {
	ID          Identifier
	Requester   Identifier
	Environment string
}

func (e *UnknownDeclarationError) Error() string {
	if e.Requester.IsZero() {
		return fmt.Sprintf("no declaration for '%s' in %s environment", e.ID, e.Environment)
	}
	return fmt.Sprintf("no declaration for '%s' (requested by '%s') in %s environment", e.ID, e.Requester, e.Environment)
}

// CyclicDependencyError is returned when resolving an identifier would
// require constructing that same identifier first. Path lists the chain of
// identifiers, starting and ending with the offending one when the cycle is
// local to a single resolution.
type CyclicDependencyError struct {
	ID   Identifier
	Path []Identifier
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.String()
	}
	return fmt.Sprintf("cyclic dependency on '%s': %s", e.ID, strings.Join(parts, " -> "))
}

// TypeMismatchError is returned when an instance cannot be used as the type
// its identifier promises.
type TypeMismatchError struct {
	ID   Identifier
	Want reflect.Type
	Got  reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("component '%s' has type %v, which is not assignable to %v", e.ID, e.Got, e.Want)
}

// ConstructionError wraps an error returned (or a panic raised) by the
// factory of ID.
type ConstructionError struct {
	ID  Identifier
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct '%s': %v", e.ID, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }
