package di

import (
	"fmt"
	"reflect"
)

// Identifier names a declaration: the Go type it produces plus an optional
// qualifier distinguishing several declarations of the same type.
type Identifier struct {
	typ       reflect.Type
	qualifier string
}

// ID returns the unqualified identifier for T.
func ID[T any]() Identifier {
	return Identifier{typ: reflect.TypeFor[T]()}
}

// Named returns the identifier for T qualified by name.
func Named[T any](qualifier string) Identifier {
	return Identifier{typ: reflect.TypeFor[T](), qualifier: qualifier}
}

// Type returns the type produced by the declaration.
func (id Identifier) Type() reflect.Type { return id.typ }

// Qualifier returns the qualifier, or "" for unqualified identifiers.
func (id Identifier) Qualifier() string { return id.qualifier }

// IsZero reports whether id is the zero Identifier.
func (id Identifier) IsZero() bool { return id.typ == nil }

// String returns the short, human readable form, e.g. "*web.Application"
// or "*sql.DB(replica)".
func (id Identifier) String() string {
	if id.typ == nil {
		return "<none>"
	}
	if id.qualifier != "" {
		return fmt.Sprintf("%s(%s)", id.typ, id.qualifier)
	}
	return id.typ.String()
}

// key returns a form that is unique across packages sharing a short name.
func (id Identifier) key() string {
	if id.typ == nil {
		return ""
	}
	name := qualifiedTypeName(id.typ)
	if id.qualifier != "" {
		return name + "(" + id.qualifier + ")"
	}
	return name
}

func qualifiedTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + qualifiedTypeName(t.Elem())
	case reflect.Slice:
		return "[]" + qualifiedTypeName(t.Elem())
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
