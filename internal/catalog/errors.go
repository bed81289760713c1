package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies catalog failures for callers that branch on them.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "NotFound"
	KindMalformedIdentifier ErrorKind = "MalformedIdentifier"
	KindUnknownIdentifier   ErrorKind = "UnknownIdentifier"
	KindMetadataLoadFailure ErrorKind = "MetadataLoadFailure"
)

// Error is a classified catalog failure.
type Error struct {
	Kind ErrorKind
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.ID)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error with a formatted cause.
func Errorf(kind ErrorKind, id, format string, args ...any) *Error {
	return &Error{Kind: kind, ID: id, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsNotFound reports whether err is a NotFound catalog error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
