package model

import (
	"errors"
	"fmt"
)

// ErrorKind tags why a resolution failed.
type ErrorKind string

const (
	ErrorKindAuthRequired     ErrorKind = "auth_required"
	ErrorKindIPBlocked        ErrorKind = "ip_blocked"
	ErrorKindStoryUnavailable ErrorKind = "story_unavailable"
	ErrorKindUnsupported      ErrorKind = "unsupported"
	ErrorKindTimeout          ErrorKind = "timeout"
	ErrorKindUnknown          ErrorKind = "unknown"
)

func (k ErrorKind) String() string {
	return string(k)
}

// ClassifiedError is the only failure type the resolver returns.
type ClassifiedError struct {
	Kind       ErrorKind
	RawMessage string
}

// NewClassifiedError creates a ClassifiedError of the given kind.
func NewClassifiedError(kind ErrorKind, rawMessage string) *ClassifiedError {
	return &ClassifiedError{Kind: kind, RawMessage: rawMessage}
}

func (e *ClassifiedError) Error() string {
	if e.RawMessage == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.RawMessage)
}

// Is makes errors.Is match on kind, so callers can compare against a bare
// &ClassifiedError{Kind: ...} target.
func (e *ClassifiedError) Is(target error) bool {
	var t *ClassifiedError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the classification from err.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// CacheIOError reports a persistent-tier failure on the write path.
// It is non-fatal: the caller may continue without caching.
type CacheIOError struct {
	Op  string
	Err error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheIOError) Unwrap() error {
	return e.Err
}

// IsCacheIOError reports whether err is (or wraps) a CacheIOError.
func IsCacheIOError(err error) bool {
	var ce *CacheIOError
	return errors.As(err, &ce)
}
