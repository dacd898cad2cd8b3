package repository

import "errors"

var (
	// ErrMediaLinkNotFound is returned when no cache entry exists for a URL.
	ErrMediaLinkNotFound = errors.New("media link not found")

	// ErrDuplicateMediaLink is returned when a cache entry for the URL already exists.
	ErrDuplicateMediaLink = errors.New("media link already exists")

	// ErrObjectNotFound is returned when an object is missing from storage.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)
