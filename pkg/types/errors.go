package types

import (
	"errors"
	"fmt"
)

// Domain errors for release scanning and lifespan queries
var (
	// ErrOrphanSymbol is returned when an event, method or namespace heading
	// appears before any class heading in a release
	ErrOrphanSymbol = errors.New("symbol heading without an open class")

	// ErrUnknownKind is returned for an entry kind outside the known set
	ErrUnknownKind = errors.New("unknown entry kind")

	// ErrEmptyReleaseName is returned when a release has no name
	ErrEmptyReleaseName = errors.New("release name is required")

	// ErrInvalidVersion is returned when a release name is neither semver nor a tip alias
	ErrInvalidVersion = errors.New("invalid release version")
)

// HeadingError identifies the heading that made a release scan fail
type HeadingError struct {
	Release string
	Index   int // Position of the heading in the release's heading list
	Heading string
	Err     error
}

// Error implements the error interface
func (e *HeadingError) Error() string {
	return fmt.Sprintf("release %s: heading %d %q: %v", e.Release, e.Index, e.Heading, e.Err)
}

// Unwrap returns the underlying cause
func (e *HeadingError) Unwrap() error {
	return e.Err
}
