// Package manifest provides sentinel errors for manifest loading and
// resolution. All errors can be checked using errors.Is() for programmatic
// handling.
package manifest

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be checked with errors.Is().

// ErrParse is returned when a manifest document is not well-formed XML.
var ErrParse = errors.New("malformed manifest XML")

// ErrSchema is returned when a required attribute is missing on a
// remote or project element.
var ErrSchema = errors.New("manifest schema violation")

// ErrInclude is returned when a named include cannot be loaded.
var ErrInclude = errors.New("cannot load included manifest")

// ErrIncludeCycle is returned when a manifest includes itself, directly
// or transitively.
var ErrIncludeCycle = errors.New("manifest include cycle")

// ErrRemoteNotFound is returned when a project references a remote name
// that no remote element in the manifest declares.
var ErrRemoteNotFound = errors.New("remote not found in manifest")

// ErrRevisionUnresolved is returned when neither the project nor the
// default element supplies a revision.
var ErrRevisionUnresolved = errors.New("revision unresolved")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
