package sync

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPathEscapes is returned when a copyfile or linkfile directive resolves
// outside the sync target root. The directive is never executed.
var ErrPathEscapes = errors.New("path escapes target root")

// ErrFileState is returned when a directive's source is missing or its
// destination has the wrong type (e.g. an existing directory).
var ErrFileState = errors.New("invalid file state")

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

// ProjectFailure records one project's sync error.
type ProjectFailure struct {
	Project string
	Err     error
}

func (f ProjectFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Project, f.Err)
}

// AggregateError carries every per-project failure from one sync run. It is
// returned only when Options.Keep is false; individual causes remain
// reachable through errors.Is / errors.As.
type AggregateError struct {
	Failures []ProjectFailure
}

// Error lists the failing projects and their errors.
func (e *AggregateError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("sync failed for %d project(s): %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the underlying per-project errors.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
