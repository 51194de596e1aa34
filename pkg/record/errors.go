package record

import (
	"errors"
	"fmt"
)

// Sentinel errors used for errors.Is checks across the store, gateway and
// service layers.
var (
	ErrMissingIdentifier = errors.New("image id is required")
	ErrMissingKeyword    = errors.New("search keyword is required")
	ErrMissingText       = errors.New("text is required")
	ErrNotFound          = errors.New("metadata not found")

	// ErrGateway marks a failed call to the external AI service.
	ErrGateway = errors.New("ai gateway failure")

	// ErrTransport marks an image download that failed after every retry.
	ErrTransport = errors.New("image download failed")

	ErrPersistence = errors.New("persistence failure")
	ErrCorrupt     = errors.New("corrupt metadata")

	// ErrLockTimeout indicates acquiring a record lock was canceled or timed
	// out before the lock became free.
	ErrLockTimeout = errors.New("lock acquire timeout")
)

// NotFoundError carries the id and the artifact that could not be found.
type NotFoundError struct {
	ID   string
	What string // "metadata" or "image"
}

func (e *NotFoundError) Error() string {
	what := e.What
	if what == "" {
		what = "metadata"
	}
	if e.ID == "" {
		return what + " not found"
	}
	return fmt.Sprintf("%s not found: %s", what, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError constructs a NotFoundError for the given artifact kind.
func NewNotFoundError(what, id string) error {
	return &NotFoundError{ID: id, What: what}
}

// IsNotFound reports whether err is (or wraps) a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// CorruptError reports a metadata file that exists but cannot be decoded.
type CorruptError struct {
	Name  string
	Cause error
}

func (e *CorruptError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("corrupt metadata %s", e.Name)
	}
	return fmt.Sprintf("corrupt metadata %s: %v", e.Name, e.Cause)
}

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }
func (e *CorruptError) Unwrap() error        { return e.Cause }

// NewCorruptError wraps a decode failure for the named file.
func NewCorruptError(name string, cause error) error {
	return &CorruptError{Name: name, Cause: cause}
}

// PersistenceError wraps a failed filesystem operation on a record artifact.
type PersistenceError struct {
	Op    string // "write", "read", "remove"
	Name  string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Cause)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
func (e *PersistenceError) Unwrap() error        { return e.Cause }

// NewPersistenceError constructs a PersistenceError.
func NewPersistenceError(op, name string, cause error) error {
	return &PersistenceError{Op: op, Name: name, Cause: cause}
}

// IsValidation reports whether err is one of the missing-input errors that a
// caller can fix by supplying a field.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingIdentifier) ||
		errors.Is(err, ErrMissingKeyword) ||
		errors.Is(err, ErrMissingText)
}
