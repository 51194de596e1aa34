package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jlrickert/textpix/pkg/record"
)

// Repository is the flat namespace of files backing a record store. Every
// record artifact (metadata document, sidecars, image bytes) is addressed by a
// bare file name; there are no subdirectories.
//
// Implementations must be safe for concurrent use. Missing files are reported
// with errors that match os.ErrNotExist so callers can use errors.Is.
type Repository interface {
	// Name returns a short, human-friendly name for the backend.
	Name() string

	// ListMeta returns the names of all metadata documents, sorted
	// lexically. An empty or missing directory yields an empty list.
	ListMeta(ctx context.Context) ([]string, error)

	// Read returns the bytes stored under name.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write creates or overwrites name with data.
	Write(ctx context.Context, name string, data []byte) error

	// Remove deletes name.
	Remove(ctx context.Context, name string) error

	// Exists reports whether name is present.
	Exists(ctx context.Context, name string) (bool, error)
}

// ErrInvalidName is returned for file names that would escape the store
// directory.
var ErrInvalidName = errors.New("invalid file name")

// checkName rejects empty names and anything with a path component.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// wrapRepoErr converts a backend failure into the record error taxonomy while
// keeping os.ErrNotExist visible through the chain.
func wrapRepoErr(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return record.NewPersistenceError(op, name, err)
}
