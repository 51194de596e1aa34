package store

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/jlrickert/textpix/pkg/record"
)

// MemoryRepo is an in-memory Repository for tests and throwaway tooling.
//
// All state lives in a single map guarded by mu. Reads return copies so
// callers can never mutate stored bytes.
type MemoryRepo struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ Repository = (*MemoryRepo)(nil)

// NewMemoryRepo constructs an empty in-memory repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{files: make(map[string][]byte)}
}

func (r *MemoryRepo) Name() string { return "memory" }

func (r *MemoryRepo) ListMeta(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		if _, ok := record.IDFromMetaName(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *MemoryRepo) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.files[name]
	if !ok {
		return nil, wrapRepoErr("read", name, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (r *MemoryRepo) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[name] = append([]byte(nil), data...)
	return nil
}

func (r *MemoryRepo) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[name]; !ok {
		return wrapRepoErr("remove", name, os.ErrNotExist)
	}
	delete(r.files, name)
	return nil
}

func (r *MemoryRepo) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkName(name); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.files[name]
	return ok, nil
}

// Names returns every stored file name, sorted.
func (r *MemoryRepo) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
