package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/jlrickert/textpix/pkg/record"
)

// FsRepo stores record artifacts as plain files in a single directory.
//
// Writes go straight to the destination file; there is no temp-file rename.
// The directory is created on the first write.
type FsRepo struct {
	// Root is the directory holding every artifact.
	Root string

	// FileMode is applied to newly written files. Zero means 0o644.
	FileMode os.FileMode
}

var _ Repository = (*FsRepo)(nil)

// NewFsRepo returns a repository rooted at dir.
func NewFsRepo(dir string) *FsRepo {
	return &FsRepo{Root: dir}
}

func (f *FsRepo) Name() string { return "fs" }

// Dir returns the directory watched for external changes.
func (f *FsRepo) Dir() string { return f.Root }

func (f *FsRepo) path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(f.Root, name), nil
}

func (f *FsRepo) ListMeta(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, wrapRepoErr("list", f.Root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := record.IDFromMetaName(e.Name()); !ok {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (f *FsRepo) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, wrapRepoErr("read", name, err)
	}
	return data, nil
}

func (f *FsRepo) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.Root, 0o755); err != nil {
		return wrapRepoErr("mkdir", f.Root, err)
	}
	mode := f.FileMode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(p, data, mode); err != nil {
		return wrapRepoErr("write", name, err)
	}
	return nil
}

func (f *FsRepo) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return wrapRepoErr("remove", name, err)
	}
	return nil
}

func (f *FsRepo) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := f.path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, wrapRepoErr("stat", name, err)
	}
	return !info.IsDir(), nil
}
