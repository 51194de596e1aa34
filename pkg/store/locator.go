package store

import (
	"context"
	"strings"

	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/jlrickert/textpix/pkg/record"
)

// Locator resolves a record id to the name of its metadata document. It is
// the only code that maps ids to files.
type Locator struct {
	repo Repository
}

// NewLocator returns a Locator over repo.
func NewLocator(repo Repository) *Locator {
	return &Locator{repo: repo}
}

// Locate finds the metadata document for id.
//
// The fast path looks for a metadata name starting with id. The exact name
// <id>_metadata.json wins over other prefix matches, otherwise the first
// match in lexical order is used. When no name matches, every document is
// parsed and its image_id compared with id; unreadable documents are skipped.
func (l *Locator) Locate(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", record.ErrMissingIdentifier
	}
	names, err := l.repo.ListMeta(ctx)
	if err != nil {
		return "", err
	}

	exact := record.MetaName(id)
	first := ""
	for _, name := range names {
		if name == exact {
			return name, nil
		}
		if first == "" && strings.HasPrefix(name, id) {
			first = name
		}
	}
	if first != "" {
		return first, nil
	}

	lg := mylog.LoggerFromContext(ctx)
	for _, name := range names {
		data, err := l.repo.Read(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lg.Debug("locate_skip_unreadable", "file", name, "error", err)
			continue
		}
		m, err := record.ParseMetadata(data)
		if err != nil {
			lg.Debug("locate_skip_corrupt", "file", name, "error", err)
			continue
		}
		if m.ImageID == id {
			return name, nil
		}
	}
	return "", record.NewNotFoundError("metadata", id)
}
