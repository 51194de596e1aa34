package store

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/jlrickert/cli-toolkit/clock"
	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/jlrickert/textpix/pkg/record"
)

// DefaultURLPrefix is prepended to image file names to build the relative URL
// clients use to fetch them.
const DefaultURLPrefix = "uploads/"

// Clock supplies the current time for timestamps and id allocation.
type Clock interface {
	Now() time.Time
}

// Options tune a Store.
type Options struct {
	// URLPrefix is joined with file names for image URLs and the display
	// paths returned by Delete. Empty means DefaultURLPrefix.
	URLPrefix string

	// Clock overrides the clock carried by the context.
	Clock Clock
}

// Store implements record CRUD on top of a Repository. Writers to the same
// record are serialized by an in-process lock; nothing protects against other
// processes touching the directory.
type Store struct {
	repo      Repository
	loc       *Locator
	locks     *keyedLock
	urlPrefix string
	clock     Clock
	cache     *listCache
}

// New constructs a Store over repo.
func New(repo Repository, opts Options) *Store {
	prefix := opts.URLPrefix
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{
		repo:      repo,
		loc:       NewLocator(repo),
		locks:     newKeyedLock(),
		urlPrefix: prefix,
		clock:     opts.Clock,
		cache:     &listCache{},
	}
}

// Locate resolves id to its metadata document name.
func (s *Store) Locate(ctx context.Context, id string) (string, error) {
	return s.loc.Locate(ctx, id)
}

// URL returns the client-facing relative path of a stored file.
func (s *Store) URL(name string) string { return s.urlPrefix + name }

func (s *Store) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return clock.ClockFromContext(ctx).Now()
}

// CreateParams carries the artifacts of a freshly generated record.
type CreateParams struct {
	Text        string
	Prompt      string
	Description string
	Image       []byte
}

// Create allocates a new id and writes the image, the metadata document and
// both sidecars. The record is saved from the moment it exists.
func (s *Store) Create(ctx context.Context, p CreateParams) (*record.Metadata, error) {
	now := s.now(ctx)
	id := record.NewID(now)
	ts := record.FormatTimestamp(now)
	m := &record.Metadata{
		ImageID:     id,
		Filename:    record.DefaultImageName(id),
		Text:        p.Text,
		Prompt:      p.Prompt,
		Description: p.Description,
		CreatedAt:   ts,
		SavedAt:     ts,
		Saved:       true,
	}
	defer s.invalidate()

	if err := s.repo.Write(ctx, m.Filename, p.Image); err != nil {
		return nil, err
	}
	if err := s.writeDoc(ctx, record.MetaName(id), m); err != nil {
		return nil, err
	}
	if err := s.repo.Write(ctx, record.TextName(id), []byte(p.Text)); err != nil {
		return nil, err
	}
	if err := s.repo.Write(ctx, record.DescriptionName(id), []byte(p.Description)); err != nil {
		return nil, err
	}
	mylog.LoggerFromContext(ctx).Info("record_created", "image_id", id, "bytes", len(p.Image))
	return m, nil
}

// SaveNew stores image bytes fetched from elsewhere as a new record with a
// minimal metadata document. The text sidecar is written only for non-empty
// text. Repeated calls with the same image create distinct records.
func (s *Store) SaveNew(ctx context.Context, image []byte, text string) (*record.Metadata, error) {
	now := s.now(ctx)
	id := record.NewID(now)
	ts := record.FormatTimestamp(now)
	m := &record.Metadata{
		ImageID:   id,
		Filename:  record.DefaultImageName(id),
		Text:      text,
		Saved:     true,
		SavedAt:   ts,
		CreatedAt: ts,
	}
	defer s.invalidate()

	if err := s.repo.Write(ctx, m.Filename, image); err != nil {
		return nil, err
	}
	if err := s.writeDoc(ctx, record.MetaName(id), m); err != nil {
		return nil, err
	}
	if text != "" {
		if err := s.repo.Write(ctx, record.TextName(id), []byte(text)); err != nil {
			return nil, err
		}
	}
	mylog.LoggerFromContext(ctx).Info("record_saved_new", "image_id", id)
	return m, nil
}

// MarkSaved flags an existing record as saved and stamps saved_at. A
// non-empty text replaces the stored text and its sidecar; the image and
// description are never touched.
func (s *Store) MarkSaved(ctx context.Context, id, text string) (*record.Metadata, error) {
	var out *record.Metadata
	err := s.withRecord(ctx, id, func(ctx context.Context, name string, m *record.Metadata) error {
		m.Saved = true
		m.SavedAt = record.FormatTimestamp(s.now(ctx))
		if text != "" {
			m.Text = text
		}
		if err := s.writeDoc(ctx, name, m); err != nil {
			return err
		}
		if text != "" {
			if err := s.repo.Write(ctx, record.TextName(m.CanonicalID(id)), []byte(text)); err != nil {
				return err
			}
		}
		out = m
		return nil
	})
	return out, err
}

// RegenerateParams are the new artifacts produced for an existing record.
type RegenerateParams struct {
	Text        string
	Prompt      string
	Description string
	Image       []byte
}

// RegenerateFunc produces new artifacts from the current document. It runs
// while the record is locked and receives a copy of the document.
type RegenerateFunc func(ctx context.Context, prev *record.Metadata) (RegenerateParams, error)

// Regenerate replaces the image, text, prompt and description of an existing
// record. The image is overwritten in place under its stored file name. If fn
// fails nothing is written.
func (s *Store) Regenerate(ctx context.Context, id string, fn RegenerateFunc) (*record.Metadata, error) {
	var out *record.Metadata
	err := s.withRecord(ctx, id, func(ctx context.Context, name string, m *record.Metadata) error {
		p, err := fn(ctx, m.Clone())
		if err != nil {
			return err
		}
		canonical := m.CanonicalID(id)
		if err := s.repo.Write(ctx, m.ImageName(canonical), p.Image); err != nil {
			return err
		}

		ts := record.FormatTimestamp(s.now(ctx))
		m.Text = p.Text
		m.Prompt = p.Prompt
		m.Description = p.Description
		m.UpdatedAt = ts
		m.RegeneratedAt = ts
		if err := s.writeDoc(ctx, name, m); err != nil {
			return err
		}
		if err := s.repo.Write(ctx, record.TextName(canonical), []byte(p.Text)); err != nil {
			return err
		}
		if err := s.repo.Write(ctx, record.DescriptionName(canonical), []byte(p.Description)); err != nil {
			return err
		}
		mylog.LoggerFromContext(ctx).Info("record_regenerated", "image_id", canonical)
		out = m
		return nil
	})
	return out, err
}

// UpdateText replaces the stored text and stamps updated_at.
func (s *Store) UpdateText(ctx context.Context, id, text string) (*record.Metadata, error) {
	var out *record.Metadata
	err := s.withRecord(ctx, id, func(ctx context.Context, name string, m *record.Metadata) error {
		m.Text = text
		m.UpdatedAt = record.FormatTimestamp(s.now(ctx))
		if err := s.writeDoc(ctx, name, m); err != nil {
			return err
		}
		if err := s.repo.Write(ctx, record.TextName(m.CanonicalID(id)), []byte(text)); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// Patch is a partial metadata update. Empty members leave the stored value
// unchanged, so a field cannot be cleared through a Patch.
type Patch struct {
	Title       string
	Tags        []string
	Description string
}

// UpdateMetadata applies p and stamps updated_at even when p is empty. The
// description sidecar is rewritten only when p carries a description.
func (s *Store) UpdateMetadata(ctx context.Context, id string, p Patch) (*record.Metadata, error) {
	var out *record.Metadata
	err := s.withRecord(ctx, id, func(ctx context.Context, name string, m *record.Metadata) error {
		if p.Title != "" {
			m.Title = p.Title
		}
		if len(p.Tags) > 0 {
			m.Tags = append([]string(nil), p.Tags...)
		}
		if p.Description != "" {
			m.Description = p.Description
		}
		m.UpdatedAt = record.FormatTimestamp(s.now(ctx))
		if err := s.writeDoc(ctx, name, m); err != nil {
			return err
		}
		if p.Description != "" {
			if err := s.repo.Write(ctx, record.DescriptionName(m.CanonicalID(id)), []byte(p.Description)); err != nil {
				return err
			}
		}
		out = m
		return nil
	})
	return out, err
}

// GetMetadata returns the stored document bytes verbatim.
func (s *Store) GetMetadata(ctx context.Context, id string) ([]byte, error) {
	name, err := s.loc.Locate(ctx, id)
	if err != nil {
		return nil, err
	}
	_, raw, err := s.readDoc(ctx, name, id)
	return raw, err
}

// Loaded is the editable view of a record.
type Loaded struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl"`
	Text        string `json:"text"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

// Load returns a record for editing. Sidecar files take precedence over the
// text and description stored in the document. A record without a file name
// or whose image file is gone is reported as not found.
func (s *Store) Load(ctx context.Context, id string) (*Loaded, error) {
	name, err := s.loc.Locate(ctx, id)
	if err != nil {
		return nil, err
	}
	m, _, err := s.readDoc(ctx, name, id)
	if err != nil {
		return nil, err
	}
	canonical := m.CanonicalID(id)
	if m.Filename == "" {
		return nil, record.NewNotFoundError("image", canonical)
	}
	image := m.Filename
	ok, err := s.repo.Exists(ctx, image)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, record.NewNotFoundError("image", canonical)
	}
	return &Loaded{
		ID:          canonical,
		ImageURL:    s.URL(image),
		Text:        s.readSidecar(ctx, record.TextName(canonical), m.Text),
		Description: s.readSidecar(ctx, record.DescriptionName(canonical), m.Description),
		Title:       m.Title,
	}, nil
}

// Delete removes every artifact of a record and returns the display paths of
// the files that were actually removed. Artifacts that are already gone are
// skipped. A document that cannot be parsed is still removed, together with
// the artifacts named after the requested id.
func (s *Store) Delete(ctx context.Context, id string) ([]string, error) {
	name, err := s.loc.Locate(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()
	defer s.invalidate()

	lg := mylog.LoggerFromContext(ctx)
	canonical, image := id, record.DefaultImageName(id)
	if m, _, err := s.readDoc(ctx, name, id); err == nil {
		canonical = m.CanonicalID(id)
		image = m.ImageName(canonical)
	} else if !errors.Is(err, record.ErrCorrupt) {
		return nil, err
	} else {
		lg.Warn("delete_corrupt_metadata", "file", name, "error", err)
	}

	targets := []string{
		name,
		record.TextName(canonical),
		record.DescriptionName(canonical),
		image,
	}
	deleted := make([]string, 0, len(targets))
	var errs []error
	for _, t := range targets {
		if err := s.repo.Remove(ctx, t); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, s.URL(t))
	}
	lg.Info("record_deleted", "image_id", canonical, "files", len(deleted))
	return deleted, errors.Join(errs...)
}

// withRecord locates id, locks its document and hands the parsed document to
// fn. The list cache is dropped afterwards.
func (s *Store) withRecord(
	ctx context.Context,
	id string,
	fn func(ctx context.Context, name string, m *record.Metadata) error,
) error {
	name, err := s.loc.Locate(ctx, id)
	if err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()
	defer s.invalidate()

	m, _, err := s.readDoc(ctx, name, id)
	if err != nil {
		return err
	}
	return fn(ctx, name, m)
}

func (s *Store) readDoc(ctx context.Context, name, id string) (*record.Metadata, []byte, error) {
	raw, err := s.repo.Read(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, record.NewNotFoundError("metadata", id)
		}
		return nil, nil, err
	}
	m, err := record.ParseMetadata(raw)
	if err != nil {
		return nil, nil, record.NewCorruptError(name, err)
	}
	return m, raw, nil
}

func (s *Store) writeDoc(ctx context.Context, name string, m *record.Metadata) error {
	data, err := m.Encode()
	if err != nil {
		return record.NewPersistenceError("encode", name, err)
	}
	return s.repo.Write(ctx, name, data)
}

// readSidecar returns the sidecar content when the file exists, even if it is
// empty, and fallback otherwise.
func (s *Store) readSidecar(ctx context.Context, name, fallback string) string {
	data, err := s.repo.Read(ctx, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			mylog.LoggerFromContext(ctx).Warn("sidecar_read_failed", "file", name, "error", err)
		}
		return fallback
	}
	return string(data)
}
