package store

import (
	"context"
	"sort"
	"strings"

	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/jlrickert/textpix/pkg/record"
)

// Summary is the listing projection of a record.
type Summary struct {
	ImageID     string   `json:"image_id"`
	Filename    string   `json:"filename"`
	Text        string   `json:"text"`
	Description string   `json:"description"`
	SavedAt     string   `json:"saved_at"`
	CreatedAt   string   `json:"created_at"`
	ImageURL    string   `json:"image_url"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`

	// sortAt is the raw saved_at of the document, before the created_at
	// fallback applied to SavedAt.
	sortAt string
}

// ListOptions filter a listing.
type ListOptions struct {
	// Tags is an optional tag expression such as "cat and not draft".
	Tags *record.TagQuery
}

// List returns every displayable record, newest first by saved_at, falling
// back to created_at. Records whose document is unreadable, lacks an id or a
// file name, or whose image file is missing are skipped.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	all, err := s.summaries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(all))
	for _, sum := range all {
		if sum.ImageID == "" {
			continue
		}
		if opts.Tags != nil && !opts.Tags.Match(sum.Tags) {
			continue
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return record.SortKey(out[i].SavedAt) > record.SortKey(out[j].SavedAt)
	})
	return out, nil
}

// Search returns the records whose text, description or file name contains
// keyword, compared case-insensitively. Results are ordered by the raw
// saved_at of each document only; records without one sort last even though
// their projected saved_at shows created_at. Documents without an image_id
// are still searchable.
func (s *Store) Search(ctx context.Context, keyword string) ([]Summary, error) {
	if keyword == "" {
		return nil, record.ErrMissingKeyword
	}
	all, err := s.summaries(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(keyword)
	out := make([]Summary, 0)
	for _, sum := range all {
		if strings.Contains(strings.ToLower(sum.Text), needle) ||
			strings.Contains(strings.ToLower(sum.Description), needle) ||
			strings.Contains(strings.ToLower(sum.Filename), needle) {
			out = append(out, sum)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return record.SortKey(out[i].sortAt) > record.SortKey(out[j].sortAt)
	})
	return out, nil
}

// summaries projects every parsable record with an existing image in
// directory order, served from the cache when one is active. Records without
// an id are kept; List drops them, Search does not.
func (s *Store) summaries(ctx context.Context) ([]Summary, error) {
	if cached, ok := s.cache.get(); ok {
		return cached, nil
	}
	gen := s.cache.generation()

	names, err := s.repo.ListMeta(ctx)
	if err != nil {
		return nil, err
	}
	lg := mylog.LoggerFromContext(ctx)
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		raw, err := s.repo.Read(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lg.Debug("list_skip_unreadable", "file", name, "error", err)
			continue
		}
		m, err := record.ParseMetadata(raw)
		if err != nil {
			lg.Debug("list_skip_corrupt", "file", name, "error", err)
			continue
		}
		if m.Filename == "" {
			continue
		}
		ok, err := s.repo.Exists(ctx, m.Filename)
		if err != nil || !ok {
			continue
		}
		out = append(out, s.project(m))
	}
	s.cache.put(gen, out)
	return cloneSummaries(out), nil
}

func (s *Store) project(m *record.Metadata) Summary {
	savedAt := m.SavedAt
	if savedAt == "" {
		savedAt = m.CreatedAt
	}
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return Summary{
		ImageID:     m.ImageID,
		Filename:    m.Filename,
		Text:        m.Text,
		Description: m.Description,
		SavedAt:     savedAt,
		CreatedAt:   m.CreatedAt,
		ImageURL:    s.URL(m.Filename),
		Title:       m.Title,
		Tags:        tags,
		sortAt:      m.SavedAt,
	}
}

func cloneSummaries(in []Summary) []Summary {
	out := make([]Summary, len(in))
	for i, sum := range in {
		sum.Tags = append([]string{}, sum.Tags...)
		out[i] = sum
	}
	return out
}
