// Package textpix composes the record store and the AI gateway into the
// operations exposed over HTTP, MCP and the command line.
package textpix

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jlrickert/cli-toolkit/clock"
	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/jlrickert/textpix/pkg/gateway"
	"github.com/jlrickert/textpix/pkg/record"
	"github.com/jlrickert/textpix/pkg/store"
)

// DefaultMaxDescribeBytes is the largest image sent for description.
const DefaultMaxDescribeBytes = 20 * 1024 * 1024

// Fetcher downloads generated images.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options tune a Service.
type Options struct {
	// MaxDescribeBytes skips the description call for larger images. Zero
	// means DefaultMaxDescribeBytes.
	MaxDescribeBytes int

	// Clock overrides the clock carried by the context. It only affects the
	// dated default title; record timestamps come from the store.
	Clock store.Clock
}

// Service implements every user-facing operation.
type Service struct {
	store   *store.Store
	gateway gateway.Gateway
	fetcher Fetcher
	opts    Options
}

// New wires a Service.
func New(st *store.Store, gw gateway.Gateway, fetcher Fetcher, opts Options) *Service {
	if opts.MaxDescribeBytes <= 0 {
		opts.MaxDescribeBytes = DefaultMaxDescribeBytes
	}
	return &Service{store: st, gateway: gw, fetcher: fetcher, opts: opts}
}

// Store exposes the underlying record store.
func (s *Service) Store() *store.Store { return s.store }

func (s *Service) now(ctx context.Context) time.Time {
	if s.opts.Clock != nil {
		return s.opts.Clock.Now()
	}
	return clock.ClockFromContext(ctx).Now()
}

// CreateResult is returned by Create.
type CreateResult struct {
	ImageID         string
	ImageURL        string
	Description     string
	SuggestedTitles []string
	Metadata        *record.Metadata
}

// Create turns text into a new image record.
//
// Only image generation, download and persistence failures abort the
// operation. A failed prompt rewrite falls back to the text itself, and
// description or title failures are replaced by placeholders.
func (s *Service) Create(ctx context.Context, text string) (*CreateResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, record.ErrMissingText
	}
	lg := mylog.LoggerFromContext(ctx)

	prompt, err := s.gateway.RewriteAsPrompt(ctx, text)
	if err != nil || strings.TrimSpace(prompt) == "" {
		lg.Warn("prompt_rewrite_fallback", "error", err)
		prompt = text
	}

	url, err := s.gateway.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	image, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	description := s.describe(ctx, image, DescriptionFailed)
	titles := s.suggestTitles(ctx, text, description)

	m, err := s.store.Create(ctx, store.CreateParams{
		Text:        text,
		Prompt:      prompt,
		Description: description,
		Image:       image,
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{
		ImageID:         m.ImageID,
		ImageURL:        s.store.URL(m.Filename),
		Description:     description,
		SuggestedTitles: titles,
		Metadata:        m,
	}, nil
}

// describe asks for a description of image. Oversized images get the
// skipped placeholder; failures yield onFailure.
func (s *Service) describe(ctx context.Context, image []byte, onFailure string) string {
	lg := mylog.LoggerFromContext(ctx)
	if len(image) > s.opts.MaxDescribeBytes {
		lg.Info("describe_skipped", "bytes", len(image), "limit", s.opts.MaxDescribeBytes)
		return DescriptionSkipped
	}
	desc, err := s.gateway.DescribeImage(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		lg.Warn("describe_fallback", "error", err)
		return onFailure
	}
	return desc
}

func (s *Service) suggestTitles(ctx context.Context, text, description string) []string {
	raw, err := s.gateway.SuggestTitles(ctx, text, description)
	if err != nil {
		mylog.LoggerFromContext(ctx).Warn("titles_fallback", "error", err)
		return DefaultTitles(s.now(ctx))
	}
	titles := gateway.SplitTitles(raw)
	if len(titles) == 0 {
		return DefaultTitles(s.now(ctx))
	}
	return titles
}

// SaveInput identifies what to save: an existing record by id, or a remote
// image by URL.
type SaveInput struct {
	ImageID  string
	ImageURL string
	Text     string
}

// SaveResult is returned by Save.
type SaveResult struct {
	ImageID  string
	ImageURL string
	Created  bool
}

// Save marks an existing record as saved, or, without an id, downloads
// ImageURL into a brand-new record. Saving the same URL twice creates two
// records.
func (s *Service) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	if in.ImageID == "" {
		if in.ImageURL == "" {
			return nil, fmt.Errorf("%w: image id or image url is required", record.ErrMissingIdentifier)
		}
		image, err := s.fetcher.Fetch(ctx, in.ImageURL)
		if err != nil {
			return nil, err
		}
		m, err := s.store.SaveNew(ctx, image, in.Text)
		if err != nil {
			return nil, err
		}
		return &SaveResult{ImageID: m.ImageID, ImageURL: s.store.URL(m.Filename), Created: true}, nil
	}

	m, err := s.store.MarkSaved(ctx, in.ImageID, in.Text)
	if err != nil {
		return nil, err
	}
	id := m.CanonicalID(in.ImageID)
	return &SaveResult{ImageID: id, ImageURL: s.store.URL(m.ImageName(id))}, nil
}

// RegenerateResult is returned by Regenerate.
type RegenerateResult struct {
	ImageID     string
	ImageURL    string
	Description string
	Metadata    *record.Metadata
}

// Regenerate produces a new image for an existing record from new text. The
// record is located before any gateway call, so an unknown id fails fast. A
// failed prompt rewrite is fatal here; a failed description keeps the
// previous one.
func (s *Service) Regenerate(ctx context.Context, id, text string) (*RegenerateResult, error) {
	if id == "" {
		return nil, record.ErrMissingIdentifier
	}
	if strings.TrimSpace(text) == "" {
		return nil, record.ErrMissingText
	}

	m, err := s.store.Regenerate(ctx, id, func(ctx context.Context, prev *record.Metadata) (store.RegenerateParams, error) {
		prompt, err := s.gateway.RewriteAsPrompt(ctx, text)
		if err != nil {
			return store.RegenerateParams{}, fmt.Errorf("rewrite prompt: %w", err)
		}
		if strings.TrimSpace(prompt) == "" {
			prompt = text
		}
		url, err := s.gateway.GenerateImage(ctx, prompt)
		if err != nil {
			return store.RegenerateParams{}, fmt.Errorf("generate image: %w", err)
		}
		image, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return store.RegenerateParams{}, err
		}
		return store.RegenerateParams{
			Text:        text,
			Prompt:      prompt,
			Description: s.describe(ctx, image, prev.Description),
			Image:       image,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	canonical := m.CanonicalID(id)
	return &RegenerateResult{
		ImageID:     canonical,
		ImageURL:    s.store.URL(m.ImageName(canonical)),
		Description: m.Description,
		Metadata:    m,
	}, nil
}

// DescribeText returns the image-prompt style description of text without
// generating an image.
func (s *Service) DescribeText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", record.ErrMissingText
	}
	desc, err := s.gateway.RewriteAsPrompt(ctx, text)
	if err != nil {
		return "", fmt.Errorf("describe text: %w", err)
	}
	return desc, nil
}

// Load returns the editable view of a record.
func (s *Service) Load(ctx context.Context, id string) (*store.Loaded, error) {
	return s.store.Load(ctx, id)
}

// GetMetadata returns the stored metadata document verbatim.
func (s *Service) GetMetadata(ctx context.Context, id string) ([]byte, error) {
	return s.store.GetMetadata(ctx, id)
}

// UpdateText replaces the text of a record.
func (s *Service) UpdateText(ctx context.Context, id, text string) (*record.Metadata, error) {
	if id == "" {
		return nil, record.ErrMissingIdentifier
	}
	if text == "" {
		return nil, record.ErrMissingText
	}
	return s.store.UpdateText(ctx, id, text)
}

// UpdateMetadata applies a partial update of title, tags and description.
func (s *Service) UpdateMetadata(ctx context.Context, id string, p store.Patch) (*record.Metadata, error) {
	if id == "" {
		return nil, record.ErrMissingIdentifier
	}
	p.Tags = record.CleanTags(p.Tags)
	return s.store.UpdateMetadata(ctx, id, p)
}

// Delete removes a record. Deleting a record that no longer exists succeeds
// with nothing removed. When some artifacts could not be removed the call
// still succeeds and reports only what was removed.
func (s *Service) Delete(ctx context.Context, id string) ([]string, error) {
	lg := mylog.LoggerFromContext(ctx)
	deleted, err := s.store.Delete(ctx, id)
	switch {
	case err == nil:
		return deleted, nil
	case errors.Is(err, record.ErrNotFound):
		lg.Debug("delete_missing_record", "image_id", id)
		return []string{}, nil
	case len(deleted) > 0:
		lg.Warn("delete_partial", "image_id", id, "deleted", len(deleted), "error", err)
		return deleted, nil
	default:
		return nil, err
	}
}

// List returns record summaries, optionally filtered by a tag expression.
func (s *Service) List(ctx context.Context, tagExpr string) ([]store.Summary, error) {
	var opts store.ListOptions
	if strings.TrimSpace(tagExpr) != "" {
		q, err := record.ParseTagQuery(tagExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid tag expression: %w", err)
		}
		opts.Tags = q
	}
	return s.store.List(ctx, opts)
}

// Search returns records matching keyword.
func (s *Service) Search(ctx context.Context, keyword string) ([]store.Summary, error) {
	return s.store.Search(ctx, keyword)
}
