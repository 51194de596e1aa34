package textpix_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jlrickert/textpix/pkg/gateway"
	"github.com/jlrickert/textpix/pkg/store"
	"github.com/jlrickert/textpix/pkg/textpix"
)

var errUpstream = &gateway.Error{Op: "chat/completions", StatusCode: 500, Message: "upstream down"}

// fakeGateway scripts gateway answers and records calls.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	prompt      string
	promptErr   error
	imageURL    string
	imageErr    error
	description string
	describeErr error
	titles      string
	titlesErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		prompt:      "a detailed prompt",
		imageURL:    "https://cdn.example/generated.png",
		description: "an orange cat on a sofa",
		titles:      "Sofa Cat\nOrange Nap\nAfternoon",
	}
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) RewriteAsPrompt(_ context.Context, _ string) (string, error) {
	g.record("prompt")
	return g.prompt, g.promptErr
}

func (g *fakeGateway) GenerateImage(_ context.Context, _ string) (string, error) {
	g.record("image")
	return g.imageURL, g.imageErr
}

func (g *fakeGateway) DescribeImage(_ context.Context, _ string) (string, error) {
	g.record("describe")
	return g.description, g.describeErr
}

func (g *fakeGateway) SuggestTitles(_ context.Context, _, _ string) (string, error) {
	g.record("titles")
	return g.titles, g.titlesErr
}

// fakeFetcher returns fixed bytes for any url.
type fakeFetcher struct {
	mu   sync.Mutex
	data []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte(nil), f.data...), nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixture struct {
	ctx     context.Context
	repo    *store.MemoryRepo
	gateway *fakeGateway
	fetcher *fakeFetcher
	svc     *textpix.Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2024, 7, 15, 9, 30, 0, 0, time.Local)
	clk := fixedClock{t: now}
	repo := store.NewMemoryRepo()
	gw := newFakeGateway()
	fetch := &fakeFetcher{data: []byte("PNGBYTES")}
	st := store.New(repo, store.Options{Clock: clk})
	return &fixture{
		ctx:     context.Background(),
		repo:    repo,
		gateway: gw,
		fetcher: fetch,
		svc:     textpix.New(st, gw, fetch, textpix.Options{Clock: clk}),
		now:     now,
	}
}

var errDownload = &gateway.TransportError{URL: "x", Attempts: 3, Cause: errors.New("status 503")}
