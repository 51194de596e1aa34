package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jlrickert/textpix/pkg/record"
	"github.com/jlrickert/textpix/pkg/store"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock shared by a fixture.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	repo  *store.MemoryRepo
	clock *testClock
	store *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)}
	repo := store.NewMemoryRepo()
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		repo:  repo,
		clock: clk,
		store: store.New(repo, store.Options{Clock: clk}),
	}
}

// put writes a raw metadata document plus an image for id.
func (f *fixture) put(id, doc string, withImage bool) {
	f.t.Helper()
	require.NoError(f.t, f.repo.Write(f.ctx, record.MetaName(id), []byte(doc)))
	if withImage {
		require.NoError(f.t, f.repo.Write(f.ctx, record.DefaultImageName(id), []byte("png")))
	}
}

func (f *fixture) read(name string) string {
	f.t.Helper()
	data, err := f.repo.Read(f.ctx, name)
	require.NoError(f.t, err)
	return string(data)
}

func (f *fixture) exists(name string) bool {
	f.t.Helper()
	ok, err := f.repo.Exists(f.ctx, name)
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) meta(id string) *record.Metadata {
	f.t.Helper()
	m, err := record.ParseMetadata([]byte(f.read(record.MetaName(id))))
	require.NoError(f.t, err)
	return m
}

func (f *fixture) create(text string) *record.Metadata {
	f.t.Helper()
	m, err := f.store.Create(f.ctx, store.CreateParams{
		Text:        text,
		Prompt:      "prompt for " + text,
		Description: "description of " + text,
		Image:       []byte("image:" + text),
	})
	require.NoError(f.t, err)
	return m
}
