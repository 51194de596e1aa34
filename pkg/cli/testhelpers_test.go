package cli_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jlrickert/textpix/pkg/cli"
	"github.com/jlrickert/textpix/pkg/config"
	"github.com/jlrickert/textpix/pkg/store"
)

type fakeGateway struct {
	imageErr error
}

func (fakeGateway) RewriteAsPrompt(_ context.Context, text string) (string, error) {
	return "painted: " + text, nil
}

func (g fakeGateway) GenerateImage(_ context.Context, _ string) (string, error) {
	if g.imageErr != nil {
		return "", g.imageErr
	}
	return "https://cdn.example/out.png", nil
}

func (fakeGateway) DescribeImage(_ context.Context, _ string) (string, error) {
	return "a lantern by the river", nil
}

func (fakeGateway) SuggestTitles(_ context.Context, _, _ string) (string, error) {
	return "Lantern\nRiver Night\nGlow", nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	return []byte("PNG"), nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type Fixture struct {
	Repo *store.MemoryRepo
	Deps func() *cli.Deps
}

func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	repo := store.NewMemoryRepo()
	clk := fixedClock{t: time.Date(2024, 9, 1, 21, 0, 0, 0, time.Local)}
	cfg := &config.Config{
		DataDir:          t.TempDir(),
		URLPrefix:        store.DefaultURLPrefix,
		Addr:             ":0",
		GatewayTimeout:   time.Minute,
		DownloadAttempts: 1,
		DownloadTimeout:  time.Second,
		MaxDescribeBytes: 1 << 20,
	}
	return &Fixture{
		Repo: repo,
		Deps: func() *cli.Deps {
			return &cli.Deps{
				Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
				Repo:    repo,
				Gateway: fakeGateway{},
				Fetcher: fakeFetcher{},
				Clock:   clk,
				Config:  cfg,
			}
		},
	}
}

type Result struct {
	Code   int
	Stdout string
	Stderr string
	Err    error
}

// Run executes one command line against fresh Deps sharing the fixture repo.
func (f *Fixture) Run(t *testing.T, stdin string, args ...string) Result {
	t.Helper()
	return f.RunWith(t, f.Deps(), stdin, args...)
}

func (f *Fixture) RunWith(t *testing.T, deps *cli.Deps, stdin string, args ...string) Result {
	t.Helper()
	var out, errOut bytes.Buffer
	code, err := cli.RunWithDeps(context.Background(), deps, args, strings.NewReader(stdin), &out, &errOut)
	return Result{Code: code, Stdout: out.String(), Stderr: errOut.String(), Err: err}
}
