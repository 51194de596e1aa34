package cli_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlrickert/textpix/pkg/record"
	"github.com/jlrickert/textpix/pkg/store"
)

func createRecord(t *testing.T, f *Fixture, text string) string {
	t.Helper()
	res := f.Run(t, "", "create", text)
	require.NoError(t, res.Err)
	id := strings.TrimSpace(strings.SplitN(res.Stdout, "\n", 2)[0])
	require.True(t, strings.HasPrefix(id, record.IDPrefix), res.Stdout)
	return id
}

func TestCreateCommand(t *testing.T) {
	t.Parallel()
	f := NewFixture(t)

	res := f.Run(t, "", "create", "river", "lantern")
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "description: a lantern by the river")
	require.Contains(t, res.Stdout, "titles: Lantern | River Night | Glow")

	var out map[string]any
	res = f.Run(t, "lanterns from stdin\n", "create", "--json")
	require.NoError(t, res.Err)
	decodeJSON(t, res.Stdout, &out)
	require.Equal(t, "a lantern by the river", out["description"])

	loaded := f.Run(t, "", "load", out["imageId"].(string))
	require.NoError(t, loaded.Err)
	var view store.Loaded
	decodeJSON(t, loaded.Stdout, &view)
	require.Equal(t, "lanterns from stdin", view.Text)
}

func TestMetaCommand(t *testing.T) {
	t.Parallel()
	f := NewFixture(t)
	id := createRecord(t, f, "river")

	res := f.Run(t, "", "meta", id)
	require.NoError(t, res.Err)
	m, err := record.ParseMetadata([]byte(res.Stdout))
	require.NoError(t, err)
	require.Equal(t, id, m.ImageID)

	res = f.Run(t, "", "meta", id, "--yaml")
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "image_id: "+id+"\n")
	require.Contains(t, res.Stdout, "text: river\n")
	require.Contains(t, res.Stdout, "saved: true\n")
	require.Less(t, strings.Index(res.Stdout, "image_id:"), strings.Index(res.Stdout, "filename:"))
}

func TestUpdateCommands(t *testing.T) {
	t.Parallel()
	f := NewFixture(t)
	id := createRecord(t, f, "river")

	res := f.Run(t, "", "update-meta", id, "--title", "Night River", "--tags", "night, water,night")
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "title: Night River")
	require.Contains(t, res.Stdout, "tags: night, water")

	res = f.Run(t, "", "update-meta", id, "--tags", "calm")
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "title: Night River")

	res = f.Run(t, "", "update-text", id, "a", "wide", "river")
	require.NoError(t, res.Err)

	var view store.Loaded
	decodeJSON(t, f.Run(t, "", "load", id).Stdout, &view)
	require.Equal(t, "a wide river", view.Text)
	require.Equal(t, "Night River", view.Title)
	require.Equal(t, "a lantern by the river", view.Description)
}

func TestListAndSearchCommands(t *testing.T) {
	t.Parallel()
	f := NewFixture(t)
	a := createRecord(t, f, "mountain lake")
	b := createRecord(t, f, "city street")
	require.NoError(t, f.Run(t, "", "update-meta", b, "--tags", "urban,night").Err)

	res := f.Run(t, "", "list")
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "ID")
	require.Contains(t, res.Stdout, a)
	require.Contains(t, res.Stdout, b)

	var items []store.Summary
	res = f.Run(t, "", "list", "--json", "--tags", "night and not lake")
	require.NoError(t, res.Err)
	decodeJSON(t, res.Stdout, &items)
	require.Len(t, items, 1)
	require.Equal(t, b, items[0].ImageID)

	res = f.Run(t, "", "search", "MOUNTAIN", "--json")
	require.NoError(t, res.Err)
	decodeJSON(t, res.Stdout, &items)
	require.Len(t, items, 1)
	require.Equal(t, a, items[0].ImageID)

	res = f.Run(t, "", "search", "nothing-matches", "--json")
	require.NoError(t, res.Err)
	require.Equal(t, "[]\n", res.Stdout)

	res = f.Run(t, "", "search", "")
	require.ErrorIs(t, res.Err, record.ErrMissingKeyword)
}

func TestRmCommand(t *testing.T) {
	t.Parallel()
	f := NewFixture(t)
	id := createRecord(t, f, "river")

	res := f.Run(t, "", "rm", id)
	require.NoError(t, res.Err)
	require.Len(t, strings.Split(strings.TrimSpace(res.Stdout), "\n"), 4)
	require.Empty(t, f.Repo.Names())

	res = f.Run(t, "", "rm", id)
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "already deleted")
}

func TestSaveAndDescribeCommands(t *testing.T) {
	t.Parallel()
	f := NewFixture(t)

	res := f.Run(t, "", "save", "--url", "https://cdn.example/x.png", "--text", "found online")
	require.NoError(t, res.Err)
	id := strings.TrimSpace(res.Stdout)

	var view store.Loaded
	decodeJSON(t, f.Run(t, "", "load", id).Stdout, &view)
	require.Equal(t, "found online", view.Text)

	res = f.Run(t, "", "save")
	require.ErrorIs(t, res.Err, record.ErrMissingIdentifier)

	res = f.Run(t, "", "describe", "a", "quiet", "night")
	require.NoError(t, res.Err)
	require.Equal(t, "painted: a quiet night\n", res.Stdout)
}

func TestRegenerateCommand(t *testing.T) {
	t.Parallel()
	f := NewFixture(t)
	id := createRecord(t, f, "river")

	res := f.Run(t, "", "regenerate", id, "ocean")
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, id)

	var view store.Loaded
	decodeJSON(t, f.Run(t, "", "load", id).Stdout, &view)
	require.Equal(t, "ocean", view.Text)
}
