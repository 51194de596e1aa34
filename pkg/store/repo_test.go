package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jlrickert/textpix/pkg/store"
	"github.com/stretchr/testify/require"
)

func repos(t *testing.T) map[string]store.Repository {
	return map[string]store.Repository{
		"memory": store.NewMemoryRepo(),
		"fs":     store.NewFsRepo(filepath.Join(t.TempDir(), "uploads")),
	}
}

func TestRepository_Contract(t *testing.T) {
	t.Parallel()

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			names, err := repo.ListMeta(ctx)
			require.NoError(t, err)
			require.Empty(t, names)

			require.NoError(t, repo.Write(ctx, "b_metadata.json", []byte(`{}`)))
			require.NoError(t, repo.Write(ctx, "a_metadata.json", []byte(`{}`)))
			require.NoError(t, repo.Write(ctx, "a.png", []byte("img")))
			require.NoError(t, repo.Write(ctx, "_metadata.json", []byte(`{}`)))

			names, err = repo.ListMeta(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"a_metadata.json", "b_metadata.json"}, names)

			data, err := repo.Read(ctx, "a.png")
			require.NoError(t, err)
			require.Equal(t, []byte("img"), data)

			ok, err := repo.Exists(ctx, "a.png")
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, repo.Remove(ctx, "a.png"))
			ok, err = repo.Exists(ctx, "a.png")
			require.NoError(t, err)
			require.False(t, ok)

			_, err = repo.Read(ctx, "a.png")
			require.ErrorIs(t, err, os.ErrNotExist)
			require.ErrorIs(t, repo.Remove(ctx, "a.png"), os.ErrNotExist)
		})
	}
}

func TestRepository_RejectsPathNames(t *testing.T) {
	t.Parallel()

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, bad := range []string{"", "..", "../x.png", "a/b.png", `a\b.png`} {
				require.ErrorIs(t, repo.Write(ctx, bad, nil), store.ErrInvalidName, bad)
				_, err := repo.Read(ctx, bad)
				require.ErrorIs(t, err, store.ErrInvalidName, bad)
			}
		})
	}
}

func TestMemoryRepo_ReadReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := store.NewMemoryRepo()
	require.NoError(t, r.Write(ctx, "a", []byte("abc")))
	data, err := r.Read(ctx, "a")
	require.NoError(t, err)
	data[0] = 'z'
	again, err := r.Read(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}

func TestFsRepo_WritesIntoRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "uploads")
	r := store.NewFsRepo(root)
	require.NoError(t, r.Write(context.Background(), "x_metadata.json", []byte(`{}`)))

	data, err := os.ReadFile(filepath.Join(root, "x_metadata.json"))
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))
}
