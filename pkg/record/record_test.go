package record_test

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jlrickert/textpix/pkg/record"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^img_[0-9]+_[0-9a-f]{13}$`)

func TestNewID_FormatAndUniqueness(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := record.NewID(now)
		require.Regexp(t, idPattern, id)
		require.Contains(t, id, "_1700000000_")
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestLayoutNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "img_1_a_metadata.json", record.MetaName("img_1_a"))
	require.Equal(t, "img_1_a_text.txt", record.TextName("img_1_a"))
	require.Equal(t, "img_1_a_description.txt", record.DescriptionName("img_1_a"))
	require.Equal(t, "img_1_a.png", record.DefaultImageName("img_1_a"))

	id, ok := record.IDFromMetaName("img_1_a_metadata.json")
	require.True(t, ok)
	require.Equal(t, "img_1_a", id)

	_, ok = record.IDFromMetaName("img_1_a_text.txt")
	require.False(t, ok)
	_, ok = record.IDFromMetaName("_metadata.json")
	require.False(t, ok)
}

func TestSortKey(t *testing.T) {
	t.Parallel()

	local := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{"empty", "", 0},
		{"garbage", "yesterday", 0},
		{"stored format", "2024-05-06 07:08:09", local.Unix()},
		{"rfc3339", "2024-05-06T07:08:09Z", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC).Unix()},
		{"date only", "2024-05-06", time.Date(2024, 5, 6, 0, 0, 0, 0, time.Local).Unix()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, record.SortKey(tc.in))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	require.Equal(t, "2024-01-02 03:04:05", record.FormatTimestamp(ts))
}

func TestCleanTags(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "b"}, record.CleanTags([]string{" a", "", "b ", "a"}))
	require.Nil(t, record.CleanTags([]string{" ", ""}))
	require.Equal(t, []string{"x", "y z"}, record.ParseTags("x, y z ,,x"))
	require.Nil(t, record.ParseTags("  "))
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	nf := record.NewNotFoundError("image", "img_1_a")
	require.ErrorIs(t, nf, record.ErrNotFound)
	require.True(t, record.IsNotFound(nf))
	require.Equal(t, "image not found: img_1_a", nf.Error())

	cause := errors.New("disk full")
	pe := record.NewPersistenceError("write", "a.json", cause)
	require.ErrorIs(t, pe, record.ErrPersistence)
	require.ErrorIs(t, pe, cause)

	ce := record.NewCorruptError("a.json", cause)
	require.ErrorIs(t, ce, record.ErrCorrupt)

	require.True(t, record.IsValidation(record.ErrMissingText))
	require.False(t, record.IsValidation(nf))
}
