package repository

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"streak-keeper/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleCategories() []model.Category {
	logged := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)
	return []model.Category{
		{ID: 1, Name: "Учёба", Streak: 3, LastLogin: &logged},
		{ID: 2, Name: "Спорт"},
		{ID: 5, Name: "Чтение", Streak: 12, LastLogin: &logged},
	}
}

func assertSameCategories(t *testing.T, want, got []model.Category) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Streak, got[i].Streak)
		if want[i].LastLogin == nil {
			assert.Nil(t, got[i].LastLogin)
			continue
		}
		require.NotNil(t, got[i].LastLogin)
		assert.True(t, want[i].LastLogin.Equal(*got[i].LastLogin), "lastLogin of %d", want[i].ID)
	}
}

func TestCategoryRepository_SaveLoad(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "streaks.db"), quietLogger())
	require.NoError(t, err)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.Save(ctx, sampleCategories()))
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assertSameCategories(t, sampleCategories(), got)

	// Last write wins: the second snapshot fully replaces the first.
	replacement := []model.Category{{ID: 9, Name: "Код"}}
	require.NoError(t, repo.Save(ctx, replacement))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assertSameCategories(t, replacement, got)

	require.NoError(t, repo.Save(ctx, nil))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewDB_Memory(t *testing.T) {
	db, err := NewDB(":memory:", quietLogger())
	require.NoError(t, err)
	repo := NewCategoryRepository(db)

	require.NoError(t, repo.Save(context.Background(), sampleCategories()))
	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "streaks.json")
	store := NewFileStore(path, quietLogger())
	ctx := context.Background()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Save(ctx, sampleCategories()))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assertSameCategories(t, sampleCategories(), got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastLogin": "2024-01-31T10:00:00Z"`)
	assert.Contains(t, string(raw), `"lastLogin": null`)
	assert.NotContains(t, string(raw), "CreatedAt")
}

func TestFileStore_CancelledContext(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, sampleCategories()), context.Canceled)
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeSnapshot_CorruptRecords(t *testing.T) {
	blob := `[
		{"id": 1, "name": "Учёба", "streak": 4, "lastLogin": "2024-02-01T09:00:00+09:00"},
		{"id": 2, "name": "Спорт", "streak": 3, "lastLogin": "yesterday"},
		{"id": 3, "name": "Чтение", "streak": -2, "lastLogin": "2024-02-01T09:00:00Z"},
		{"id": 4, "name": "Код", "streak": "many", "lastLogin": null},
		{"id": "x", "name": "Без id"},
		{"id": 6, "name": "   "},
		"garbage",
		{"id": 1, "name": "Дубликат"},
		{"id": 7, "name": "Йога", "streak": 2}
	]`

	got, err := DecodeSnapshot(strings.NewReader(blob), quietLogger())
	require.NoError(t, err)

	require.Len(t, got, 5)
	assert.Equal(t, uint(1), got[0].ID)
	assert.Equal(t, 4, got[0].Streak)
	require.NotNil(t, got[0].LastLogin)

	for _, c := range got[1:] {
		assert.Zero(t, c.Streak, "category %d", c.ID)
		assert.Nil(t, c.LastLogin, "category %d", c.ID)
	}
	assert.Equal(t, []uint{1, 2, 3, 4, 7}, []uint{got[0].ID, got[1].ID, got[2].ID, got[3].ID, got[4].ID})
}

func TestDecodeSnapshot_Blob(t *testing.T) {
	got, err := DecodeSnapshot(strings.NewReader("  \n"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DecodeSnapshot(strings.NewReader(`{"id": 1}`), quietLogger())
	assert.Error(t, err)
}

func TestEncodeSnapshot_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, sampleCategories(), FormatYAML))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "Учёба", decoded[0]["name"])
	assert.Equal(t, 3, decoded[0]["streak"])
	assert.Nil(t, decoded[1]["lastLogin"])
	assert.NotContains(t, buf.String(), "createdat")
}

func TestEncodeSnapshot_UnknownFormat(t *testing.T) {
	assert.Error(t, EncodeSnapshot(io.Discard, nil, "xml"))
}

func TestEncodeSnapshot_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestDecodeSnapshotYAML_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, sampleCategories(), FormatYAML))

	got, err := DecodeSnapshotAs(&buf, FormatYAML, quietLogger())
	require.NoError(t, err)
	assertSameCategories(t, sampleCategories(), got)
}

func TestDecodeSnapshotYAML_CorruptRecord(t *testing.T) {
	doc := `
- id: 1
  name: Учёба
  streak: 4
  lastLogin: "not a time"
- id: 2
  name: ""
`
	got, err := DecodeSnapshotYAML(strings.NewReader(doc), quietLogger())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Streak)
	assert.Nil(t, got[0].LastLogin)

	got, err = DecodeSnapshotYAML(strings.NewReader(""), quietLogger())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeSnapshotAs_UnknownFormat(t *testing.T) {
	_, err := DecodeSnapshotAs(strings.NewReader("[]"), "xml", quietLogger())
	assert.Error(t, err)
}
