package journal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/field"
	"github.com/jotvault/jotvault/internal/storage"
)

const testKey = "correct horse battery staple"

func newTestService(t *testing.T, store storage.RecordStore, key string) (*Service, *bytes.Buffer) {
	t.Helper()
	envelopes, err := crypto.NewCodec(crypto.InsecureKDFParams())
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewService(store, field.NewCodec(envelopes), key, logger), &logs
}

func TestService_CreateAndGetEntry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s, logs := newTestService(t, store, testKey)

	created, err := s.CreateEntry(ctx, EntryInput{
		Title:    "My secret entry",
		Content:  "Dear diary",
		Mood:     "happy",
		Tags:     []string{"work", " travel ", "Work", ""},
		FolderID: "folder-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"work", "travel"}, created.Tags)

	got, err := s.GetEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "My secret entry", got.Title)
	assert.Equal(t, "Dear diary", got.Content)
	assert.True(t, got.Mood.Known)
	assert.Equal(t, "Happy", got.Mood.Label)
	assert.Equal(t, "folder-1", got.FolderID)

	raw, err := store.Get(ctx, TableEntries, storage.Filter{ID: created.ID})
	require.NoError(t, err)
	require.Len(t, raw, 1)
	for _, name := range []string{fieldTitle, fieldContent, fieldMood, fieldTags} {
		assert.True(t, s.fields.IsEncrypted(raw[0].Fields[name]), name)
	}
	assert.Equal(t, "folder-1", raw[0].Fields[fieldFolderID])
	assert.NotContains(t, logs.String(), "Dear diary")
}

func TestService_CreateEntryValidation(t *testing.T) {
	s, _ := newTestService(t, storage.NewMemoryStore(), testKey)

	_, err := s.CreateEntry(context.Background(), EntryInput{Title: "  ", Mood: "sad"})
	assert.ErrorIs(t, err, ErrEmptyEntry)
}

func TestService_GetEntryNotFound(t *testing.T) {
	s, _ := newTestService(t, storage.NewMemoryStore(), testKey)

	_, err := s.GetEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, storage.NewMemoryStore(), testKey)

	e, err := s.CreateEntry(ctx, EntryInput{Title: "old", Content: "body", Mood: "Sad"})
	require.NoError(t, err)

	updated, err := s.UpdateEntry(ctx, e.ID, EntryPatch{
		Title: ptr("new"),
		Mood:  ptr(""),
		Tags:  ptr([]string{"late"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "body", updated.Content)
	assert.False(t, updated.Mood.Present())
	assert.Equal(t, []string{"late"}, updated.Tags)

	same, err := s.UpdateEntry(ctx, e.ID, EntryPatch{})
	require.NoError(t, err)
	assert.Equal(t, "new", same.Title)

	_, err = s.UpdateEntry(ctx, "missing", EntryPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_DeleteEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, storage.NewMemoryStore(), testKey)

	e, err := s.CreateEntry(ctx, EntryInput{Title: "bye"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEntry(ctx, e.ID))
	assert.ErrorIs(t, s.DeleteEntry(ctx, e.ID), storage.ErrNotFound)
}

func TestService_ListEntries(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, storage.NewMemoryStore(), testKey)
	s.workers = 3

	for i := 0; i < 12; i++ {
		folder := "a"
		if i%2 == 1 {
			folder = "b"
		}
		_, err := s.CreateEntry(ctx, EntryInput{Title: fmt.Sprintf("entry %d", i), FolderID: folder})
		require.NoError(t, err)
	}

	all, err := s.ListEntries(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 12)

	inA, err := s.ListEntries(ctx, ListOptions{FolderID: "a"})
	require.NoError(t, err)
	require.Len(t, inA, 6)
	for _, e := range inA {
		assert.Equal(t, "a", e.FolderID)
	}
}

func TestService_ListEntriesKeyMismatch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writer, _ := newTestService(t, store, testKey)
	for i := 0; i < 3; i++ {
		_, err := writer.CreateEntry(ctx, EntryInput{Title: fmt.Sprintf("t%d", i)})
		require.NoError(t, err)
	}

	reader, logs := newTestService(t, store, "wrong password")
	entries, err := reader.ListEntries(ctx, ListOptions{})
	assert.ErrorIs(t, err, ErrKeyMismatch)
	assert.Nil(t, entries)
	assert.Contains(t, logs.String(), "no stored field could be authenticated")
}

func TestService_ListEntriesPartialFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	good, _ := newTestService(t, store, testKey)
	other, _ := newTestService(t, store, "another key")

	_, err := good.CreateEntry(ctx, EntryInput{Title: "readable"})
	require.NoError(t, err)
	_, err = other.CreateEntry(ctx, EntryInput{Title: "foreign"})
	require.NoError(t, err)

	entries, err := good.ListEntries(ctx, ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, crypto.ErrAuthentication)
	assert.NotErrorIs(t, err, ErrKeyMismatch)
	require.Len(t, entries, 1)
	assert.Equal(t, "readable", entries[0].Title)
}

func TestService_ListEntriesLegacyPlaintext(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_, err := store.Insert(ctx, TableEntries, storage.Record{Fields: map[string]string{
		fieldTitle: "written before encryption",
		fieldMood:  "Very Happy",
		fieldTags:  "work, home",
	}})
	require.NoError(t, err)

	s, _ := newTestService(t, store, testKey)
	entries, err := s.ListEntries(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "written before encryption", entries[0].Title)
	assert.Equal(t, "Very Happy", entries[0].Mood.Label)
	assert.Equal(t, []string{"work", "home"}, entries[0].Tags)
}

func TestService_FoldersAndTags(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s, _ := newTestService(t, store, testKey)

	f, err := s.CreateFolder(ctx, "Personal", "#ff0000")
	require.NoError(t, err)
	assert.Equal(t, "Personal", f.Name)

	_, err = s.CreateTag(ctx, "gratitude", "")
	require.NoError(t, err)

	_, err = s.CreateFolder(ctx, " ", "#fff")
	assert.ErrorIs(t, err, ErrEmptyName)

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "#ff0000", folders[0].Color)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "gratitude", tags[0].Name)
	assert.Empty(t, tags[0].Color)

	raw, err := store.Get(ctx, TableFolders, storage.Filter{ID: f.ID})
	require.NoError(t, err)
	assert.True(t, s.fields.IsEncrypted(raw[0].Fields[fieldName]))
	assert.True(t, s.fields.IsEncrypted(raw[0].Fields[fieldColor]))
}

func TestService_Migrate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s, _ := newTestService(t, store, testKey)

	legacy, err := store.Insert(ctx, TableEntries, storage.Record{Fields: map[string]string{
		fieldTitle:    "old title",
		fieldContent:  "old content",
		fieldMood:     "ok",
		fieldTags:     "work, travel",
		fieldFolderID: "f1",
	}})
	require.NoError(t, err)
	_, err = store.Insert(ctx, TableFolders, storage.Record{Fields: map[string]string{
		fieldName:  "Legacy folder",
		fieldColor: "#00ff00",
	}})
	require.NoError(t, err)
	modern, err := s.CreateEntry(ctx, EntryInput{Title: "already encrypted"})
	require.NoError(t, err)

	report, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrateReport{Entries: 1, Folders: 1}, report)
	assert.Equal(t, 2, report.Total())

	raw, err := store.Get(ctx, TableEntries, storage.Filter{ID: legacy.ID})
	require.NoError(t, err)
	for _, name := range []string{fieldTitle, fieldContent, fieldMood, fieldTags} {
		assert.True(t, s.fields.IsEncrypted(raw[0].Fields[name]), name)
	}
	assert.Equal(t, "f1", raw[0].Fields[fieldFolderID])

	e, err := s.GetEntry(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "old title", e.Title)
	assert.Equal(t, "Neutral", e.Mood.Label)
	assert.Equal(t, []string{"work", "travel"}, e.Tags)

	untouched, err := s.GetEntry(ctx, modern.ID)
	require.NoError(t, err)
	assert.Equal(t, "already encrypted", untouched.Title)

	again, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Total())
}
