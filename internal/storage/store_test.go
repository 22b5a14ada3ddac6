package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRecordStoreSuite(t *testing.T, newStore func(t *testing.T) RecordStore) {
	ctx := context.Background()

	t.Run("insert assigns id and timestamps", func(t *testing.T) {
		s := newStore(t)
		r, err := s.Insert(ctx, "entries", Record{Fields: map[string]string{"title": "t"}})
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
		assert.Equal(t, r.CreatedAt, r.UpdatedAt)
	})

	t.Run("get by id and by field", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Insert(ctx, "entries", Record{Fields: map[string]string{"folder": "f1"}})
		require.NoError(t, err)
		_, err = s.Insert(ctx, "entries", Record{Fields: map[string]string{"folder": "f2"}})
		require.NoError(t, err)
		_, err = s.Insert(ctx, "tags", Record{Fields: map[string]string{"folder": "f1"}})
		require.NoError(t, err)

		got, err := s.Get(ctx, "entries", Filter{ID: a.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "f1", got[0].Fields["folder"])

		got, err = s.Get(ctx, "entries", Filter{Fields: map[string]string{"folder": "f1"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)

		all, err := s.Get(ctx, "entries", Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		none, err := s.Get(ctx, "entries", Filter{ID: "missing"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, "entries", Record{ID: "fixed"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, "entries", Record{ID: "fixed"})
		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict)
	})

	t.Run("update merges fields", func(t *testing.T) {
		s := newStore(t)
		r, err := s.Insert(ctx, "entries", Record{Fields: map[string]string{"title": "old", "mood": "m"}})
		require.NoError(t, err)

		u, err := s.Update(ctx, "entries", r.ID, map[string]string{"title": "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", u.Fields["title"])
		assert.Equal(t, "m", u.Fields["mood"])

		_, err = s.Update(ctx, "entries", "missing", map[string]string{"title": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		r, err := s.Insert(ctx, "entries", Record{})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "entries", r.ID))
		assert.ErrorIs(t, s.Delete(ctx, "entries", r.ID), ErrNotFound)

		got, err := s.Get(ctx, "entries", Filter{ID: r.ID})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		s := newStore(t)
		r, err := s.Insert(ctx, "entries", Record{Fields: map[string]string{"title": "keep"}})
		require.NoError(t, err)
		r.Fields["title"] = "mutated"

		got, err := s.Get(ctx, "entries", Filter{ID: r.ID})
		require.NoError(t, err)
		assert.Equal(t, "keep", got[0].Fields["title"])
	})
}

func TestMemoryStore(t *testing.T) {
	runRecordStoreSuite(t, func(t *testing.T) RecordStore {
		return NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	runRecordStoreSuite(t, func(t *testing.T) RecordStore {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "records.json"))
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "records.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	r, err := s.Insert(ctx, "folders", Record{Fields: map[string]string{"name": "enc"}})
	require.NoError(t, err)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "folders", Filter{ID: r.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "enc", got[0].Fields["name"])
	assert.Equal(t, path, reopened.Path())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Get(ctx, "entries", Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory://", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	path := filepath.Join(t.TempDir(), "r.json")
	s, err = Open(ctx, "file://"+path, "")
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)
	assert.Equal(t, path, s.(*FileStore).Path())

	_, err = Open(ctx, "postgres://db", "")
	assert.Error(t, err)

	_, err = Open(ctx, "dynamodb://?region=us-east-1", "")
	assert.Error(t, err)
}

func TestFilter_Matches(t *testing.T) {
	r := Record{ID: "1", Fields: map[string]string{"a": "x", "b": "y"}}

	assert.True(t, Filter{}.Matches(r))
	assert.True(t, Filter{ID: "1"}.Matches(r))
	assert.False(t, Filter{ID: "2"}.Matches(r))
	assert.True(t, Filter{Fields: map[string]string{"a": "x"}}.Matches(r))
	assert.False(t, Filter{Fields: map[string]string{"a": "x", "b": "z"}}.Matches(r))
	assert.False(t, Filter{Fields: map[string]string{"c": "x"}}.Matches(r))
}
