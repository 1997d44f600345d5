package kvstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(context.Background(), "user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetGetOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "currentWeather", `{"temperature":28}`))
	require.NoError(t, s.Set(ctx, "currentWeather", `{"temperature":31}`))

	v, ok, err := s.Get(ctx, "currentWeather")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"temperature":31}`, v)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "token", "abc"))
	require.NoError(t, s.Delete(ctx, "token"))
	require.NoError(t, s.Delete(ctx, "token"), "deleting a missing key is a no-op")

	_, ok, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	s1, err := Open(path, logger)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "user", `{"name":"Asha"}`))
	require.NoError(t, s1.Close())

	s2, err := Open(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	v, ok, err := s2.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"name":"Asha"}`, v)
	assert.NoError(t, s2.CheckReadiness(ctx))
}

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "user", `{"name":"Asha"}`))
	v, ok, err := m.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"Asha"}`, v)

	require.NoError(t, m.Delete(ctx, "user"))
	_, ok, _ = m.Get(ctx, "user")
	assert.False(t, ok)
}
