package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/dreami/internal/memory"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_LoadEmpty(t *testing.T) {
	s := openTestDB(t)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, memory.ErrNoSavedState)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	want := sampleLog()

	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Role, got[i].Role)
		assert.Equal(t, want[i].Content, got[i].Content)
	}
	require.NotNil(t, got[1].Timestamp)
	assert.True(t, got[1].Timestamp.Equal(*want[1].Timestamp))
	assert.Nil(t, got[0].Timestamp)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleLog()))
	require.NoError(t, s.Save(ctx, sampleLog()[:1]))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, memory.RoleSystem, got[0].Role)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleLog()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
