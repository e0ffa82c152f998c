package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikequentel/sheetposter/internal/rowstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	var cfgErr *rowstore.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestListRows_Empty(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ListRows(context.Background())
	var storeErr *rowstore.StoreError
	require.True(t, errors.As(err, &storeErr))
	require.ErrorIs(t, err, rowstore.ErrNoRows)
}

func TestAppendThenList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendRow(ctx, "a.jpg, b.jpg", "first"))
	require.NoError(t, s.AppendRow(ctx, "c.jpg,, c.jpg", "second"))

	rows, err := s.ListRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "first", rows[0].Caption)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, rows[0].ImageURLs)
	require.Equal(t, []string{"c.jpg", "c.jpg"}, rows[1].ImageURLs)
	require.Less(t, rows[0].Row, rows[1].Row)
}

func TestOpen_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.sqlite")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.AppendRow(ctx, "x.png", "kept"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.ListRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "kept", rows[0].Caption)
}
