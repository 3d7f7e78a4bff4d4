package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) (*LocalFileStorage, string) {
	t.Helper()
	dir := t.TempDir()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return NewLocalFileStorage(dir, logger).(*LocalFileStorage), dir
}

func TestLocalFileStorage_SaveAndRead(t *testing.T) {
	store, dir := newTestStorage(t)
	ctx := context.Background()

	content := []byte("pdf bytes")
	err := store.Save(ctx, "soa/req-1/v1_statement.pdf", content)
	require.NoError(t, err)

	// Nested directories are created under the base dir
	_, err = os.Stat(filepath.Join(dir, "soa", "req-1", "v1_statement.pdf"))
	require.NoError(t, err)

	got, err := store.Read(ctx, "soa/req-1/v1_statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalFileStorage_Exists(t *testing.T) {
	store, _ := newTestStorage(t)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "soa/missing.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Save(ctx, "soa/present.pdf", []byte("x")))

	exists, err = store.Exists(ctx, "soa/present.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFileStorage_Read_Missing(t *testing.T) {
	store, _ := newTestStorage(t)

	_, err := store.Read(context.Background(), "soa/missing.pdf")
	assert.Error(t, err)
}

func TestLocalFileStorage_RejectsTraversal(t *testing.T) {
	store, dir := newTestStorage(t)
	ctx := context.Background()

	// Traversal segments are cleaned away, so the write stays inside the
	// base dir instead of escaping it
	err := store.Save(ctx, "../outside.pdf", []byte("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "outside.pdf"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "outside.pdf"))
	assert.NoError(t, err)
}
