package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveReadDelete(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := NewLocalFileStorage(base, zap.NewNop())

	path := "permits/4/plan.pdf"
	require.NoError(t, s.Save(ctx, path, []byte("%PDF-1.7")))
	assert.True(t, s.Exists(ctx, path))
	assert.FileExists(t, filepath.Join(base, "permits", "4", "plan.pdf"))

	content, err := s.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), content)

	require.NoError(t, s.Save(ctx, path, []byte("replaced")))
	content, err = s.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(content))

	require.NoError(t, s.Delete(ctx, path))
	assert.False(t, s.Exists(ctx, path))

	// second delete is a no-op
	require.NoError(t, s.Delete(ctx, path))
}

func TestLocalFileStorage_ReadMissing(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())

	_, err := s.Read(context.Background(), "permits/1/none.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalFileStorage_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := NewLocalFileStorage(filepath.Join(base, "docs"), zap.NewNop())

	for _, path := range []string{"../outside.txt", "permits/../../outside.txt", "", "."} {
		assert.Error(t, s.Save(ctx, path, []byte("x")), path)
		assert.False(t, s.Exists(ctx, path), path)
	}
	assert.NoFileExists(t, filepath.Join(base, "outside.txt"))
}

func TestLocalFileStorage_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := NewLocalFileStorage(base, zap.NewNop())

	require.NoError(t, s.Save(ctx, "permits/2/photo.jpg", []byte{0xff, 0xd8}))

	entries, err := os.ReadDir(filepath.Join(base, "permits", "2"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "photo.jpg", entries[0].Name())
}
