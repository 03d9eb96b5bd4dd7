// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/poewiki-assets/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		store, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, store.BaseDir())
		assert.DirExists(t, dir)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		data := []byte("png bytes")
		uri, err := store.PutObject(context.Background(), "items/Foo.png", "image/png", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "items/Foo.png"), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, "items/Foo.png"))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "image/png", bytes.NewReader(nil))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../escape.png", "image/png", bytes.NewReader(nil))
		assert.Error(t, err)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.PutObject(ctx, "x.png", "image/png", bytes.NewReader(nil))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCopier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "assets", "nodes", "Acrobatics.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o750))
	require.NoError(t, os.WriteFile(src, []byte("node"), 0o600))

	dst := filepath.Join(dir, "out", "Acrobatics.png")
	require.NoError(t, local.NewCopier().Copy(context.Background(), src, dst))

	// #nosec G304 -- test reads from the controlled temp directory.
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "node", string(got))

	err = local.NewCopier().Copy(context.Background(), filepath.Join(dir, "missing.png"), dst)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteFileOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "Foo.png")
	require.NoError(t, local.WriteFile(path, []byte("one"), false))
	require.NoError(t, local.WriteFile(path, []byte("two"), true))

	err := local.WriteFile(path, []byte("three"), false)
	assert.True(t, errors.Is(err, os.ErrExist))

	// #nosec G304 -- test reads from the controlled temp directory.
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestListFilenames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))

	names, err := local.ListFilenames(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.png"}, names)

	missing, err := local.ListFilenames(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
