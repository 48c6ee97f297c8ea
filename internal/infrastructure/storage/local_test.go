package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) (afero.Fs, *LocalStorage) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewLocalStorage(fs, "/data/uploads")
	require.NoError(t, err)
	return fs, s
}

func TestLocalStorage_StoreOpenDelete(t *testing.T) {
	fs, s := newStorage(t)

	path, size, err := s.Store(context.Background(), strings.NewReader("invoice body"), "Invoice.PDF")
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)
	assert.Equal(t, "/data/uploads", filepath.Dir(path))
	assert.Equal(t, ".pdf", filepath.Ext(path))

	// 临时文件已被 rename，目录里只有一个文件
	entries, err := afero.ReadDir(fs, "/data/uploads")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	rc, err := s.Open(path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "invoice body", string(body))

	require.NoError(t, s.Delete(path))
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.Delete(path), "重复删除不报错")
}

func TestLocalStorage_UniqueNames(t *testing.T) {
	_, s := newStorage(t)
	a, _, err := s.Store(context.Background(), strings.NewReader("a"), "same.pdf")
	require.NoError(t, err)
	b, _, err := s.Store(context.Background(), strings.NewReader("b"), "same.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocalStorage_RejectsOutsideRoot(t *testing.T) {
	_, s := newStorage(t)

	_, err := s.Open("/data/uploads/../secrets.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	assert.ErrorIs(t, s.Delete("/etc/passwd"), ErrOutsideRoot)
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	fs, s := newStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Store(ctx, strings.NewReader("x"), "x.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	entries, _ := afero.ReadDir(fs, "/data/uploads")
	assert.Empty(t, entries)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".pdf", extension("a/b/c.PDF"))
	assert.Equal(t, "", extension("noext"))
	assert.Equal(t, "", extension("x.averyveryverylongext"))
}
