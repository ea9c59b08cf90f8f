package localstorage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remote-file-manager/internal/domain"
)

func newTestSession(t *testing.T) (domain.RemoteSession, string) {
	t.Helper()
	tmpDir := t.TempDir()
	service := NewLocalStorageService(tmpDir, 0o755)
	session, err := service.Dial(context.Background())
	require.NoError(t, err)
	return session, tmpDir
}

func TestNewLocalStorageService(t *testing.T) {
	basePath := "/test/storage"
	dirPerm := os.FileMode(0o755)

	service := NewLocalStorageService(basePath, dirPerm)

	assert.NotNil(t, service)
	assert.Equal(t, basePath, service.basePath)
	assert.Equal(t, dirPerm, service.dirPerm)
}

func TestLocalStorageService_GetAbsolutePath(t *testing.T) {
	service := NewLocalStorageService("/base", 0o755)

	tests := []struct {
		name     string
		relPath  string
		expected string
	}{
		{"empty path", "", "/base"},
		{"root", "/", "/base"},
		{"simple path", "/Main/file.txt", "/base/Main/file.txt"},
		{"nested path", "/Main/dir/subdir/file.txt", "/base/Main/dir/subdir/file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.GetAbsolutePath(tt.relPath)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLocalSession_List(t *testing.T) {
	session, tmpDir := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "Main", "subdir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "Main", "file1.txt"), []byte("content1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "Main", "file2.txt"), []byte("content2"), 0o644))

	t.Run("success", func(t *testing.T) {
		entries, err := session.List(ctx, "/Main")
		require.NoError(t, err)

		kinds := make(map[string]domain.EntryKind)
		for _, entry := range entries {
			kinds[entry.Name] = entry.Kind
		}
		assert.Equal(t, domain.KindFile, kinds["file1.txt"])
		assert.Equal(t, domain.KindFile, kinds["file2.txt"])
		assert.Equal(t, domain.KindDirectory, kinds["subdir"])
	})

	t.Run("nonexistent directory", func(t *testing.T) {
		_, err := session.List(ctx, "/Main/nonexistent")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrPathNotFound))
	})
}

func TestLocalSession_StoreAndRetrieve(t *testing.T) {
	session, tmpDir := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, session.MakeDir(ctx, "/Main"))

	t.Run("round trip", func(t *testing.T) {
		testData := "test file content"
		require.NoError(t, session.Store(ctx, "/Main/test.txt", strings.NewReader(testData)))

		data, err := os.ReadFile(filepath.Join(tmpDir, "Main", "test.txt"))
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))

		var buf bytes.Buffer
		require.NoError(t, session.Retrieve(ctx, "/Main/test.txt", &buf))
		assert.Equal(t, testData, buf.String())

		size, err := session.Size(ctx, "/Main/test.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(len(testData)), size)
	})

	t.Run("missing parent", func(t *testing.T) {
		err := session.Store(ctx, "/Main/missing/file.txt", strings.NewReader("x"))
		assert.Error(t, err)
	})

	t.Run("large file", func(t *testing.T) {
		largeData := strings.Repeat("a", 1024*1024) // 1MB
		require.NoError(t, session.Store(ctx, "/Main/large.txt", strings.NewReader(largeData)))

		info, err := os.Stat(filepath.Join(tmpDir, "Main", "large.txt"))
		require.NoError(t, err)
		assert.Equal(t, int64(1024*1024), info.Size())
	})

	t.Run("size of directory", func(t *testing.T) {
		_, err := session.Size(ctx, "/Main")
		assert.True(t, errors.Is(err, domain.ErrPathNotFound))
	})
}

func TestLocalSession_Remove(t *testing.T) {
	session, tmpDir := newTestSession(t)
	ctx := context.Background()

	t.Run("remove file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.txt")
		require.NoError(t, os.WriteFile(filePath, []byte("content"), 0o644))

		require.NoError(t, session.RemoveFile(ctx, "/test.txt"))

		_, err := os.Stat(filePath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("remove file refuses directory", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "dir"), 0o755))
		assert.Error(t, session.RemoveFile(ctx, "/dir"))
	})

	t.Run("remove dir requires empty directory", func(t *testing.T) {
		dirPath := filepath.Join(tmpDir, "testdir")
		require.NoError(t, os.MkdirAll(dirPath, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dirPath, "file.txt"), []byte("content"), 0o644))

		assert.Error(t, session.RemoveDir(ctx, "/testdir"))

		require.NoError(t, session.RemoveFile(ctx, "/testdir/file.txt"))
		require.NoError(t, session.RemoveDir(ctx, "/testdir"))

		_, err := os.Stat(dirPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("remove nonexistent", func(t *testing.T) {
		err := session.RemoveFile(ctx, "/nonexistent")
		assert.True(t, errors.Is(err, domain.ErrPathNotFound))
	})
}

func TestLocalSession_Rename(t *testing.T) {
	session, tmpDir := newTestSession(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		oldPath := filepath.Join(tmpDir, "old.txt")
		require.NoError(t, os.WriteFile(oldPath, []byte("content"), 0o644))

		require.NoError(t, session.Rename(ctx, "/old.txt", "/new.txt"))

		// Old file should not exist
		_, err := os.Stat(oldPath)
		assert.True(t, os.IsNotExist(err))

		// New file should exist
		data, err := os.ReadFile(filepath.Join(tmpDir, "new.txt"))
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("empty destination", func(t *testing.T) {
		err := session.Rename(ctx, "/old.txt", "")
		assert.Error(t, err)
		assert.Equal(t, os.ErrInvalid, err)
	})

	t.Run("nonexistent source", func(t *testing.T) {
		err := session.Rename(ctx, "/nonexistent.txt", "/new.txt")
		assert.True(t, errors.Is(err, domain.ErrPathNotFound))
	})
}

func TestLocalSession_MakeDir(t *testing.T) {
	session, tmpDir := newTestSession(t)
	ctx := context.Background()

	t.Run("nested directory", func(t *testing.T) {
		require.NoError(t, session.MakeDir(ctx, "/dir1/dir2/dir3"))

		info, err := os.Stat(filepath.Join(tmpDir, "dir1/dir2/dir3"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("already exists", func(t *testing.T) {
		require.NoError(t, session.MakeDir(ctx, "/existing"))

		// Creating again should not error
		assert.NoError(t, session.MakeDir(ctx, "/existing"))
	})
}

func TestLocalSession_PingAfterClose(t *testing.T) {
	session, _ := newTestSession(t)

	require.NoError(t, session.Ping(context.Background()))
	require.NoError(t, session.Close())
	assert.Error(t, session.Ping(context.Background()))
}
