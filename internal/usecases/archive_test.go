package usecases

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remote-file-manager/internal/domain"
)

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = string(body)
	}
	return entries
}

func TestArchive_Completeness(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "/Main/Team/top.txt", "top")
	env.write(t, "/Main/Team/proj/a.txt", "a")
	env.write(t, "/Main/Team/proj/lib/b.txt", "b")
	env.mkdir(t, "/Main/Team/proj/lib/empty")
	env.mkdir(t, "/Main/Team/blank")

	items := []domain.FileEntry{file("top.txt"), dir("proj"), dir("blank")}
	data, err := env.uc.Archive(context.Background(), "zip-1", "/Team", items)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"top.txt":         "top",
		"proj/a.txt":      "a",
		"proj/lib/b.txt":  "b",
		"proj/lib/empty/": "",
		"blank/":          "",
	}, readZip(t, data))

	job := env.uc.ArchiveProgress("zip-1")
	assert.Equal(t, uint32(3), job.TotalItems)
	assert.Equal(t, uint32(3), job.ProcessedItems)
	assert.True(t, job.Complete)
}

func TestArchive_MissingItem(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "/Main/Team/ok.txt", "ok")

	items := []domain.FileEntry{file("ok.txt"), file("gone.txt")}
	_, err := env.uc.Archive(context.Background(), "zip-2", "/Team", items)
	require.ErrorIs(t, err, domain.ErrArchiveFailure)
	assert.ErrorIs(t, err, domain.ErrPathNotFound)

	job := env.uc.ArchiveProgress("zip-2")
	assert.Equal(t, uint32(1), job.ProcessedItems)
	assert.False(t, job.Complete)
}

func TestArchive_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.uc.Archive(ctx, "", "/", []domain.FileEntry{file("a")})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = env.uc.Archive(ctx, "z", "/", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = env.uc.Archive(ctx, "z", "../", []domain.FileEntry{file("a")})
	assert.ErrorIs(t, err, domain.ErrPathTraversal)

	assert.Zero(t, env.sessions.count("dedicated"))
}

func TestArchiveProgress_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	job := env.uc.ArchiveProgress("never-started")
	assert.Zero(t, job.TotalItems)
	assert.Zero(t, job.ProcessedItems)
	assert.False(t, job.Complete)
}
