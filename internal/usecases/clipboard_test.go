package usecases

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remote-file-manager/internal/domain"
)

// failingRemoveSession fails every delete so the move stops after its copy phase.
type failingRemoveSession struct {
	domain.RemoteSession
}

var errRemoveDenied = errors.New("550 permission denied")

func (f *failingRemoveSession) RemoveFile(context.Context, string) error { return errRemoveDenied }
func (f *failingRemoveSession) RemoveDir(context.Context, string) error  { return errRemoveDenied }

// countingStoreSession counts writes to prove that rejected pastes move no bytes.
type countingStoreSession struct {
	domain.RemoteSession
	stores *int
}

func (c *countingStoreSession) Store(ctx context.Context, p string, r io.Reader) error {
	*c.stores++
	return c.RemoteSession.Store(ctx, p, r)
}

func file(name string) domain.FileEntry { return domain.FileEntry{Name: name, Kind: domain.KindFile} }
func dir(name string) domain.FileEntry {
	return domain.FileEntry{Name: name, Kind: domain.KindDirectory}
}

func TestResolveCollision(t *testing.T) {
	taken := func(names ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(names))
		for _, n := range names {
			m[n] = struct{}{}
		}
		return m
	}

	tests := []struct {
		name  string
		item  domain.FileEntry
		taken map[string]struct{}
		want  string
	}{
		{"free name", file("f.ext"), taken("other"), "f.ext"},
		{"first version", file("f.ext"), taken("f.ext"), "f (version 1).ext"},
		{"second version", file("f.ext"), taken("f.ext", "f (version 1).ext"), "f (version 2).ext"},
		{"gap is reused", file("f.ext"), taken("f.ext", "f (version 2).ext"), "f (version 1).ext"},
		{"multi dot", file("archive.tar.gz"), taken("archive.tar.gz"), "archive.tar (version 1).gz"},
		{"no extension", file("README"), taken("README"), "README (version 1)"},
		{"dotfile", file(".env"), taken(".env"), ".env (version 1)"},
		{"directory", dir("d"), taken("d"), "d (version 1)"},
		{"directory keeps dots", dir("v1.2"), taken("v1.2", "v1.2 (version 1)"), "v1.2 (version 2)"},
		{"file and dir share namespace", dir("report.pdf"), taken("report.pdf"), "report.pdf (version 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveCollision(tt.item, tt.taken))
		})
	}
}

func TestCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, ok, err := env.uc.CopiedSource(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, env.uc.Copy(ctx, "alice", "/Team", []domain.FileEntry{file("report.pdf")}))

	src, ok, err := env.uc.CopiedSource(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/Team", src)

	// another client keeps its own clipboard
	_, ok, err = env.uc.CopiedSource(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCopy_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.uc.Copy(ctx, "c", "/Team", nil), domain.ErrInvalidRequest)
	assert.ErrorIs(t, env.uc.Copy(ctx, "c", "/Team", []domain.FileEntry{{Name: "x", Kind: "link"}}), domain.ErrInvalidRequest)
	assert.ErrorIs(t, env.uc.Copy(ctx, "c", "/Team", []domain.FileEntry{file("../x")}), domain.ErrInvalidName)
	assert.ErrorIs(t, env.uc.Copy(ctx, "c", "../Team", []domain.FileEntry{file("x")}), domain.ErrPathTraversal)
	assert.ErrorIs(t, env.uc.Copy(ctx, "c", "/Team", []domain.FileEntry{file("x\r\nDELE /etc/passwd")}), domain.ErrInvalidName)
	assert.ErrorIs(t, env.uc.Copy(ctx, "c", "/Team\r\nRMD /", []domain.FileEntry{file("x")}), domain.ErrPathTraversal)
}

func TestPaste_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	content := "%PDF-1.4 report body"
	env.write(t, "/Main/Team/report.pdf", content)
	env.mkdir(t, "/Main/Team/Archive")

	require.NoError(t, env.uc.Copy(ctx, "client", "/Team", []domain.FileEntry{file("report.pdf")}))
	require.NoError(t, env.uc.Paste(ctx, "client", "/Team/Archive/"))

	assert.Equal(t, content, env.read(t, "/Main/Team/Archive/report.pdf"))
	assert.Equal(t, content, env.read(t, "/Main/Team/report.pdf"))

	_, ok, err := env.uc.CopiedSource(ctx, "client")
	require.NoError(t, err)
	assert.False(t, ok, "clipboard must be cleared after a successful paste")

	spool, err := os.ReadDir(env.uc.cfg.Transfer.SpoolDir)
	require.NoError(t, err)
	assert.Empty(t, spool, "spool files must be removed")
}

func TestPaste_FileCollisionVersions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/Src/f.ext", "new")
	env.write(t, "/Main/Dest/f.ext", "old")

	for range 2 {
		require.NoError(t, env.uc.Copy(ctx, "c", "/Src", []domain.FileEntry{file("f.ext")}))
		require.NoError(t, env.uc.Paste(ctx, "c", "/Dest"))
	}

	assert.Equal(t, "old", env.read(t, "/Main/Dest/f.ext"))
	assert.Equal(t, "new", env.read(t, "/Main/Dest/f (version 1).ext"))
	assert.Equal(t, "new", env.read(t, "/Main/Dest/f (version 2).ext"))
}

func TestPaste_IntoSourceDirectoryMakesVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/Team/a.txt", "a")

	require.NoError(t, env.uc.Copy(ctx, "c", "/Team", []domain.FileEntry{file("a.txt")}))
	require.NoError(t, env.uc.Paste(ctx, "c", "/Team"))

	assert.Equal(t, "a", env.read(t, "/Main/Team/a (version 1).txt"))
}

func TestPaste_DirectoryCollision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/Src/d/a.txt", "a")
	env.write(t, "/Main/Src/d/sub/b.txt", "b")
	env.mkdir(t, "/Main/Src/d/sub/empty")
	env.write(t, "/Main/Dest/d/existing.txt", "keep")

	require.NoError(t, env.uc.Copy(ctx, "c", "/Src", []domain.FileEntry{dir("d")}))
	require.NoError(t, env.uc.Paste(ctx, "c", "/Dest"))

	assert.Equal(t, "keep", env.read(t, "/Main/Dest/d/existing.txt"))
	assert.False(t, env.exists("/Main/Dest/d/a.txt"))

	assert.Equal(t, "a", env.read(t, "/Main/Dest/d (version 1)/a.txt"))
	assert.Equal(t, "b", env.read(t, "/Main/Dest/d (version 1)/sub/b.txt"))
	assert.True(t, env.exists("/Main/Dest/d (version 1)/sub/empty"))
	assert.False(t, env.exists("/Main/Dest/d (version 1)/existing.txt"))
}

func TestPaste_FileAndDirectoryShareNamespace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/Src/x", "file")
	env.mkdir(t, "/Main/Src2/x")
	env.mkdir(t, "/Main/Dest")

	require.NoError(t, env.uc.Copy(ctx, "c", "/Src", []domain.FileEntry{file("x")}))
	require.NoError(t, env.uc.Paste(ctx, "c", "/Dest"))
	require.NoError(t, env.uc.Copy(ctx, "c", "/Src2", []domain.FileEntry{dir("x")}))
	require.NoError(t, env.uc.Paste(ctx, "c", "/Dest"))

	assert.Equal(t, "file", env.read(t, "/Main/Dest/x"))
	assert.True(t, env.exists("/Main/Dest/x (version 1)"))
}

func TestPaste_SelfPasteRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/Team/docs/a.txt", "a")
	env.mkdir(t, "/Main/Team/docs/inner")

	stores := 0
	env.sessions.wrap = func(s domain.RemoteSession) domain.RemoteSession {
		return &countingStoreSession{RemoteSession: s, stores: &stores}
	}

	require.NoError(t, env.uc.Copy(ctx, "c", "/Team", []domain.FileEntry{dir("docs")}))

	for _, dest := range []string{"/Team/docs", "/Team/docs/inner"} {
		err := env.uc.Paste(ctx, "c", dest)
		assert.ErrorIs(t, err, domain.ErrSelfPasteRejected, dest)
	}
	assert.Zero(t, stores)
	assert.Zero(t, env.sessions.count("dedicated"), "no session is opened for a rejected paste")

	_, ok, err := env.uc.CopiedSource(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok, "a rejected paste keeps the clipboard")
}

func TestPaste_EmptyClipboard(t *testing.T) {
	env := newTestEnv(t)

	err := env.uc.Paste(context.Background(), "nobody", "/")
	assert.ErrorIs(t, err, domain.ErrClipboardEmpty)
}

func TestPaste_MissingSourceKeepsClipboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mkdir(t, "/Main/Dest")

	require.NoError(t, env.uc.Copy(ctx, "c", "/Team", []domain.FileEntry{file("gone.txt")}))
	err := env.uc.Paste(ctx, "c", "/Dest")
	assert.ErrorIs(t, err, domain.ErrPathNotFound)

	_, ok, _ := env.uc.CopiedSource(ctx, "c")
	assert.True(t, ok)
}

func TestMove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/A/report.pdf", "r")
	env.write(t, "/Main/A/docs/sub/n.txt", "n")
	env.mkdir(t, "/Main/B")
	env.uc.newID = func() string { return "move-1" }

	require.NoError(t, env.uc.Copy(ctx, "c", "/A", []domain.FileEntry{file("report.pdf"), dir("docs")}))
	require.NoError(t, env.uc.Move(ctx, "c", "/B"))

	assert.Equal(t, "r", env.read(t, "/Main/B/report.pdf"))
	assert.Equal(t, "n", env.read(t, "/Main/B/docs/sub/n.txt"))
	assert.False(t, env.exists("/Main/A/report.pdf"))
	assert.False(t, env.exists("/Main/A/docs"))

	assert.Equal(t, domain.MoveDone, env.journal.status("move-1"))
	pending, err := env.uc.PendingMoves(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, ok, _ := env.uc.CopiedSource(ctx, "c")
	assert.False(t, ok)
}

func TestMove_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/A/report.pdf", "r")
	env.write(t, "/Main/A/docs/n.txt", "n")
	env.mkdir(t, "/Main/B")
	env.uc.newID = func() string { return "move-2" }
	env.sessions.wrap = func(s domain.RemoteSession) domain.RemoteSession {
		return &failingRemoveSession{RemoteSession: s}
	}

	require.NoError(t, env.uc.Copy(ctx, "c", "/A", []domain.FileEntry{file("report.pdf"), dir("docs")}))
	err := env.uc.Move(ctx, "c", "/B")
	require.ErrorIs(t, err, domain.ErrPartialMoveFailure)
	assert.ErrorIs(t, err, errRemoveDenied)

	// data is present on both sides
	assert.Equal(t, "r", env.read(t, "/Main/A/report.pdf"))
	assert.Equal(t, "r", env.read(t, "/Main/B/report.pdf"))
	assert.Equal(t, "n", env.read(t, "/Main/A/docs/n.txt"))
	assert.Equal(t, "n", env.read(t, "/Main/B/docs/n.txt"))

	pending, err := env.uc.PendingMoves(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "move-2", pending[0].ID)
	assert.Equal(t, domain.MoveDeleteFailed, pending[0].Status)
	assert.Contains(t, pending[0].Error, "permission denied")

	_, ok, _ := env.uc.CopiedSource(ctx, "c")
	assert.True(t, ok, "clipboard survives a partial move")
}

func TestMove_CopyFailureIsNotPartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mkdir(t, "/Main/B")
	env.uc.newID = func() string { return "move-3" }

	require.NoError(t, env.uc.Copy(ctx, "c", "/A", []domain.FileEntry{file("missing.txt")}))
	err := env.uc.Move(ctx, "c", "/B")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPartialMoveFailure)
	assert.Equal(t, domain.MoveFailed, env.journal.status("move-3"))
}

func TestMove_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "/Main/A/a.txt", "a")

	require.NoError(t, env.uc.Copy(ctx, "c", "/A", []domain.FileEntry{file("a.txt")}))
	assert.ErrorIs(t, env.uc.Move(ctx, "c", "/A"), domain.ErrSelfPasteRejected)

	env.journal.beginErr = errors.New("disk full")
	env.mkdir(t, "/Main/B")
	err := env.uc.Move(ctx, "c", "/B")
	require.Error(t, err)
	assert.False(t, env.exists("/Main/B/a.txt"), "nothing moves without a journal entry")
	assert.True(t, env.exists("/Main/A/a.txt"))
}
