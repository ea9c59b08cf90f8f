package domain

import (
	"context"
	"io"
	"time"
)

// EntryKind тип элемента каталога в терминах клиента: "f" или "d".
type EntryKind string

const (
	KindFile      EntryKind = "f"
	KindDirectory EntryKind = "d"
)

// FileEntry информация о файле или директории на удалённом хранилище.
type FileEntry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"type"`
}

func (e FileEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

// TransferProgress прогресс одной загрузки или выгрузки.
type TransferProgress struct {
	TotalSize   uint64
	Transferred uint64
	Speed       float64 // байт в секунду
	Complete    bool
}

// ArchiveJob прогресс сборки zip архива.
type ArchiveJob struct {
	ZipID          string
	TotalItems     uint32
	ProcessedItems uint32
	Complete       bool
}

// ClipboardState последний выбор для копирования или перемещения одного клиента.
type ClipboardState struct {
	SourcePath string      `json:"sourcePath"`
	Items      []FileEntry `json:"items"`
}

func (c ClipboardState) Empty() bool {
	return len(c.Items) == 0
}

// RemoteSession соединение с удалённым хранилищем. Все пути абсолютные.
type RemoteSession interface {
	List(ctx context.Context, path string) ([]FileEntry, error)
	Size(ctx context.Context, path string) (int64, error)
	Retrieve(ctx context.Context, path string, w io.Writer) error
	Store(ctx context.Context, path string, r io.Reader) error
	MakeDir(ctx context.Context, path string) error
	Rename(ctx context.Context, from, to string) error
	RemoveFile(ctx context.Context, path string) error
	RemoveDir(ctx context.Context, path string) error
	Ping(ctx context.Context) error
	Close() error
}

// SessionProvider выдаёт аренды сессий. Аренду обязательно освобождать.
type SessionProvider interface {
	// Exclusive одна сессия на метаданные: удаление, переименование, создание папок.
	Exclusive(ctx context.Context) (*Lease, error)
	// Pooled сессия из ограниченного пула, для загрузок.
	Pooled(ctx context.Context) (*Lease, error)
	// Dedicated новая сессия на весь запрос, закрывается при освобождении.
	Dedicated(ctx context.Context) (*Lease, error)
}

// TransferTracker хранит прогресс загрузок и выгрузок.
type TransferTracker interface {
	Track(id string, totalSize uint64)
	Update(id string, transferred uint64)
	Finish(id string)
	Get(id string) TransferProgress
	Evict(id string, after time.Duration)
}

// ArchiveTracker хранит прогресс сборки архивов.
type ArchiveTracker interface {
	Start(zipID string, totalItems uint32)
	Advance(zipID string)
	Finish(zipID string)
	Get(zipID string) ArchiveJob
	Evict(zipID string, after time.Duration)
}

// ClipboardStore буфер обмена, по одному на клиента.
type ClipboardStore interface {
	Set(ctx context.Context, clientID string, state ClipboardState) error
	Get(ctx context.Context, clientID string) (ClipboardState, bool, error)
	Clear(ctx context.Context, clientID string) error
}

// FileManagement для сценариев управления файлами.
type FileManagement interface {
	List(ctx context.Context, path string) ([]FileEntry, error)
	Download(ctx context.Context, path string, w io.Writer) error
	DownloadProgress(path string) TransferProgress
	Upload(ctx context.Context, dir, fileName string, file io.Reader, size int64) error
	UploadProgress(fileName string) TransferProgress
	DeleteFile(ctx context.Context, path string) error
	DeletePath(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	CreateFolder(ctx context.Context, parentPath, name string) error

	Copy(ctx context.Context, clientID, sourcePath string, items []FileEntry) error
	CopiedSource(ctx context.Context, clientID string) (string, bool, error)
	Paste(ctx context.Context, clientID, destinationPath string) error
	Move(ctx context.Context, clientID, destinationPath string) error
	PendingMoves(ctx context.Context) ([]MoveRecord, error)

	Archive(ctx context.Context, zipID, basePath string, items []FileEntry) ([]byte, error)
	ArchiveProgress(zipID string) ArchiveJob
}
