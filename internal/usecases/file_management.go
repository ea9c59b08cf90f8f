package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/config"
	"remote-file-manager/internal/domain"
)

// Dependencies адаптеры, которые нужны сценариям.
type Dependencies struct {
	Sessions  domain.SessionProvider
	Transfers domain.TransferTracker
	Archives  domain.ArchiveTracker
	Clipboard domain.ClipboardStore
	Journal   domain.MoveJournal
}

type FileManagementUseCase struct {
	sessions  domain.SessionProvider
	transfers domain.TransferTracker
	archives  domain.ArchiveTracker
	clipboard domain.ClipboardStore
	journal   domain.MoveJournal
	cfg       *config.Config
	validName *regexp.Regexp
	newID     func() string
}

var _ domain.FileManagement = (*FileManagementUseCase)(nil)

func NewFileManagementUseCase(deps Dependencies, cfg *config.Config) *FileManagementUseCase {
	regex := regexp.MustCompile(cfg.File.ValidNameRegex)
	return &FileManagementUseCase{
		sessions:  deps.Sessions,
		transfers: deps.Transfers,
		archives:  deps.Archives,
		clipboard: deps.Clipboard,
		journal:   deps.Journal,
		cfg:       cfg,
		validName: regex,
		newID:     uuid.NewString,
	}
}

func (uc *FileManagementUseCase) List(ctx context.Context, logical string) ([]domain.FileEntry, error) {
	dir, err := uc.sanitizePath(logical)
	if err != nil {
		return nil, err
	}

	lease, err := uc.sessions.Dedicated(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	entries, err := lease.Session.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("could not list '%s': %w", dir, asNotFound(err))
	}
	return entries, nil
}

func (uc *FileManagementUseCase) Download(ctx context.Context, logical string, w io.Writer) error {
	file, err := uc.sanitizePath(logical)
	if err != nil {
		return err
	}

	lease, err := uc.sessions.Dedicated(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	size, err := lease.Session.Size(ctx, file)
	if err != nil {
		return fmt.Errorf("could not stat '%s': %w", file, asNotFound(err))
	}

	// прогресс скачивания ищется по абсолютному пути.
	uc.transfers.Track(file, uint64(size))
	defer uc.transfers.Evict(file, uc.cfg.Progress.EvictionDelay)

	pw := newProgressWriter(w, directionDownload, func(n uint64) { uc.transfers.Update(file, n) })
	if err := lease.Session.Retrieve(ctx, file, pw); err != nil {
		lease.MarkBroken()
		return fmt.Errorf("failed to download '%s': %w", file, err)
	}
	uc.transfers.Finish(file)

	logrus.WithFields(logrus.Fields{
		"operation": operationDownload,
		"path":      file,
		"bytes":     pw.total,
	}).Info("File downloaded")
	return nil
}

func (uc *FileManagementUseCase) DownloadProgress(logical string) domain.TransferProgress {
	file, err := uc.sanitizePath(logical)
	if err != nil {
		return domain.TransferProgress{}
	}
	return uc.transfers.Get(file)
}

func (uc *FileManagementUseCase) Upload(ctx context.Context, logicalDir, fileName string, file io.Reader, size int64) error {
	if err := uc.validateName(fileName); err != nil {
		return err
	}
	dir, err := uc.sanitizePath(logicalDir)
	if err != nil {
		return err
	}
	target := path.Join(dir, fileName)

	lease, err := uc.sessions.Pooled(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	// прогресс загрузки ищется по исходному имени файла.
	uc.transfers.Track(fileName, uint64(max(size, 0)))
	defer uc.transfers.Evict(fileName, uc.cfg.Progress.EvictionDelay)

	pr := newProgressReader(file, directionUpload, func(n uint64) { uc.transfers.Update(fileName, n) })
	if err := lease.Session.Store(ctx, target, pr); err != nil {
		lease.MarkBroken()
		return fmt.Errorf("failed to upload file to '%s': %w", target, err)
	}
	uc.transfers.Finish(fileName)

	logrus.WithFields(logrus.Fields{
		"operation": operationUpload,
		"path":      target,
		"bytes":     pr.total,
	}).Info("File uploaded")
	return nil
}

func (uc *FileManagementUseCase) UploadProgress(fileName string) domain.TransferProgress {
	return uc.transfers.Get(fileName)
}

func (uc *FileManagementUseCase) DeleteFile(ctx context.Context, logical string) error {
	file, err := uc.sanitizePath(logical)
	if err != nil {
		return err
	}

	lease, err := uc.sessions.Exclusive(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := lease.Session.RemoveFile(ctx, file); err != nil {
		return fmt.Errorf("could not delete file '%s': %w", file, err)
	}

	logrus.WithFields(logrus.Fields{
		"operation": operationDeleteFile,
		"path":      file,
	}).Info("File deleted")
	return nil
}

func (uc *FileManagementUseCase) DeletePath(ctx context.Context, logical string) error {
	target, err := uc.sanitizePath(logical)
	if err != nil {
		return err
	}
	if target == path.Clean(uc.cfg.Remote.Root) {
		return fmt.Errorf("refusing to delete the storage root: %w", domain.ErrInvalidRequest)
	}

	lease, err := uc.sessions.Exclusive(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	entry, err := stat(ctx, lease.Session, target)
	if err != nil {
		return err
	}
	if err := removeEntry(ctx, lease.Session, target, entry.IsDir()); err != nil {
		return fmt.Errorf("could not delete '%s': %w", target, err)
	}

	logrus.WithFields(logrus.Fields{
		"operation": operationDeletePath,
		"path":      target,
		"directory": entry.IsDir(),
	}).Info("Path deleted")
	return nil
}

func (uc *FileManagementUseCase) Rename(ctx context.Context, oldLogical, newLogical string) error {
	oldPath, err := uc.sanitizePath(oldLogical)
	if err != nil {
		return err
	}
	if oldPath == path.Clean(uc.cfg.Remote.Root) {
		return fmt.Errorf("refusing to rename the storage root: %w", domain.ErrInvalidRequest)
	}
	newPath, err := uc.sanitizePath(newLogical)
	if err != nil {
		return err
	}
	if err := uc.validateName(path.Base(newPath)); err != nil {
		return err
	}

	lease, err := uc.sessions.Exclusive(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	taken, err := listNames(ctx, lease.Session, path.Dir(newPath))
	if err != nil {
		return fmt.Errorf("could not list destination of rename '%s': %w", newPath, asNotFound(err))
	}
	if _, exists := taken[path.Base(newPath)]; exists {
		return fmt.Errorf("cannot rename '%s' to '%s': %w", oldPath, newPath, domain.ErrRenameConflict)
	}

	if err := lease.Session.Rename(ctx, oldPath, newPath); err != nil {
		return fmt.Errorf("could not rename '%s' to '%s': %w", oldPath, newPath, err)
	}

	logrus.WithFields(logrus.Fields{
		"operation": operationRename,
		"old_path":  oldPath,
		"new_path":  newPath,
	}).Info("Path renamed")
	return nil
}

func (uc *FileManagementUseCase) CreateFolder(ctx context.Context, parentLogical, name string) error {
	if err := uc.validateName(name); err != nil {
		return err
	}
	parent, err := uc.sanitizePath(parentLogical)
	if err != nil {
		return err
	}
	folder := path.Join(parent, name)

	lease, err := uc.sessions.Exclusive(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := lease.Session.MakeDir(ctx, folder); err != nil {
		return fmt.Errorf("could not create folder '%s': %w", folder, err)
	}

	logrus.WithFields(logrus.Fields{
		"operation": operationCreateFolder,
		"path":      folder,
	}).Info("Folder created")
	return nil
}

// stat находит элемент через листинг родителя: у FTP нет надёжного способа
// отличить файл от каталога по одному пути.
func stat(ctx context.Context, sess domain.RemoteSession, target string) (domain.FileEntry, error) {
	entries, err := sess.List(ctx, path.Dir(target))
	if err != nil {
		return domain.FileEntry{}, fmt.Errorf("could not list parent of '%s': %w", target, asNotFound(err))
	}
	name := path.Base(target)
	for _, entry := range entries {
		if entry.Name == name {
			return entry, nil
		}
	}
	return domain.FileEntry{}, fmt.Errorf("'%s': %w", target, domain.ErrPathNotFound)
}

func listNames(ctx context.Context, sess domain.RemoteSession, dir string) (map[string]struct{}, error) {
	entries, err := sess.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.Name] = struct{}{}
	}
	return names, nil
}

func asNotFound(err error) error {
	if errors.Is(err, domain.ErrPathNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPathNotFound, err)
}
