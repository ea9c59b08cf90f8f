package usecases

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/adapters/metrics"
	"remote-file-manager/internal/domain"
)

type archiveFrame struct {
	abs string
	rel string
}

// Archive собирает выбранные элементы в zip в памяти. Прогресс считается по
// элементам верхнего уровня, а не по файлам внутри каталогов.
func (uc *FileManagementUseCase) Archive(ctx context.Context, zipID, baseLogical string, items []domain.FileEntry) (data []byte, err error) {
	if zipID == domain.PathEmpty {
		return nil, fmt.Errorf("zip id is required: %w", domain.ErrInvalidRequest)
	}
	if err := uc.validateSelection(items); err != nil {
		return nil, err
	}
	base, err := uc.sanitizePath(baseLogical)
	if err != nil {
		return nil, err
	}

	uc.archives.Start(zipID, uint32(len(items)))
	defer uc.archives.Evict(zipID, uc.cfg.Progress.EvictionDelay)
	defer func() { metrics.RecordArchive(err) }()

	lease, err := uc.sessions.Dedicated(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, item := range items {
		abs := path.Join(base, item.Name)
		if item.IsDir() {
			err = addDirectoryToZip(ctx, lease.Session, zw, abs, item.Name)
		} else {
			err = addFileToZip(ctx, lease.Session, zw, abs, item.Name)
		}
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("%w: '%s': %w", domain.ErrArchiveFailure, abs, err)
		}
		uc.archives.Advance(zipID)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize: %w", domain.ErrArchiveFailure, err)
	}
	uc.archives.Finish(zipID)

	logrus.WithFields(logrus.Fields{
		"operation": operationZip,
		"zip_id":    zipID,
		"path":      base,
		"items":     len(items),
		"bytes":     buf.Len(),
	}).Info("Archive created")
	return buf.Bytes(), nil
}

func (uc *FileManagementUseCase) ArchiveProgress(zipID string) domain.ArchiveJob {
	return uc.archives.Get(zipID)
}

func addFileToZip(ctx context.Context, sess domain.RemoteSession, zw *zip.Writer, abs, rel string) error {
	entry, err := zw.Create(rel)
	if err != nil {
		return fmt.Errorf("create zip entry '%s': %w", rel, err)
	}
	if err := sess.Retrieve(ctx, abs, entry); err != nil {
		return fmt.Errorf("read '%s': %w", abs, err)
	}
	return nil
}

// addDirectoryToZip пустые каталоги попадают в архив как "rel/", непустые
// только своим содержимым.
func addDirectoryToZip(ctx context.Context, sess domain.RemoteSession, zw *zip.Writer, abs, rel string) error {
	queue := []archiveFrame{{abs: abs, rel: rel}}
	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]

		entries, err := sess.List(ctx, frame.abs)
		if err != nil {
			return fmt.Errorf("list '%s': %w", frame.abs, err)
		}
		if len(entries) == 0 {
			if _, err := zw.Create(frame.rel + domain.PathSeparator); err != nil {
				return fmt.Errorf("create zip entry '%s/': %w", frame.rel, err)
			}
			continue
		}

		for _, entry := range entries {
			child := archiveFrame{
				abs: path.Join(frame.abs, entry.Name),
				rel: path.Join(frame.rel, entry.Name),
			}
			if entry.IsDir() {
				queue = append(queue, child)
				continue
			}
			if err := addFileToZip(ctx, sess, zw, child.abs, child.rel); err != nil {
				return err
			}
		}
	}
	return nil
}
