package localstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/domain"
)

// LocalStorageService хранилище в каталоге на диске, с тем же контрактом,
// что и FTP. Удобно для разработки и тестов.
type LocalStorageService struct {
	basePath string
	dirPerm  os.FileMode
}

func NewLocalStorageService(basePath string, dirPerm os.FileMode) *LocalStorageService {
	return &LocalStorageService{
		basePath: basePath,
		dirPerm:  dirPerm,
	}
}

// Dial возвращает сессию. Каталог создаётся, если его нет.
func (s *LocalStorageService) Dial(_ context.Context) (domain.RemoteSession, error) {
	if err := os.MkdirAll(s.basePath, s.dirPerm); err != nil {
		return nil, fmt.Errorf("failed to prepare local storage: %w", err)
	}
	return &localSession{svc: s}, nil
}

// GetAbsolutePath удалённый путь вида /Main/a переводится в путь на диске.
func (s *LocalStorageService) GetAbsolutePath(remotePath string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(remotePath))
}

type localSession struct {
	svc    *LocalStorageService
	closed bool
}

func (l *localSession) List(_ context.Context, path string) ([]domain.FileEntry, error) {
	entries, err := os.ReadDir(l.svc.GetAbsolutePath(path))
	if err != nil {
		return nil, mapError(err)
	}

	// О - оптимизация.
	files := make([]domain.FileEntry, 0, len(entries))
	for _, e := range entries {
		kind := domain.KindFile
		if e.IsDir() {
			kind = domain.KindDirectory
		} else if !e.Type().IsRegular() {
			// пропуск симлинков и прочих особых файлов.
			logrus.Warnf("Skipping non-regular entry %s in %s", e.Name(), path)
			continue
		}
		files = append(files, domain.FileEntry{Name: e.Name(), Kind: kind})
	}

	return files, nil
}

func (l *localSession) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(l.svc.GetAbsolutePath(path))
	if err != nil {
		return 0, mapError(err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory: %w", path, domain.ErrPathNotFound)
	}
	return info.Size(), nil
}

func (l *localSession) Retrieve(_ context.Context, path string, w io.Writer) error {
	fullPath := l.svc.GetAbsolutePath(path)
	src, err := os.Open(fullPath)
	if err != nil {
		return mapError(err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logrus.Warnf("Failed to close file %s: %v", fullPath, closeErr)
		}
	}()

	_, err = io.Copy(w, src)
	return err
}

// Store записывает файл. Родительский каталог должен существовать, как на FTP.
func (l *localSession) Store(_ context.Context, path string, r io.Reader) error {
	fullPath := l.svc.GetAbsolutePath(path)

	out, err := os.Create(fullPath)
	if err != nil {
		return mapError(err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			logrus.Warnf("Failed to close file %s: %v", fullPath, closeErr)
		}
	}()

	_, err = io.Copy(out, r)
	return err
}

func (l *localSession) MakeDir(_ context.Context, path string) error {
	return os.MkdirAll(l.svc.GetAbsolutePath(path), l.svc.dirPerm)
}

// Rename пустой путь отклоняется, чтобы избежать случайную потерю данных.
func (l *localSession) Rename(_ context.Context, from, to string) error {
	if to == domain.PathEmpty {
		return os.ErrInvalid
	}
	return mapError(os.Rename(l.svc.GetAbsolutePath(from), l.svc.GetAbsolutePath(to)))
}

func (l *localSession) RemoveFile(_ context.Context, path string) error {
	fullPath := l.svc.GetAbsolutePath(path)
	info, err := os.Lstat(fullPath)
	if err != nil {
		return mapError(err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return mapError(os.Remove(fullPath))
}

// RemoveDir удаляет только пустой каталог, как RMD на FTP.
func (l *localSession) RemoveDir(_ context.Context, path string) error {
	return mapError(removeEmptyDir(l.svc.GetAbsolutePath(path)))
}

func (l *localSession) Ping(_ context.Context) error {
	if l.closed {
		return errors.New("session closed")
	}
	_, err := os.Stat(l.svc.basePath)
	return err
}

func (l *localSession) Close() error {
	l.closed = true
	return nil
}

func removeEmptyDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return os.Remove(path)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", domain.ErrPathNotFound, err)
	}
	return err
}
