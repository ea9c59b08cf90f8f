package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/domain"
)

// Обходы деревьев идут через явный стек кадров, глубина ограничена реальной
// глубиной дерева.

type deleteFrame struct {
	dir      string
	expanded bool
}

// removeEntry удаляет файл или каталог вместе со всем содержимым (post-order).
func removeEntry(ctx context.Context, sess domain.RemoteSession, target string, isDir bool) error {
	if !isDir {
		return sess.RemoveFile(ctx, target)
	}

	stack := []deleteFrame{{dir: target}}
	for len(stack) > 0 {
		top := len(stack) - 1
		frame := stack[top]

		if frame.expanded {
			if err := sess.RemoveDir(ctx, frame.dir); err != nil {
				return fmt.Errorf("remove directory '%s': %w", frame.dir, err)
			}
			stack = stack[:top]
			continue
		}
		stack[top].expanded = true

		entries, err := sess.List(ctx, frame.dir)
		if err != nil {
			return fmt.Errorf("list '%s': %w", frame.dir, err)
		}
		for _, entry := range entries {
			child := path.Join(frame.dir, entry.Name)
			if entry.IsDir() {
				stack = append(stack, deleteFrame{dir: child})
				continue
			}
			// файл могли удалить параллельно.
			if err := sess.RemoveFile(ctx, child); err != nil && !errors.Is(err, domain.ErrPathNotFound) {
				return fmt.Errorf("remove file '%s': %w", child, err)
			}
		}
	}
	return nil
}

type copyFrame struct {
	src string
	dst string
}

// copyTree копирует каталог src в dst. Вложенные элементы сохраняют имена,
// существующие вложенные каталоги сливаются.
func (uc *FileManagementUseCase) copyTree(ctx context.Context, sess domain.RemoteSession, src, dst string) error {
	stack := []copyFrame{{src: src, dst: dst}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := sess.MakeDir(ctx, frame.dst); err != nil {
			return fmt.Errorf("create directory '%s': %w", frame.dst, err)
		}

		entries, err := sess.List(ctx, frame.src)
		if err != nil {
			return fmt.Errorf("list '%s': %w", frame.src, err)
		}
		for _, entry := range entries {
			childSrc := path.Join(frame.src, entry.Name)
			childDst := path.Join(frame.dst, entry.Name)
			if entry.IsDir() {
				stack = append(stack, copyFrame{src: childSrc, dst: childDst})
				continue
			}
			if err := uc.copyFile(ctx, sess, childSrc, childDst); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyFile скачивает файл во временный файл и загружает его обратно:
// одна FTP сессия не умеет читать и писать одновременно.
func (uc *FileManagementUseCase) copyFile(ctx context.Context, sess domain.RemoteSession, src, dst string) error {
	spool, err := os.CreateTemp(uc.cfg.Transfer.SpoolDir, "paste-*")
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		if closeErr := spool.Close(); closeErr != nil {
			logrus.Warnf("Failed to close spool file %s: %v", spool.Name(), closeErr)
		}
		if removeErr := os.Remove(spool.Name()); removeErr != nil {
			logrus.Warnf("Failed to remove spool file %s: %v", spool.Name(), removeErr)
		}
	}()

	if err := sess.Retrieve(ctx, src, spool); err != nil {
		return fmt.Errorf("read '%s': %w", src, err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind spool file: %w", err)
	}
	if err := sess.Store(ctx, dst, spool); err != nil {
		return fmt.Errorf("write '%s': %w", dst, err)
	}
	return nil
}
