package usecases

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/adapters/metrics"
	"remote-file-manager/internal/domain"
)

func (uc *FileManagementUseCase) Copy(ctx context.Context, clientID, sourceLogical string, items []domain.FileEntry) error {
	if err := uc.validateSelection(items); err != nil {
		return err
	}
	if _, err := uc.sanitizePath(sourceLogical); err != nil {
		return err
	}

	state := domain.ClipboardState{SourcePath: sourceLogical, Items: items}
	if err := uc.clipboard.Set(ctx, clientID, state); err != nil {
		return fmt.Errorf("could not save clipboard: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"operation": operationCopy,
		"client_id": clientID,
		"path":      sourceLogical,
		"items":     len(items),
	}).Info("Items copied to clipboard")
	return nil
}

// CopiedSource путь, из которого скопированы элементы; false, если буфер пуст.
func (uc *FileManagementUseCase) CopiedSource(ctx context.Context, clientID string) (string, bool, error) {
	state, ok, err := uc.clipboard.Get(ctx, clientID)
	if err != nil {
		return "", false, fmt.Errorf("could not load clipboard: %w", err)
	}
	if !ok || state.Empty() {
		return "", false, nil
	}
	return state.SourcePath, true, nil
}

// pastePlan разобранный буфер обмена с абсолютными путями.
type pastePlan struct {
	state  domain.ClipboardState
	source string
	dest   string
}

func (uc *FileManagementUseCase) planPaste(ctx context.Context, clientID, destLogical string) (pastePlan, error) {
	dest, err := uc.sanitizePath(destLogical)
	if err != nil {
		return pastePlan{}, err
	}

	state, ok, err := uc.clipboard.Get(ctx, clientID)
	if err != nil {
		return pastePlan{}, fmt.Errorf("could not load clipboard: %w", err)
	}
	if !ok || state.Empty() {
		return pastePlan{}, domain.ErrClipboardEmpty
	}

	source, err := uc.sanitizePath(state.SourcePath)
	if err != nil {
		return pastePlan{}, err
	}

	for _, item := range state.Items {
		itemPath := path.Join(source, item.Name)
		if itemPath == dest {
			return pastePlan{}, fmt.Errorf("'%s' is the destination itself: %w", itemPath, domain.ErrSelfPasteRejected)
		}
		if item.IsDir() && strings.HasPrefix(dest, itemPath+domain.PathSeparator) {
			return pastePlan{}, fmt.Errorf("destination '%s' is inside '%s': %w", dest, itemPath, domain.ErrSelfPasteRejected)
		}
	}

	return pastePlan{state: state, source: source, dest: dest}, nil
}

// pasteItems копирует выбранные элементы в каталог назначения, разрешая
// конфликты имён по одному листингу назначения.
func (uc *FileManagementUseCase) pasteItems(ctx context.Context, sess domain.RemoteSession, plan pastePlan) error {
	taken, err := listNames(ctx, sess, plan.dest)
	if err != nil {
		return fmt.Errorf("could not list destination '%s': %w", plan.dest, asNotFound(err))
	}

	for _, item := range plan.state.Items {
		name := resolveCollision(item, taken)
		taken[name] = struct{}{}

		src := path.Join(plan.source, item.Name)
		dst := path.Join(plan.dest, name)
		if item.IsDir() {
			err = uc.copyTree(ctx, sess, src, dst)
		} else {
			err = uc.copyFile(ctx, sess, src, dst)
		}
		if err != nil {
			return fmt.Errorf("could not paste '%s' as '%s': %w", src, dst, err)
		}

		logrus.WithFields(logrus.Fields{
			"source":      src,
			"destination": dst,
		}).Debug("Item pasted")
	}
	return nil
}

func (uc *FileManagementUseCase) Paste(ctx context.Context, clientID, destLogical string) error {
	plan, err := uc.planPaste(ctx, clientID, destLogical)
	if err != nil {
		return err
	}

	lease, err := uc.sessions.Dedicated(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := uc.pasteItems(ctx, lease.Session, plan); err != nil {
		return err
	}

	uc.clearClipboard(ctx, clientID)

	logrus.WithFields(logrus.Fields{
		"operation":   operationPaste,
		"client_id":   clientID,
		"source":      plan.source,
		"destination": plan.dest,
		"items":       len(plan.state.Items),
	}).Info("Items pasted")
	return nil
}

// Move копирует и затем удаляет источник. Каждая фаза пишется в журнал,
// чтобы перемещение, прерванное между фазами, было видно после рестарта.
func (uc *FileManagementUseCase) Move(ctx context.Context, clientID, destLogical string) error {
	plan, err := uc.planPaste(ctx, clientID, destLogical)
	if err != nil {
		return err
	}
	if plan.source == plan.dest {
		return fmt.Errorf("items already are in '%s': %w", plan.dest, domain.ErrSelfPasteRejected)
	}

	lease, err := uc.sessions.Dedicated(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	record := domain.MoveRecord{
		ID:              uc.newID(),
		ClientID:        clientID,
		SourcePath:      plan.source,
		DestinationPath: plan.dest,
		Items:           plan.state.Items,
	}
	if err := uc.journal.Begin(ctx, record); err != nil {
		return fmt.Errorf("could not journal move: %w", err)
	}
	log := logrus.WithFields(logrus.Fields{
		"operation":   operationMove,
		"move_id":     record.ID,
		"client_id":   clientID,
		"source":      plan.source,
		"destination": plan.dest,
	})

	if err := uc.pasteItems(ctx, lease.Session, plan); err != nil {
		uc.failMove(ctx, record.ID, domain.MoveFailed, err)
		return err
	}
	// отмена запроса не должна оставлять журнал в старом статусе.
	journalCtx := context.WithoutCancel(ctx)
	if err := uc.journal.MarkCopied(journalCtx, record.ID); err != nil {
		log.WithError(err).Warn("Failed to mark move as copied")
	}

	var deleteErrs []error
	for _, item := range plan.state.Items {
		src := path.Join(plan.source, item.Name)
		if err := removeEntry(ctx, lease.Session, src, item.IsDir()); err != nil {
			deleteErrs = append(deleteErrs, fmt.Errorf("'%s': %w", src, err))
		}
	}
	if len(deleteErrs) > 0 {
		cause := errors.Join(deleteErrs...)
		uc.failMove(ctx, record.ID, domain.MoveDeleteFailed, cause)
		return fmt.Errorf("%w: %w", domain.ErrPartialMoveFailure, cause)
	}

	if err := uc.journal.Complete(journalCtx, record.ID); err != nil {
		log.WithError(err).Warn("Failed to mark move as done")
	}
	metrics.RecordMove(string(domain.MoveDone))
	uc.clearClipboard(ctx, clientID)

	log.WithField("items", len(plan.state.Items)).Info("Items moved")
	return nil
}

func (uc *FileManagementUseCase) failMove(ctx context.Context, id string, status domain.MoveStatus, cause error) {
	metrics.RecordMove(string(status))
	logrus.WithFields(logrus.Fields{
		"move_id": id,
		"status":  status,
	}).WithError(cause).Error("Move failed")

	if err := uc.journal.Fail(context.WithoutCancel(ctx), id, status, cause.Error()); err != nil {
		logrus.WithField("move_id", id).WithError(err).Warn("Failed to journal move failure")
	}
}

func (uc *FileManagementUseCase) PendingMoves(ctx context.Context) ([]domain.MoveRecord, error) {
	records, err := uc.journal.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read move journal: %w", err)
	}
	return records, nil
}

func (uc *FileManagementUseCase) clearClipboard(ctx context.Context, clientID string) {
	if err := uc.clipboard.Clear(ctx, clientID); err != nil {
		logrus.WithField("client_id", clientID).WithError(err).Warn("Failed to clear clipboard")
	}
}
