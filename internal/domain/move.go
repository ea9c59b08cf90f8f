package domain

import (
	"context"
	"time"
)

// MoveStatus этап двухфазного перемещения.
type MoveStatus string

const (
	MoveCopying      MoveStatus = "copying"
	MoveCopied       MoveStatus = "copied"
	MoveDone         MoveStatus = "done"
	MoveFailed       MoveStatus = "failed"
	MoveDeleteFailed MoveStatus = "delete_failed"
)

// MoveRecord запись журнала перемещений. Если процесс упал между копированием
// и удалением, запись остаётся в статусе copied.
type MoveRecord struct {
	ID              string      `json:"id"`
	ClientID        string      `json:"clientId"`
	SourcePath      string      `json:"sourcePath"`
	DestinationPath string      `json:"destinationPath"`
	Items           []FileEntry `json:"items"`
	Status          MoveStatus  `json:"status"`
	Error           string      `json:"error,omitempty"`
	StartedAt       time.Time   `json:"startedAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// MoveJournal хранилище журнала перемещений.
type MoveJournal interface {
	Begin(ctx context.Context, record MoveRecord) error
	MarkCopied(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, status MoveStatus, reason string) error
	Pending(ctx context.Context) ([]MoveRecord, error)
}
