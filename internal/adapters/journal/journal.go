// Package journal журнал двухфазных перемещений в SQLite.
//
// Перемещение это копирование и затем удаление источника. Запись проходит
// статусы copying → copied → done; при ошибке failed или delete_failed.
// Записи copying, copied и delete_failed после рестарта означают, что данные
// могут лежать и в источнике, и в назначении.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"remote-file-manager/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrMoveNotFound = errors.New("move not found")

const (
	sqlInsertMove = `INSERT INTO move_journal
		(id, client_id, source_path, destination_path, items, status, error, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)`

	sqlUpdateStatus = `UPDATE move_journal SET status = ?, error = ?, updated_at = ? WHERE id = ?`

	sqlPendingMoves = `SELECT id, client_id, source_path, destination_path, items, status, error, started_at, updated_at
		FROM move_journal WHERE status IN (?, ?, ?) ORDER BY started_at, id`
)

type Store struct {
	db      *sql.DB
	nowFunc func() time.Time
}

var _ domain.MoveJournal = (*Store)(nil)

// Open открывает базу по пути, создаёт каталог и применяет миграции.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create directory for %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dbPath, err)
	}

	// один писатель.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, nowFunc: time.Now}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("journal: migrations sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("journal: migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("journal: running migrations: %w", err)
	}

	for _, r := range results {
		logrus.WithFields(logrus.Fields{
			"source":      r.Source.Path,
			"duration_ms": r.Duration.Milliseconds(),
		}).Info("Applied journal migration")
	}

	return nil
}

func (s *Store) Begin(ctx context.Context, record domain.MoveRecord) error {
	items, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("journal: encode items: %w", err)
	}

	now := s.nowFunc().UnixNano()
	_, err = s.db.ExecContext(ctx, sqlInsertMove,
		record.ID, record.ClientID, record.SourcePath, record.DestinationPath,
		string(items), string(domain.MoveCopying), now, now)
	if err != nil {
		return fmt.Errorf("journal: begin move %s: %w", record.ID, err)
	}
	return nil
}

func (s *Store) MarkCopied(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.MoveCopied, "")
}

func (s *Store) Complete(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.MoveDone, "")
}

func (s *Store) Fail(ctx context.Context, id string, status domain.MoveStatus, reason string) error {
	return s.setStatus(ctx, id, status, reason)
}

func (s *Store) setStatus(ctx context.Context, id string, status domain.MoveStatus, reason string) error {
	res, err := s.db.ExecContext(ctx, sqlUpdateStatus, string(status), reason, s.nowFunc().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("journal: set move %s to %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("journal: set move %s to %s: %w", id, status, err)
	}
	if n == 0 {
		return fmt.Errorf("journal: move %s: %w", id, ErrMoveNotFound)
	}
	return nil
}

// Pending незавершённые перемещения, от старых к новым.
func (s *Store) Pending(ctx context.Context) ([]domain.MoveRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqlPendingMoves,
		string(domain.MoveCopying), string(domain.MoveCopied), string(domain.MoveDeleteFailed))
	if err != nil {
		return nil, fmt.Errorf("journal: query pending moves: %w", err)
	}
	defer rows.Close()

	var records []domain.MoveRecord
	for rows.Next() {
		var (
			rec                  domain.MoveRecord
			items, status        string
			startedAt, updatedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.ClientID, &rec.SourcePath, &rec.DestinationPath,
			&items, &status, &rec.Error, &startedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan move: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
			return nil, fmt.Errorf("journal: decode items of move %s: %w", rec.ID, err)
		}
		rec.Status = domain.MoveStatus(status)
		rec.StartedAt = time.Unix(0, startedAt).UTC()
		rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate pending moves: %w", err)
	}

	return records, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
