// Package progress хранит в памяти прогресс передач и сборки архивов.
// Записи живут до завершения операции плюс короткий период для опроса.
package progress

import (
	"sync"
	"time"

	"remote-file-manager/internal/domain"
)

type transferRecord struct {
	progress   domain.TransferProgress
	lastBytes  uint64
	lastUpdate time.Time
	generation uint64
}

// TransferTracker прогресс загрузок и выгрузок по идентификатору передачи.
type TransferTracker struct {
	mu         sync.Mutex
	records    map[string]*transferRecord
	generation uint64

	nowFunc   func() time.Time
	afterFunc func(d time.Duration, f func())
}

var _ domain.TransferTracker = (*TransferTracker)(nil)

func NewTransferTracker() *TransferTracker {
	return &TransferTracker{
		records:   make(map[string]*transferRecord),
		nowFunc:   time.Now,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Track заводит запись заново, даже если передача с тем же id уже была.
func (t *TransferTracker) Track(id string, totalSize uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.records[id] = &transferRecord{
		progress:   domain.TransferProgress{TotalSize: totalSize, Complete: totalSize == 0},
		lastUpdate: t.nowFunc(),
		generation: t.generation,
	}
}

// Update скорость считается по приросту байт с прошлого вызова. Если время не
// сдвинулось, остаётся прошлая скорость.
func (t *TransferTracker) Update(id string, transferred uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok || rec.progress.Complete || transferred < rec.progress.Transferred {
		return
	}

	now := t.nowFunc()
	if elapsed := now.Sub(rec.lastUpdate).Seconds(); elapsed > 0 {
		rec.progress.Speed = float64(transferred-rec.lastBytes) / elapsed
		rec.lastBytes = transferred
		rec.lastUpdate = now
	}

	rec.progress.Transferred = transferred
	if transferred >= rec.progress.TotalSize {
		rec.progress.Complete = true
	}
}

func (t *TransferTracker) Finish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[id]; ok {
		rec.progress.Complete = true
	}
}

// Get для неизвестного id отдаёт нулевую запись.
func (t *TransferTracker) Get(id string) domain.TransferProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[id]; ok {
		return rec.progress
	}
	return domain.TransferProgress{}
}

// Evict удаляет запись через after. Повторный Track того же id до срабатывания
// таймера новую запись не трогает.
func (t *TransferTracker) Evict(id string, after time.Duration) {
	t.mu.Lock()
	rec, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	generation := rec.generation
	t.mu.Unlock()

	t.afterFunc(after, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if current, exists := t.records[id]; exists && current.generation == generation {
			delete(t.records, id)
		}
	})
}

// Len число записей, для тестов и метрик.
func (t *TransferTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
