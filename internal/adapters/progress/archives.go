package progress

import (
	"sync"
	"time"

	"remote-file-manager/internal/domain"
)

type archiveRecord struct {
	job        domain.ArchiveJob
	generation uint64
}

// ArchiveTracker прогресс zip архивов по zipId клиента.
type ArchiveTracker struct {
	mu         sync.Mutex
	records    map[string]*archiveRecord
	generation uint64

	afterFunc func(d time.Duration, f func())
}

var _ domain.ArchiveTracker = (*ArchiveTracker)(nil)

func NewArchiveTracker() *ArchiveTracker {
	return &ArchiveTracker{
		records:   make(map[string]*archiveRecord),
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func (a *ArchiveTracker) Start(zipID string, totalItems uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation++
	a.records[zipID] = &archiveRecord{
		job:        domain.ArchiveJob{ZipID: zipID, TotalItems: totalItems},
		generation: a.generation,
	}
}

// Advance +1 обработанный элемент, не больше TotalItems.
func (a *ArchiveTracker) Advance(zipID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[zipID]
	if !ok || rec.job.ProcessedItems >= rec.job.TotalItems {
		return
	}
	rec.job.ProcessedItems++
}

func (a *ArchiveTracker) Finish(zipID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rec, ok := a.records[zipID]; ok {
		rec.job.Complete = true
	}
}

func (a *ArchiveTracker) Get(zipID string) domain.ArchiveJob {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rec, ok := a.records[zipID]; ok {
		return rec.job
	}
	return domain.ArchiveJob{ZipID: zipID}
}

func (a *ArchiveTracker) Evict(zipID string, after time.Duration) {
	a.mu.Lock()
	rec, ok := a.records[zipID]
	if !ok {
		a.mu.Unlock()
		return
	}
	generation := rec.generation
	a.mu.Unlock()

	a.afterFunc(after, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if current, exists := a.records[zipID]; exists && current.generation == generation {
			delete(a.records, zipID)
		}
	})
}
