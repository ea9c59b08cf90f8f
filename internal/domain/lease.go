package domain

import "sync"

// Lease аренда сессии. Release идемпотентен, его можно звать через defer.
type Lease struct {
	Session RemoteSession

	once    sync.Once
	release func(broken bool)
	broken  bool
}

func NewLease(session RemoteSession, release func(broken bool)) *Lease {
	return &Lease{Session: session, release: release}
}

// MarkBroken сессия не вернётся в пул и будет закрыта при освобождении.
func (l *Lease) MarkBroken() {
	l.broken = true
}

func (l *Lease) Release() {
	l.once.Do(func() {
		if l.release != nil {
			l.release(l.broken)
		}
	})
}
