package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"remote-file-manager/internal/adapters/metrics"
	"remote-file-manager/internal/adapters/remote"
	"remote-file-manager/internal/domain"
)

// Pool ограниченный набор сессий. Вызывающие ждут в очереди семафора, одна
// сессия никогда не отдаётся двум арендаторам сразу.
type Pool struct {
	name     string
	dial     remote.DialFunc
	sem      *semaphore.Weighted
	failFast bool
	// reuse false: сессия закрывается при освобождении.
	reuse  bool
	maxAge time.Duration

	mu   sync.Mutex
	idle []*pooledSession

	nowFunc func() time.Time
}

type pooledSession struct {
	domain.RemoteSession
	created time.Time
}

type PoolOptions struct {
	Name string
	// Size 0 означает без ограничения.
	Size     int
	FailFast bool
	Reuse    bool
	MaxAge   time.Duration
}

func NewPool(dial remote.DialFunc, opts PoolOptions) *Pool {
	p := &Pool{
		name:     opts.Name,
		dial:     dial,
		failFast: opts.FailFast,
		reuse:    opts.Reuse,
		maxAge:   opts.MaxAge,
		nowFunc:  time.Now,
	}
	if opts.Size > 0 {
		p.sem = semaphore.NewWeighted(int64(opts.Size))
	}
	return p
}

// Acquire ждёт свободное место в пуле и выдаёт аренду.
func (p *Pool) Acquire(ctx context.Context) (*domain.Lease, error) {
	start := p.nowFunc()

	if p.sem != nil {
		if p.failFast {
			if !p.sem.TryAcquire(1) {
				return nil, fmt.Errorf("%s pool is busy: %w", p.name, domain.ErrOperationInProgress)
			}
		} else if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for %s session: %w", p.name, err)
		}
	}

	sess, err := p.take(ctx)
	if err != nil {
		p.releaseSlot()
		return nil, err
	}

	metrics.LeaseAcquired(p.name, p.nowFunc().Sub(start))

	return domain.NewLease(sess, func(broken bool) {
		p.put(sess, broken)
		metrics.LeaseReleased(p.name)
		p.releaseSlot()
	}), nil
}

func (p *Pool) releaseSlot() {
	if p.sem != nil {
		p.sem.Release(1)
	}
}

// take берёт живую свободную сессию или открывает новую.
func (p *Pool) take(ctx context.Context) (*pooledSession, error) {
	for {
		sess := p.popIdle()
		if sess == nil {
			break
		}
		if p.expired(sess) {
			p.closeSession(sess, "expired")
			continue
		}
		if err := sess.Ping(ctx); err != nil {
			logrus.WithFields(logrus.Fields{"pool": p.name}).Warnf("Idle session failed health check: %v", err)
			p.closeSession(sess, "unhealthy")
			continue
		}
		return sess, nil
	}

	raw, err := p.dial(ctx)
	metrics.RecordDial(p.name, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransportUnavailable, err)
	}
	return &pooledSession{RemoteSession: raw, created: p.nowFunc()}, nil
}

func (p *Pool) popIdle() *pooledSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.idle)
	if n == 0 {
		return nil
	}
	sess := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return sess
}

func (p *Pool) put(sess *pooledSession, broken bool) {
	if broken || !p.reuse || p.expired(sess) {
		p.closeSession(sess, "released")
		return
	}

	p.mu.Lock()
	p.idle = append(p.idle, sess)
	p.mu.Unlock()
}

func (p *Pool) expired(sess *pooledSession) bool {
	return p.maxAge > 0 && p.nowFunc().Sub(sess.created) >= p.maxAge
}

func (p *Pool) closeSession(sess *pooledSession, reason string) {
	if err := sess.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"pool":   p.name,
			"reason": reason,
		}).Warnf("Failed to close remote session: %v", err)
	}
}

// Recycle закрывает все простаивающие сессии, следующий Acquire откроет новые.
func (p *Pool) Recycle() int {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, sess := range idle {
		p.closeSession(sess, "recycle")
	}
	return len(idle)
}

// Idle количество свободных открытых сессий.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, sess := range idle {
		errs = append(errs, sess.Close())
	}
	return errors.Join(errs...)
}
