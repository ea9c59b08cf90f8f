// Package session управляет арендой сессий к удалённому хранилищу.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/adapters/remote"
	"remote-file-manager/internal/config"
	"remote-file-manager/internal/domain"
)

const (
	PoolExclusive = "exclusive"
	PoolTransfer  = "transfer"
	PoolDedicated = "dedicated"
)

// Manager три режима аренды за одним интерфейсом domain.SessionProvider.
type Manager struct {
	exclusive *Pool
	transfer  *Pool
	dedicated *Pool

	reconnectInterval time.Duration
}

var _ domain.SessionProvider = (*Manager)(nil)

func NewManager(dial remote.DialFunc, cfg config.SessionsConfig) *Manager {
	return &Manager{
		exclusive: NewPool(dial, PoolOptions{
			Name:     PoolExclusive,
			Size:     1,
			FailFast: cfg.ExclusiveFailFast,
			Reuse:    true,
			MaxAge:   cfg.ReconnectInterval,
		}),
		transfer: NewPool(dial, PoolOptions{
			Name:   PoolTransfer,
			Size:   cfg.PoolSize,
			Reuse:  true,
			MaxAge: cfg.ReconnectInterval,
		}),
		dedicated: NewPool(dial, PoolOptions{
			Name: PoolDedicated,
			Size: cfg.MaxDedicated,
		}),
		reconnectInterval: cfg.ReconnectInterval,
	}
}

func (m *Manager) Exclusive(ctx context.Context) (*domain.Lease, error) {
	return m.exclusive.Acquire(ctx)
}

func (m *Manager) Pooled(ctx context.Context) (*domain.Lease, error) {
	return m.transfer.Acquire(ctx)
}

func (m *Manager) Dedicated(ctx context.Context) (*domain.Lease, error) {
	return m.dedicated.Acquire(ctx)
}

// Run раз в reconnect_interval закрывает простаивающие долгоживущие сессии,
// чтобы сервер не рвал их по таймауту. Работает до отмены ctx.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.reconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed := m.exclusive.Recycle() + m.transfer.Recycle()
			logrus.WithField("closed", closed).Info("Remote sessions recycled")
		}
	}
}

func (m *Manager) Close() error {
	return errors.Join(m.exclusive.Close(), m.transfer.Close(), m.dedicated.Close())
}
