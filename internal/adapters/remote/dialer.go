// Package remote содержит транспорты к удалённому хранилищу: FTP и SFTP.
package remote

import (
	"context"
	"fmt"
	"os"

	"remote-file-manager/internal/adapters/localstorage"
	"remote-file-manager/internal/config"
	"remote-file-manager/internal/domain"
)

// DialFunc открывает новую сессию.
type DialFunc func(ctx context.Context) (domain.RemoteSession, error)

// NewDialFunc выбирает транспорт по remote.protocol.
func NewDialFunc(cfg config.RemoteConfig, dirPerm os.FileMode) (DialFunc, error) {
	switch cfg.Protocol {
	case domain.ProtocolFTP:
		return NewFTPDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Timeout, cfg.ExplicitTLS).Dial, nil
	case domain.ProtocolSFTP:
		return NewSFTPDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Timeout, cfg.KnownHostsFile).Dial, nil
	case domain.ProtocolLocal:
		return localstorage.NewLocalStorageService(cfg.LocalPath, dirPerm).Dial, nil
	default:
		return nil, fmt.Errorf("unsupported remote protocol %q", cfg.Protocol)
	}
}
