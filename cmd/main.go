package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"remote-file-manager/internal/adapters/clipboard"
	"remote-file-manager/internal/adapters/journal"
	"remote-file-manager/internal/adapters/progress"
	"remote-file-manager/internal/adapters/remote"
	"remote-file-manager/internal/adapters/server"
	"remote-file-manager/internal/adapters/session"
	"remote-file-manager/internal/config"
	"remote-file-manager/internal/domain"
	"remote-file-manager/internal/usecases"
)

// shutdownTimeout макс время на корректное завершение, чтобы зависшие соединения
// не блокировали остановку.
const shutdownTimeout = 5 * time.Second

// dirPermissions права каталогов для протокола local.
const dirPermissions = 0o755

var flagConfigPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "remote-file-manager",
		Short:         "HTTP proxy for managing files on a remote FTP/SFTP server",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runServe,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "config.yaml", "config file path")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  runServe,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "moves",
		Short: "Print unfinished moves from the journal",
		RunE:  runMoves,
	})

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithError(flagConfigPath)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// каталог для временных файлов при копировании должен существовать до первого paste.
	if err := os.MkdirAll(cfg.Transfer.SpoolDir, dirPermissions); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	dial, err := remote.NewDialFunc(cfg.Remote, dirPermissions)
	if err != nil {
		return err
	}
	sessions := session.NewManager(dial, cfg.Sessions)
	defer func() {
		if err := sessions.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close remote sessions")
		}
	}()
	go sessions.Run(ctx)

	clipboardStore, closeClipboard, err := newClipboardStore(ctx, cfg.Clipboard)
	if err != nil {
		return err
	}
	defer closeClipboard()

	moveJournal, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := moveJournal.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close move journal")
		}
	}()
	reportPendingMoves(ctx, moveJournal)

	fileUsecase := usecases.NewFileManagementUseCase(usecases.Dependencies{
		Sessions:  sessions,
		Transfers: progress.NewTransferTracker(),
		Archives:  progress.NewArchiveTracker(),
		Clipboard: clipboardStore,
		Journal:   moveJournal,
	}, cfg)

	handler := server.NewHandler(fileUsecase, cfg.Server.MaxUploadSize, cfg.Messages)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(cfg.Routes, cfg.Server.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":     addr,
			"protocol": cfg.Remote.Protocol,
			"root":     cfg.Remote.Root,
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown error")
	} else {
		logrus.Info("Server stopped gracefully")
	}
	return nil
}

// newClipboardStore память процесса или Redis, если прокси запущен в нескольких экземплярах.
func newClipboardStore(ctx context.Context, cfg config.ClipboardConfig) (domain.ClipboardStore, func(), error) {
	if cfg.Backend != "redis" {
		return clipboard.NewMemoryStore(), func() {}, nil
	}

	client, err := clipboard.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logrus.WithField("addr", cfg.RedisAddr).Info("Clipboard stored in Redis")

	return clipboard.NewRedisStore(client, cfg.TTL), func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}, nil
}

func reportPendingMoves(ctx context.Context, j domain.MoveJournal) {
	pending, err := j.Pending(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read move journal")
		return
	}
	for _, rec := range pending {
		logrus.WithFields(logrus.Fields{
			"move_id":     rec.ID,
			"client_id":   rec.ClientID,
			"source":      rec.SourcePath,
			"destination": rec.DestinationPath,
			"status":      rec.Status,
		}).Warn("Unfinished move found in journal, data may exist in both places")
	}
}

func runMoves(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	moveJournal, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer moveJournal.Close()

	pending, err := moveJournal.Pending(ctx)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = []domain.MoveRecord{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pending)
}
