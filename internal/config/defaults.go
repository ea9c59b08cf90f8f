package config

import (
	"os"
	"time"

	"remote-file-manager/internal/domain"
)

const (
	DefaultPort              = 3002
	DefaultMaxUploadSize     = 1 << 30
	DefaultRemoteRoot        = "/Main"
	DefaultRemoteTimeout     = 30 * time.Second
	DefaultPoolSize          = 5
	DefaultReconnectInterval = time.Hour
	DefaultEvictionDelay     = 5 * time.Second
	DefaultClipboardTTL      = 24 * time.Hour
	DefaultJournalPath       = "data/moves.db"
	DefaultMaxPathLength     = 1024
	DefaultValidNameRegex    = `^[^/\\:*?"<>|\x00-\x1f\x7f]+$`
)

var defaultPorts = map[string]int{
	domain.ProtocolFTP:  21,
	domain.ProtocolSFTP: 22,
}

// applyDefaults заполняет всё, что не задано в файле. Обязательными остаются
// только адрес и учётные данные удалённого хранилища.
func applyDefaults(cfg *Config) {
	setInt(&cfg.Server.Port, DefaultPort)
	setInt64(&cfg.Server.MaxUploadSize, DefaultMaxUploadSize)
	setString(&cfg.Server.CORSOrigin, "*")

	setString(&cfg.Log.Level, "info")
	setString(&cfg.Log.Format, "text")

	setString(&cfg.Remote.Protocol, domain.ProtocolFTP)
	setInt(&cfg.Remote.Port, defaultPorts[cfg.Remote.Protocol])
	setString(&cfg.Remote.Root, DefaultRemoteRoot)
	setDuration(&cfg.Remote.Timeout, DefaultRemoteTimeout)

	setInt(&cfg.Sessions.PoolSize, DefaultPoolSize)
	setDuration(&cfg.Sessions.ReconnectInterval, DefaultReconnectInterval)

	setDuration(&cfg.Progress.EvictionDelay, DefaultEvictionDelay)
	setString(&cfg.Transfer.SpoolDir, os.TempDir())

	setString(&cfg.Clipboard.Backend, "memory")
	setDuration(&cfg.Clipboard.TTL, DefaultClipboardTTL)

	setString(&cfg.Journal.Path, DefaultJournalPath)

	setInt(&cfg.File.MaxPathLength, DefaultMaxPathLength)
	setString(&cfg.File.ValidNameRegex, DefaultValidNameRegex)

	applyRouteDefaults(&cfg.Routes)
	applyMessageDefaults(&cfg.Messages)
}

func applyRouteDefaults(r *RoutesConfig) {
	setString(&r.List, "/list")
	setString(&r.Download, "/download")
	setString(&r.DownloadProgress, "/download-progress")
	setString(&r.Upload, "/upload")
	setString(&r.UploadProgress, "/upload-progress")
	setString(&r.Delete, "/delete")
	setString(&r.DeleteFile, "/delete-file")
	setString(&r.DeletePath, "/deletepath")
	setString(&r.Rename, "/rename")
	setString(&r.CreateFolder, "/create-folder")
	setString(&r.Copy, "/copy")
	setString(&r.CopiedItems, "/setCopiedItems")
	setString(&r.Paste, "/paste")
	setString(&r.Move, "/move")
	setString(&r.PendingMoves, "/pending-moves")
	setString(&r.ZipDownload, "/zip-download")
	setString(&r.ZipProgress, "/zip-progress")
	setString(&r.Metrics, "/metrics")
	setString(&r.Health, "/healthz")
}

func applyMessageDefaults(m *Messages) {
	setString(&m.CannotList, "Error listing directory")
	setString(&m.CannotDownload, "Error downloading file")
	setString(&m.CannotUpload, "Error uploading file(s)")
	setString(&m.CannotDelete, "Error deleting path")
	setString(&m.CannotRename, "Error renaming file or directory")
	setString(&m.CannotCreate, "Error creating folder")
	setString(&m.CannotCopy, "Error copying items")
	setString(&m.CannotPaste, "Error pasting file(s)")
	setString(&m.CannotMove, "Error moving file(s)")
	setString(&m.PartialMove, "Items were copied but the source could not be deleted")
	setString(&m.CannotZip, "Error zipping and downloading")
	setString(&m.BadRequest, "Invalid request")
	setString(&m.NotFound, "File or folder not found")
	setString(&m.Conflict, "Destination already exists")
	setString(&m.Busy, "FTP operation in progress")
	setString(&m.InternalError, "Internal server error")

	setString(&m.Uploaded, "File(s) uploaded successfully")
	setString(&m.FileDeleted, "File deleted successfully")
	setString(&m.PathDeleted, "Path deleted successfully")
	setString(&m.Renamed, "File or directory renamed successfully")
	setString(&m.FolderCreated, "Folder created successfully")
	setString(&m.Copied, "Copied items successfully")
	setString(&m.Pasted, "File(s) pasted successfully")
	setString(&m.Moved, "File(s) moved successfully")
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setInt64(dst *int64, def int64) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}
