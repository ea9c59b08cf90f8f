package server

import (
	"net/http"

	"remote-file-manager/internal/adapters/metrics"
	"remote-file-manager/internal/config"
)

// Routes собирает маршруты и middleware. Пути берутся из конфига.
func (h *Handler) Routes(routes config.RoutesConfig, corsOrigin string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+routes.List, h.List)
	mux.HandleFunc("GET "+routes.Download, h.Download)
	mux.HandleFunc("GET "+routes.DownloadProgress, h.DownloadProgress)
	mux.HandleFunc("POST "+routes.Upload, h.Upload)
	mux.HandleFunc("GET "+routes.UploadProgress, h.UploadProgress)
	mux.HandleFunc("DELETE "+routes.Delete, h.DeletePath)
	mux.HandleFunc("DELETE "+routes.DeleteFile, h.DeleteFile)
	mux.HandleFunc("DELETE "+routes.DeletePath, h.DeletePath)
	mux.HandleFunc("POST "+routes.Rename, h.Rename)
	mux.HandleFunc("POST "+routes.CreateFolder, h.CreateFolder)
	mux.HandleFunc("POST "+routes.Copy, h.Copy)
	mux.HandleFunc("POST "+routes.CopiedItems, h.CopiedItems)
	mux.HandleFunc("POST "+routes.Paste, h.Paste)
	mux.HandleFunc("POST "+routes.Move, h.Move)
	mux.HandleFunc("GET "+routes.PendingMoves, h.PendingMoves)
	mux.HandleFunc("POST "+routes.ZipDownload, h.ZipDownload)
	mux.HandleFunc("GET "+routes.ZipProgress, h.ZipProgress)
	mux.HandleFunc("GET "+routes.Health, h.Health)
	mux.Handle("GET "+routes.Metrics, metrics.Handler())

	// withLogging ближе всех к mux: только так виден r.Pattern.
	return withCORS(corsOrigin, withClientID(withLogging(mux)))
}
