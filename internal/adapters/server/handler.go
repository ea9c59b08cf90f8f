package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/config"
	"remote-file-manager/internal/domain"
)

type Handler struct {
	uc            domain.FileManagement
	maxUploadSize int64
	messages      config.Messages
}

func NewHandler(uc domain.FileManagement, maxUploadSize int64, messages config.Messages) *Handler {
	return &Handler{
		uc:            uc,
		maxUploadSize: maxUploadSize,
		messages:      messages,
	}
}

type pathRequest struct {
	Path string `json:"path"`
}

type renameRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

type createFolderRequest struct {
	Path       string `json:"path"`
	FolderName string `json:"folderName"`
}

type selectionRequest struct {
	SelectedItems []domain.FileEntry `json:"selectedItems"`
	Path          string             `json:"path"`
	ZipID         string             `json:"zipId"`
}

type downloadProgressResponse struct {
	TotalSize       uint64  `json:"totalSize"`
	BytesDownloaded uint64  `json:"bytesDownloaded"`
	DownloadSpeed   float64 `json:"downloadSpeed"`
	IsDownloaded    bool    `json:"isDownloaded"`
}

type uploadProgressResponse struct {
	TotalSize     uint64  `json:"totalSize"`
	BytesUploaded uint64  `json:"bytesUploaded"`
	UploadSpeed   float64 `json:"uploadSpeed"`
	IsUploaded    bool    `json:"isUploaded"`
}

type zipProgressResponse struct {
	TotalItems     uint32 `json:"totalItems"`
	ProcessedItems uint32 `json:"processedItems"`
	IsCompleted    bool   `json:"isCompleted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, err, h.messages.CannotList)
		return
	}

	entries, err := h.uc.List(r.Context(), req.Path)
	if err != nil {
		h.handleError(w, err, h.messages.CannotList)
		return
	}
	if entries == nil {
		entries = []domain.FileEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	logical := r.URL.Query().Get(QueryParamPath)
	aw := &attachmentWriter{w: w, fileName: path.Base(logical)}

	if err := h.uc.Download(r.Context(), logical, aw); err != nil {
		if aw.started {
			// заголовки уже ушли, остаётся только оборвать ответ.
			logrus.WithFields(logrus.Fields{
				"operation": OperationDownload,
				"path":      logical,
			}).WithError(err).Error(LogResponseAborted)
			return
		}
		h.handleError(w, err, h.messages.CannotDownload)
		return
	}
	if !aw.started {
		// пустой файл.
		aw.writeHeaders()
	}
}

func (h *Handler) DownloadProgress(w http.ResponseWriter, r *http.Request) {
	p := h.uc.DownloadProgress(r.URL.Query().Get(QueryParamPath))
	h.writeJSON(w, http.StatusOK, downloadProgressResponse{
		TotalSize:       p.TotalSize,
		BytesDownloaded: p.Transferred,
		DownloadSpeed:   p.Speed,
		IsDownloaded:    p.Complete,
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

		// ContentLength может быть -1 при chunked-передаче, поэтому дополнительно проверяем header.Size.
		if r.ContentLength > h.maxUploadSize {
			return fmt.Errorf("upload size %d exceeds maximum %d: %w",
				r.ContentLength, h.maxUploadSize, domain.ErrInvalidRequest)
		}
		if err := r.ParseMultipartForm(MaxMultipartMem); err != nil {
			return fmt.Errorf("failed to parse multipart form: %w: %w", domain.ErrInvalidRequest, err)
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(FormParamFile)
		if err != nil {
			return fmt.Errorf("failed to get form file: %w: %w", domain.ErrInvalidRequest, err)
		}
		defer file.Close()

		if header.Size > h.maxUploadSize {
			return fmt.Errorf("file size %d exceeds maximum %d: %w",
				header.Size, h.maxUploadSize, domain.ErrInvalidRequest)
		}

		return h.uc.Upload(r.Context(), r.FormValue(FormParamPath), header.Filename, file, header.Size)
	}, h.messages.Uploaded, h.messages.CannotUpload)
}

func (h *Handler) UploadProgress(w http.ResponseWriter, r *http.Request) {
	p := h.uc.UploadProgress(r.URL.Query().Get(QueryParamFileName))
	h.writeJSON(w, http.StatusOK, uploadProgressResponse{
		TotalSize:     p.TotalSize,
		BytesUploaded: p.Transferred,
		UploadSpeed:   p.Speed,
		IsUploaded:    p.Complete,
	})
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		var req pathRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}
		return h.uc.DeleteFile(r.Context(), req.Path)
	}, h.messages.FileDeleted, h.messages.CannotDelete)
}

func (h *Handler) DeletePath(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		var req pathRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}
		return h.uc.DeletePath(r.Context(), req.Path)
	}, h.messages.PathDeleted, h.messages.CannotDelete)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		var req renameRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}
		return h.uc.Rename(r.Context(), req.OldPath, req.NewPath)
	}, h.messages.Renamed, h.messages.CannotRename)
}

func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		var req createFolderRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}
		return h.uc.CreateFolder(r.Context(), req.Path, req.FolderName)
	}, h.messages.FolderCreated, h.messages.CannotCreate)
}

func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		var req selectionRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}
		return h.uc.Copy(r.Context(), clientIDFrom(r.Context()), req.Path, req.SelectedItems)
	}, h.messages.Copied, h.messages.CannotCopy)
}

// CopiedItems отдаёт путь, откуда скопированы элементы, или "false".
func (h *Handler) CopiedItems(w http.ResponseWriter, r *http.Request) {
	source, ok, err := h.uc.CopiedSource(r.Context(), clientIDFrom(r.Context()))
	if err != nil {
		h.handleError(w, err, h.messages.InternalError)
		return
	}
	if !ok {
		source = ResponseCopiedNone
	}
	h.writeText(w, http.StatusOK, source)
}

func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		var req pathRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}
		return h.uc.Paste(r.Context(), clientIDFrom(r.Context()), req.Path)
	}, h.messages.Pasted, h.messages.CannotPaste)
}

func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, func() error {
		var req pathRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}
		return h.uc.Move(r.Context(), clientIDFrom(r.Context()), req.Path)
	}, h.messages.Moved, h.messages.CannotMove)
}

func (h *Handler) PendingMoves(w http.ResponseWriter, r *http.Request) {
	records, err := h.uc.PendingMoves(r.Context())
	if err != nil {
		h.handleError(w, err, h.messages.InternalError)
		return
	}
	if records == nil {
		records = []domain.MoveRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) ZipDownload(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, err, h.messages.CannotZip)
		return
	}

	data, err := h.uc.Archive(r.Context(), req.ZipID, req.Path, req.SelectedItems)
	if err != nil {
		h.handleError(w, err, h.messages.CannotZip)
		return
	}

	w.Header().Set("Content-Type", domain.MIMEZip)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": req.ZipID + domain.ExtensionZip,
	}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logrus.WithFields(logrus.Fields{
			"operation": OperationZip,
			"zip_id":    req.ZipID,
		}).WithError(err).Error(LogResponseAborted)
	}
}

func (h *Handler) ZipProgress(w http.ResponseWriter, r *http.Request) {
	job := h.uc.ArchiveProgress(r.URL.Query().Get(QueryParamZipID))
	h.writeJSON(w, http.StatusOK, zipProgressResponse{
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		IsCompleted:    job.Complete,
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeText(w, http.StatusOK, ResponseHealthy)
}

// handleAction общий путь для операций, которые отвечают текстом об успехе.
func (h *Handler) handleAction(w http.ResponseWriter, action func() error, success, failure string) {
	if err := action(); err != nil {
		h.handleError(w, err, failure)
		return
	}
	h.writeText(w, http.StatusOK, success)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w: %w", domain.ErrInvalidRequest, err)
	}
	return nil
}

type errorType int

const (
	errorTypeBadRequest errorType = iota
	errorTypeNotFound
	errorTypeConflict
	errorTypeBusy
	errorTypePartialMove
	errorTypeInternal
)

// getErrorType сопоставляет доменные ошибки с HTTP-кодами статуса.
func (h *Handler) getErrorType(err error) errorType {
	switch {
	case errors.Is(err, domain.ErrPathTraversal) || errors.Is(err, domain.ErrInvalidName) ||
		errors.Is(err, domain.ErrPathTooLong) || errors.Is(err, domain.ErrSelfPasteRejected) ||
		errors.Is(err, domain.ErrClipboardEmpty) || errors.Is(err, domain.ErrInvalidRequest):
		return errorTypeBadRequest
	case errors.Is(err, domain.ErrPartialMoveFailure):
		return errorTypePartialMove
	case errors.Is(err, domain.ErrPathNotFound):
		return errorTypeNotFound
	case errors.Is(err, domain.ErrRenameConflict):
		return errorTypeConflict
	case errors.Is(err, domain.ErrOperationInProgress):
		return errorTypeBusy
	default:
		return errorTypeInternal
	}
}

func (h *Handler) handleError(w http.ResponseWriter, err error, message string) {
	var httpStatus int
	var clientMessage string

	switch h.getErrorType(err) {
	case errorTypeBadRequest:
		httpStatus = http.StatusBadRequest
		clientMessage = h.badRequestMessage(err)
	case errorTypeNotFound:
		httpStatus = http.StatusNotFound
		clientMessage = h.messages.NotFound
	case errorTypeConflict:
		httpStatus = http.StatusConflict
		clientMessage = h.messages.Conflict
	case errorTypeBusy:
		httpStatus = http.StatusServiceUnavailable
		clientMessage = h.messages.Busy
		w.Header().Set("Retry-After", RetryAfterSecond)
	case errorTypePartialMove:
		httpStatus = http.StatusInternalServerError
		clientMessage = h.messages.PartialMove
	case errorTypeInternal:
		httpStatus = http.StatusInternalServerError
		clientMessage = message
	}

	logrus.WithFields(logrus.Fields{
		"status":  httpStatus,
		"message": clientMessage,
	}).WithError(err).Error(LogRequestFailed)
	h.writeJSON(w, httpStatus, errorResponse{Error: clientMessage})
}

// badRequestMessage текст доменной ошибки без подробностей пути.
func (h *Handler) badRequestMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrPathTraversal, domain.ErrInvalidName, domain.ErrPathTooLong,
		domain.ErrSelfPasteRejected, domain.ErrClipboardEmpty,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return h.messages.BadRequest
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", domain.MIMEJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn(LogEncodeFailed)
	}
}

func (h *Handler) writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(text)); err != nil {
		logrus.WithError(err).Warn(LogEncodeFailed)
	}
}

// attachmentWriter ставит заголовки файла при первой записи, чтобы ошибка до
// начала передачи ещё могла вернуться как JSON.
type attachmentWriter struct {
	w        http.ResponseWriter
	fileName string
	started  bool
}

func (a *attachmentWriter) writeHeaders() {
	a.started = true

	mimeType := mime.TypeByExtension(path.Ext(a.fileName))
	if mimeType == domain.PathEmpty {
		mimeType = domain.MIMEOctetStream
	}
	a.w.Header().Set("Content-Type", mimeType)
	a.w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": a.fileName,
	}))
	a.w.WriteHeader(http.StatusOK)
}

func (a *attachmentWriter) Write(b []byte) (int, error) {
	if !a.started {
		a.writeHeaders()
	}
	return a.w.Write(b)
}
