package domain

import "errors"

var (
	ErrPathTraversal  = errors.New("path traversal is not allowed")
	ErrPathTooLong    = errors.New("path too long")
	ErrInvalidName    = errors.New("invalid file or folder name")
	ErrInvalidRequest = errors.New("invalid request")

	ErrPathNotFound         = errors.New("file or folder not found")
	ErrTransportUnavailable = errors.New("remote transport unavailable")
	ErrOperationInProgress  = errors.New("remote operation in progress")
	ErrRenameConflict       = errors.New("rename destination already exists")
	ErrSelfPasteRejected    = errors.New("cannot paste a selection into itself")
	ErrClipboardEmpty       = errors.New("clipboard is empty")
	ErrPartialMoveFailure   = errors.New("move copied items but failed to delete the source")
	ErrArchiveFailure       = errors.New("failed to build archive")
)
