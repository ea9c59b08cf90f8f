package usecases

// Значения поля operation в логах.
const (
	operationDownload     = "download"
	operationUpload       = "upload"
	operationCreateFolder = "create_folder"
	operationDeleteFile   = "delete_file"
	operationDeletePath   = "delete_path"
	operationRename       = "rename"
	operationCopy         = "copy"
	operationPaste        = "paste"
	operationMove         = "move"
	operationZip          = "zip"
)
