package domain

const (
	PathEmpty           = ""
	PathCurrent         = "."
	PathParent          = ".."
	PathRoot            = "/"
	PathSeparator       = "/"
	PathTraversalPrefix = ".."
	ExtensionZip        = ".zip"
	MIMEOctetStream     = "application/octet-stream"
	MIMEZip             = "application/zip"
	MIMEJSON            = "application/json"

	// VersionSuffixFormat суффикс для разрешения конфликтов имён при вставке.
	VersionSuffixFormat = " (version %d)"

	// DefaultClientID общий буфер обмена для клиентов без идентификатора.
	DefaultClientID = "default"

	ProtocolFTP   = "ftp"
	ProtocolSFTP  = "sftp"
	ProtocolLocal = "local"
)
