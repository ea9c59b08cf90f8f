package server

const (
	OperationDownload = "download"
	OperationZip      = "zip"

	LogRequestHandled  = "HTTP request handled"
	LogResponseAborted = "Response aborted after streaming started"
	LogRequestFailed   = "HTTP request failed"
	LogEncodeFailed    = "Failed to encode response"

	QueryParamPath     = "path"
	QueryParamFileName = "fileName"
	QueryParamZipID    = "zipId"
	FormParamFile      = "file"
	FormParamPath      = "path"

	HeaderClientID   = "X-Client-ID"
	CookieClientID   = "client_id"
	MaxJSONBodySize  = 1 << 20
	MaxMultipartMem  = 32 << 20
	RetryAfterSecond = "1"

	ResponseCopiedNone = "false"
	ResponseHealthy    = "ok"
)
