package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidID        = 1004
	ErrCodeInvalidState     = 1005
	ErrCodeInvalidFolios    = 1006
	ErrCodeMissingRequired  = 1007
	ErrCodeInvalidTimeValue = 1008
	ErrCodeInvalidMetadata  = 1009

	// Domain state (2xxx)
	ErrCodeDocumentNotFound   = 2001
	ErrCodeContainerNotFound  = 2002
	ErrCodeBlobNotFound       = 2003
	ErrCodeAreaNotFound       = 2004
	ErrCodeTypeNotFound       = 2005
	ErrCodeCapacityExceeded   = 2101
	ErrCodeContainerClosed    = 2102
	ErrCodeContainerTrashed   = 2103
	ErrCodeInvalidAssignment  = 2104
	ErrCodeInvalidTransition  = 2105
	ErrCodeDocumentNotTrashed = 2106
	ErrCodeConfirmRequired    = 2107
	ErrCodeConflict           = 2108

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeStorageIO    = 4003
	ErrCodeExportFailed = 4004
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeDocumentNotFound
	case 409:
		return ErrCodeConflict
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
