package registry

import (
	"errors"
	"fmt"
)

// Authorization outcomes returned by the download gate
var (
	ErrNotFound     = errors.New("share not found")
	ErrExpired      = errors.New("share has expired")
	ErrLimitReached = errors.New("download limit reached")
	ErrPINRequired  = errors.New("PIN required")
	ErrInvalidPIN   = errors.New("invalid PIN")
	ErrForbidden    = errors.New("invalid management token")
	ErrClosed       = errors.New("registry is closed")
)

// Error codes surfaced to clients
const (
	CodeShareNotFound       = "SHARE_NOT_FOUND"
	CodeShareExpired        = "SHARE_EXPIRED"
	CodeLimitReached        = "DOWNLOAD_LIMIT_REACHED"
	CodeInvalidPIN          = "INVALID_PIN"
	CodePINRequired         = "PIN_REQUIRED"
	CodeInvalidPINFormat    = "INVALID_PIN_FORMAT"
	CodeInvalidTTL          = "INVALID_TTL"
	CodeInvalidMaxDownloads = "INVALID_MAX_DOWNLOADS"
	CodeNoFilesProvided     = "NO_FILES_PROVIDED"
	CodeForbidden           = "INVALID_MANAGEMENT_TOKEN"
	CodeServerError         = "SERVER_ERROR"
)

// ValidationError rejects input before any state is touched
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Code returns the client-facing error code for err
func Code(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Code
	case errors.Is(err, ErrNotFound):
		return CodeShareNotFound
	case errors.Is(err, ErrExpired):
		return CodeShareExpired
	case errors.Is(err, ErrLimitReached):
		return CodeLimitReached
	case errors.Is(err, ErrPINRequired):
		return CodePINRequired
	case errors.Is(err, ErrInvalidPIN):
		return CodeInvalidPIN
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeServerError
	}
}
