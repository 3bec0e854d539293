package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"dropshare/registry"

	"github.com/rs/zerolog/log"
)

// Error codes produced by the HTTP layer itself
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeTooManyFiles       = "TOO_MANY_FILES"
	CodeFileNotFound       = "FILE_NOT_FOUND"
	CodeNoFilesFound       = "NO_FILES_FOUND"
	CodeInvalidQRSize      = "INVALID_QR_SIZE"
	CodeInvalidQRLevel     = "INVALID_QR_LEVEL"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeNotSubscribed      = "NOT_SUBSCRIBED"
	CodeNewsletterDisabled = "NEWSLETTER_DISABLED"
	CodeCacheDisabled      = "CACHE_DISABLED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string   `json:"error"`
	Code        string   `json:"code"`
	Message     string   `json:"message,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SendJSONError sends a JSON error response
func SendJSONError(w http.ResponseWriter, statusCode int, code string, err error, message string) {
	SendJSONSuccess(w, statusCode, ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Message: message,
	})
}

// SendJSONSuccess sends a JSON success response
func SendJSONSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeRegistryError maps registry outcomes to status codes. Unknown errors are
// logged and reported without detail.
func writeRegistryError(w http.ResponseWriter, err error) {
	var verr *registry.ValidationError
	if errors.As(err, &verr) {
		SendJSONError(w, http.StatusBadRequest, verr.Code, errors.New(verr.Message), "")
		return
	}

	code := registry.Code(err)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		SendJSONError(w, http.StatusNotFound, code, err, "The share does not exist or has been deleted")
	case errors.Is(err, registry.ErrExpired):
		SendJSONError(w, http.StatusNotFound, code, err, "This share link has expired")
	case errors.Is(err, registry.ErrLimitReached):
		SendJSONError(w, http.StatusGone, code, err, "This share has reached its download limit")
	case errors.Is(err, registry.ErrPINRequired):
		SendJSONError(w, http.StatusUnauthorized, code, err, "Provide the 4-digit PIN via ?pin= or the X-Share-PIN header")
	case errors.Is(err, registry.ErrInvalidPIN):
		SendJSONError(w, http.StatusUnauthorized, code, err, "")
	case errors.Is(err, registry.ErrForbidden):
		SendJSONError(w, http.StatusForbidden, code, err, "")
	case errors.Is(err, registry.ErrClosed):
		SendJSONError(w, http.StatusServiceUnavailable, CodeUnavailable, errors.New("service is shutting down"), "")
	default:
		log.Error().Err(err).Msg("Unexpected registry error")
		SendJSONError(w, http.StatusInternalServerError, registry.CodeServerError, errors.New("internal server error"), "")
	}
}
