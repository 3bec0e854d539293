package handler

import (
	"errors"
	"net/http"
	"strconv"

	"dropshare/cache"
	"dropshare/registry"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// GenerateQR handles GET /api/qr/{slug}
// @Summary QR code for a share link
// @Description Encodes the canonical share URL. A supplied PIN is verified and embedded in the link.
// @Tags Shares
// @Produce png
// @Param slug path string true "Share slug"
// @Param pin query string false "4-digit PIN to embed"
// @Param size query int false "Image size in pixels (128-1024)" default(256)
// @Param level query string false "Error correction: low, medium, high, highest" default(medium)
// @Success 200 {file} file "PNG image"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Share not found"
// @Router /api/qr/{slug} [get]
func (h *ShareHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	pin, ok := suppliedPIN(w, r)
	if !ok {
		return
	}

	// Without a PIN the plain link is encoded, even for protected shares
	sh, err := h.gate.Inspect(slug, pin)
	if err != nil && !(pin == "" && errors.Is(err, registry.ErrPINRequired)) {
		writeRegistryError(w, err)
		return
	}
	// A PIN is only embedded when the share asks for one
	if err != nil || !sh.PINProtected() {
		pin = ""
	}

	query := r.URL.Query()

	// Get size parameter (default: 256, min: 128, max: 1024)
	size := 256
	if sizeStr := query.Get("size"); sizeStr != "" {
		parsedSize, err := strconv.Atoi(sizeStr)
		if err != nil {
			SendJSONError(w, http.StatusBadRequest, CodeInvalidQRSize, errors.New("invalid size parameter"), "Size must be a number")
			return
		}
		if parsedSize < 128 || parsedSize > 1024 {
			SendJSONError(w, http.StatusBadRequest, CodeInvalidQRSize, errors.New("size out of range"), "Size must be between 128 and 1024")
			return
		}
		size = parsedSize
	}

	// Get error correction level (default: medium)
	level := qrcode.Medium
	if name := query.Get("level"); name != "" {
		switch name {
		case "low":
			level = qrcode.Low
		case "medium":
			level = qrcode.Medium
		case "high":
			level = qrcode.High
		case "highest":
			level = qrcode.Highest
		default:
			SendJSONError(w, http.StatusBadRequest, CodeInvalidQRLevel, errors.New("invalid level parameter"), "Level must be: low, medium, high, or highest")
			return
		}
	}

	fullURL := ShareURL(h.baseURL, slug, pin)
	key := cache.QRKey(fullURL, size, levelStr(level))

	png, hit := h.cachedQR(key)
	if !hit {
		png, err = qrcode.Encode(fullURL, level, size)
		if err != nil {
			log.Error().Err(err).Str("slug", slug).Msg("Failed to generate QR code")
			SendJSONError(w, http.StatusInternalServerError, registry.CodeServerError, errors.New("failed to generate QR code"), "")
			return
		}
		if h.cache != nil {
			h.cache.SetQR(key, png)
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if _, err := w.Write(png); err != nil {
		log.Error().Err(err).Msg("Failed to write QR code response")
		return
	}

	log.Debug().
		Str("slug", slug).
		Int("size", size).
		Str("level", levelStr(level)).
		Bool("cache_hit", hit).
		Msg("QR code served")
}

func (h *ShareHandler) cachedQR(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	return h.cache.GetQR(key)
}

// levelStr converts qrcode.RecoveryLevel to string for logging
func levelStr(level qrcode.RecoveryLevel) string {
	switch level {
	case qrcode.Low:
		return "low"
	case qrcode.Medium:
		return "medium"
	case qrcode.High:
		return "high"
	case qrcode.Highest:
		return "highest"
	default:
		return "unknown"
	}
}
