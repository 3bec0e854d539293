package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dropshare/middleware"
	"dropshare/model"
	"dropshare/registry"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// multipartMemory is how much of a multipart body is buffered in memory before spilling to temp files
const multipartMemory = 32 << 20

// FileInfo describes one file of a share in API responses
type FileInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"sizeHuman"`
	MimeType  string `json:"mimeType"`
}

// UploadResponse is returned once, on creation. It is the only place the management token appears.
type UploadResponse struct {
	Slug               string     `json:"slug"`
	URL                string     `json:"url"`
	QRCodeURL          string     `json:"qrCodeURL"`
	ManagementToken    string     `json:"managementToken"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	MaxDownloads       int        `json:"maxDownloads,omitempty"`
	PINProtected       bool       `json:"pinProtected"`
	Files              []FileInfo `json:"files"`
	TotalSize          int64      `json:"totalSize"`
	TotalSizeHuman     string     `json:"totalSizeHuman"`
	IsCustomSlug       bool       `json:"isCustomSlug"`
	CustomSlugRejected string     `json:"customSlugRejected,omitempty"`
	Suggestions        []string   `json:"suggestions,omitempty"`
}

func fileInfos(files []model.FileEntry) []FileInfo {
	infos := make([]FileInfo, len(files))
	for i, f := range files {
		infos[i] = FileInfo{
			Index:     i,
			Name:      f.OriginalName,
			Size:      f.SizeBytes,
			SizeHuman: humanize.Bytes(uint64(f.SizeBytes)),
			MimeType:  f.MimeType,
		}
	}
	return infos
}

// Upload handles POST /api/upload
// @Summary Upload files and create a share
// @Description Multipart upload. Optional fields: customSlug, pin (4 digits), ttl (minutes, 1-10080), maxDownloads (1-1000). A taken or invalid customSlug falls back to a generated slug.
// @Tags Shares
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "One or more files"
// @Param customSlug formData string false "Requested slug"
// @Param pin formData string false "4-digit PIN"
// @Param ttl formData int false "Lifetime in minutes"
// @Param maxDownloads formData int false "Download cap"
// @Success 201 {object} UploadResponse "Share created"
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 413 {object} ErrorResponse "Upload too large"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/upload [post]
func (h *ShareHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.config.Storage.MaxUploadMB) << 20
	if r.ContentLength > maxBytes {
		sendTooLarge(w, maxBytes)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendTooLarge(w, maxBytes)
			return
		}
		log.Warn().Err(err).Msg("Failed to parse multipart upload")
		SendJSONError(w, http.StatusBadRequest, CodeInvalidRequest, errors.New("invalid multipart request"), "")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn().Err(err).Msg("Failed to remove multipart temp files")
		}
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) > h.config.Storage.MaxFiles {
		SendJSONError(w, http.StatusBadRequest, CodeTooManyFiles, errors.New("too many files"),
			fmt.Sprintf("At most %d files per share", h.config.Storage.MaxFiles))
		return
	}

	params, err := parseCreateParams(r)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	params.Metadata = model.Metadata{
		OriginIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	// Validate against placeholders so nothing touches the disk on bad input
	params.Files = make([]model.FileEntry, len(headers))
	for i, fh := range headers {
		params.Files[i] = model.FileEntry{OriginalName: fh.Filename, SizeBytes: fh.Size}
	}
	if err := params.Validate(); err != nil {
		writeRegistryError(w, err)
		return
	}

	params.Files, err = h.saveFiles(headers)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store uploaded files")
		SendJSONError(w, http.StatusInternalServerError, registry.CodeServerError, errors.New("failed to store files"), "")
		return
	}

	created, err := h.store.Create(params)
	if err != nil {
		h.removeFiles(params.Files)
		writeRegistryError(w, err)
		return
	}

	sh := created.Share
	SendJSONSuccess(w, http.StatusCreated, UploadResponse{
		Slug:               sh.Slug,
		URL:                ShareURL(h.baseURL, sh.Slug, ""),
		QRCodeURL:          h.qrCodeURL(sh.Slug),
		ManagementToken:    created.ManagementToken,
		ExpiresAt:          sh.ExpiresAt,
		MaxDownloads:       sh.MaxDownloads,
		PINProtected:       sh.PINProtected(),
		Files:              fileInfos(sh.Files),
		TotalSize:          sh.TotalSize(),
		TotalSizeHuman:     humanize.Bytes(uint64(sh.TotalSize())),
		IsCustomSlug:       created.IsCustomSlug,
		CustomSlugRejected: created.SlugRejection,
		Suggestions:        created.Suggestions,
	})
}

func sendTooLarge(w http.ResponseWriter, maxBytes int64) {
	SendJSONError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, errors.New("upload too large"),
		fmt.Sprintf("Total upload size must not exceed %s", humanize.Bytes(uint64(maxBytes))))
}

// parseCreateParams reads the optional form fields. Empty fields mean "not set".
func parseCreateParams(r *http.Request) (registry.CreateParams, error) {
	params := registry.CreateParams{
		CustomSlug: strings.TrimSpace(r.FormValue("customSlug")),
	}

	if pin := strings.TrimSpace(r.FormValue("pin")); pin != "" {
		params.PIN = &pin
	}

	if raw := strings.TrimSpace(r.FormValue("ttl")); raw != "" {
		ttl, err := strconv.Atoi(raw)
		if err != nil {
			return params, &registry.ValidationError{Code: registry.CodeInvalidTTL, Field: "ttl", Message: "ttl must be a whole number of minutes"}
		}
		params.TTLMinutes = &ttl
	}

	if raw := strings.TrimSpace(r.FormValue("maxDownloads")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, &registry.ValidationError{Code: registry.CodeInvalidMaxDownloads, Field: "maxDownloads", Message: "maxDownloads must be a whole number"}
		}
		params.MaxDownloads = &limit
	}

	return params, nil
}

// saveFiles writes every upload to disk. On failure the files already written are removed.
func (h *ShareHandler) saveFiles(headers []*multipart.FileHeader) ([]model.FileEntry, error) {
	entries := make([]model.FileEntry, 0, len(headers))
	for _, fh := range headers {
		entry, err := h.saveFile(fh)
		if err != nil {
			h.removeFiles(entries)
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (h *ShareHandler) saveFile(fh *multipart.FileHeader) (model.FileEntry, error) {
	src, err := fh.Open()
	if err != nil {
		return model.FileEntry{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()
	return h.disk.Save(fh.Filename, src)
}

func (h *ShareHandler) removeFiles(entries []model.FileEntry) {
	for _, e := range entries {
		if err := h.disk.Remove(e.StoragePath); err != nil {
			log.Warn().Err(err).Str("file", e.OriginalName).Msg("Failed to remove orphaned upload")
		}
	}
}
