package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dropshare/model"
	"dropshare/registry"
	"dropshare/storage"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"
)

// Download handles GET /api/download/{slug}
// @Summary Download a share
// @Description A single file is served directly with Range support. Several files are streamed as a ZIP archive. Each request counts as one download.
// @Tags Shares
// @Produce octet-stream
// @Param slug path string true "Share slug"
// @Param pin query string false "4-digit PIN"
// @Success 200 {file} file "File or ZIP archive"
// @Success 206 {file} file "Partial content"
// @Failure 401 {object} ErrorResponse "PIN required or invalid"
// @Failure 404 {object} ErrorResponse "Share or files not found"
// @Failure 410 {object} ErrorResponse "Download limit reached"
// @Router /api/download/{slug} [get]
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	pin, ok := suppliedPIN(w, r)
	if !ok {
		return
	}

	sh, err := h.gate.Authorize(mux.Vars(r)["slug"], pin)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	if len(sh.Files) == 1 {
		h.serveFile(w, r, sh, sh.Files[0])
		return
	}
	h.streamZip(w, sh)
}

// DownloadFile handles GET /api/download/{slug}/{index}
// @Summary Download one file of a share
// @Tags Shares
// @Produce octet-stream
// @Param slug path string true "Share slug"
// @Param index path int true "Zero-based file index"
// @Param pin query string false "4-digit PIN"
// @Success 200 {file} file "File"
// @Failure 404 {object} ErrorResponse "Share or file not found"
// @Router /api/download/{slug}/{index} [get]
func (h *ShareHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pin, ok := suppliedPIN(w, r)
	if !ok {
		return
	}

	// Check the index without counting, so a bad index costs no download
	peek, err := h.gate.Inspect(vars["slug"], pin)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	index, err := strconv.Atoi(vars["index"])
	if err != nil || index < 0 || index >= len(peek.Files) {
		SendJSONError(w, http.StatusNotFound, CodeFileNotFound, errors.New("file not found"),
			fmt.Sprintf("This share has %d file(s)", len(peek.Files)))
		return
	}

	sh, err := h.gate.Authorize(vars["slug"], pin)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	h.serveFile(w, r, sh, sh.Files[index])
}

func (h *ShareHandler) serveFile(w http.ResponseWriter, r *http.Request, sh model.Share, entry model.FileEntry) {
	f, err := h.disk.Open(entry.StoragePath)
	if err != nil {
		h.fileError(w, sh, entry, err)
		return
	}
	defer f.Close()

	modTime := sh.CreatedAt
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}

	if entry.MimeType != "" {
		w.Header().Set("Content-Type", entry.MimeType)
	}
	w.Header().Set("Content-Disposition", contentDisposition(entry.OriginalName))
	w.Header().Set("Cache-Control", "no-store")

	log.Info().
		Str("slug", sh.Slug).
		Str("file", entry.OriginalName).
		Int("downloads", sh.Downloads).
		Msg("Serving file")

	http.ServeContent(w, r, entry.OriginalName, modTime, f)
}

func (h *ShareHandler) fileError(w http.ResponseWriter, sh model.Share, entry model.FileEntry, err error) {
	if errors.Is(err, storage.ErrFileMissing) {
		log.Warn().Str("slug", sh.Slug).Str("file", entry.OriginalName).Msg("Backing file missing")
		SendJSONError(w, http.StatusNotFound, CodeFileNotFound, errors.New("file not found"), "")
		return
	}
	log.Error().Err(err).Str("slug", sh.Slug).Str("file", entry.OriginalName).Msg("Failed to open backing file")
	SendJSONError(w, http.StatusInternalServerError, registry.CodeServerError, errors.New("internal server error"), "")
}

type zipItem struct {
	name string
	file *os.File
}

// streamZip archives every file still on disk. Missing files are skipped and an
// archive with nothing in it is never sent.
func (h *ShareHandler) streamZip(w http.ResponseWriter, sh model.Share) {
	var present []model.FileEntry
	var opened []*os.File
	for _, entry := range sh.Files {
		f, err := h.disk.Open(entry.StoragePath)
		if err != nil {
			log.Warn().Err(err).Str("slug", sh.Slug).Str("file", entry.OriginalName).Msg("Skipping file in archive")
			continue
		}
		present = append(present, entry)
		opened = append(opened, f)
	}
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	if len(opened) == 0 {
		SendJSONError(w, http.StatusNotFound, CodeNoFilesFound, errors.New("no files found"),
			"None of the files in this share are available")
		return
	}

	names := zipEntryNames(present)
	items := make([]zipItem, len(opened))
	for i := range opened {
		items[i] = zipItem{name: names[i], file: opened[i]}
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", contentDisposition(sh.Slug+".zip"))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	zw := zip.NewWriter(w)
	for _, item := range items {
		if err := writeZipEntry(zw, item); err != nil {
			// Headers are gone; the client sees a truncated archive
			log.Error().Err(err).Str("slug", sh.Slug).Str("file", item.name).Msg("ZIP stream aborted")
			return
		}
	}
	if err := zw.Close(); err != nil {
		log.Error().Err(err).Str("slug", sh.Slug).Msg("Failed to finish ZIP stream")
		return
	}

	log.Info().
		Str("slug", sh.Slug).
		Int("files", len(items)).
		Int("skipped", len(sh.Files)-len(items)).
		Int("downloads", sh.Downloads).
		Dur("duration", time.Since(start)).
		Msg("ZIP streamed")
}

func writeZipEntry(zw *zip.Writer, item zipItem) error {
	modified := time.Now()
	if info, err := item.file.Stat(); err == nil {
		modified = info.ModTime()
	}

	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:     item.name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, item.file)
	return err
}

// zipEntryNames de-duplicates archive names case-insensitively: a.txt, a (1).txt, a (2).txt
func zipEntryNames(files []model.FileEntry) []string {
	used := make(map[string]bool, len(files))
	names := make([]string, len(files))
	for i, f := range files {
		name := f.OriginalName
		if used[strings.ToLower(name)] {
			ext := filepath.Ext(name)
			base := strings.TrimSuffix(name, ext)
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
				if !used[strings.ToLower(candidate)] {
					name = candidate
					break
				}
			}
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
