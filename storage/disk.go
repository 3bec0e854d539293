package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dropshare/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrFileMissing is returned when a backing file has vanished from disk
var ErrFileMissing = errors.New("backing file missing")

// sniffLen is how much of an upload is read for MIME detection
const sniffLen = 3072

// Disk stores uploaded files in a single flat directory.
// Every saved file gets a fresh uuid name, so no two shares ever alias a path.
type Disk struct {
	dir string
}

// NewDisk creates dir if it does not exist
func NewDisk(dir string) (*Disk, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	log.Info().Str("upload_dir", abs).Msg("Upload storage ready")
	return &Disk{dir: abs}, nil
}

// Dir returns the absolute upload directory
func (d *Disk) Dir() string {
	return d.dir
}

// Save writes r to a new file and describes it as a FileEntry
func (d *Disk) Save(originalName string, r io.Reader) (model.FileEntry, error) {
	name := SanitizeName(originalName)
	path := filepath.Join(d.dir, uuid.New().String()+strings.ToLower(filepath.Ext(name)))

	// Read a prefix for MIME detection, then replay it into the file
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return model.FileEntry{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return model.FileEntry{}, fmt.Errorf("create file: %w", err)
	}

	size, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), r))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return model.FileEntry{}, fmt.Errorf("write file: %w", err)
	}

	return model.FileEntry{
		OriginalName: name,
		StoragePath:  path,
		SizeBytes:    size,
		MimeType:     mimetype.Detect(head).String(),
	}, nil
}

// Remove deletes path. A file that is already gone is not an error.
func (d *Disk) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Open opens a stored file for reading
func (d *Disk) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileMissing
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// Exists reports whether path is a regular file
func (d *Disk) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// SanitizeName strips directories and control characters from an uploaded file name
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
