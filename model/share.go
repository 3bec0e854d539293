package model

import "time"

// FileEntry is one uploaded file owned by a share
type FileEntry struct {
	OriginalName string `json:"originalName"`
	StoragePath  string `json:"-"` // owned exclusively by one share
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
}

// Metadata is diagnostic only and never consulted for authorization
type Metadata struct {
	OriginIP  string `json:"originIP,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Share is a snapshot of a share record. Values returned by the registry are
// copies; mutating them has no effect on the stored record.
type Share struct {
	ID           string      `json:"id"`
	Slug         string      `json:"slug"`
	Files        []FileEntry `json:"files"`
	CreatedAt    time.Time   `json:"createdAt"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
	MaxDownloads int         `json:"maxDownloads,omitempty"` // 0 means unlimited
	Downloads    int         `json:"downloads"`
	PINHash      string      `json:"-"`
	Metadata     Metadata    `json:"-"`
}

// Expired reports whether the share's expiry has passed at now
func (s Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Exhausted reports whether the download cap has been reached
func (s Share) Exhausted() bool {
	return s.MaxDownloads > 0 && s.Downloads >= s.MaxDownloads
}

// PINProtected reports whether downloads require a PIN
func (s Share) PINProtected() bool {
	return s.PINHash != ""
}

// TotalSize sums the size of every file in the share
func (s Share) TotalSize() int64 {
	var total int64
	for _, f := range s.Files {
		total += f.SizeBytes
	}
	return total
}

// ShareSummary is the list() view of a share
type ShareSummary struct {
	Slug         string     `json:"slug"`
	ID           string     `json:"id"`
	FileCount    int        `json:"fileCount"`
	TotalBytes   int64      `json:"totalBytes"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	MaxDownloads int        `json:"maxDownloads,omitempty"`
	Downloads    int        `json:"downloads"`
	PINProtected bool       `json:"pinProtected"`
	Active       bool       `json:"active"`
}
