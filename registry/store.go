package registry

import (
	"sort"
	"sync"
	"time"

	"dropshare/model"
	"dropshare/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// slugWidenEvery is how many consecutive collisions widen generated slugs by one character
const slugWidenEvery = 16

// Deletion reasons, used in logs
const (
	reasonExpired      = "expired"
	reasonLimitReached = "limit_reached"
	reasonDeleted      = "deleted"
	reasonShutdown     = "shutdown"
)

// FileRemover deletes backing files. A missing file must not be reported as an error.
type FileRemover interface {
	Remove(path string) error
}

// Config tunes slug generation and deferred cleanup
type Config struct {
	SlugLength        int
	MinSlugLength     int
	MaxSlugLength     int
	SuggestionsCount  int
	LimitCleanupDelay time.Duration // grace period before a share that hit its cap is removed
}

// Option customises a Store
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type record struct {
	share          model.Share
	managementHash string
}

type pendingCleanup struct {
	timer *time.Timer
	slug  string
}

// Store is the authoritative in-memory share registry.
// All read-then-write sequences run under mu; file I/O never does.
type Store struct {
	mu      sync.Mutex
	records map[string]*record
	pending map[string]pendingCleanup // keyed by record ID
	closed  bool

	cleanups sync.WaitGroup
	files    FileRemover
	hasher   *utils.PINHasher
	cfg      Config
	now      func() time.Time
}

// Created is the result of a successful Create
type Created struct {
	Share           model.Share
	ManagementToken string // returned once, only its digest is kept
	IsCustomSlug    bool
	SlugRejection   string // why a requested custom slug was not used
	Suggestions     []string
}

// New creates an empty store
func New(files FileRemover, hasher *utils.PINHasher, cfg Config, opts ...Option) *Store {
	if cfg.SlugLength <= 0 {
		cfg.SlugLength = 8
	}
	if cfg.MinSlugLength <= 0 {
		cfg.MinSlugLength = 1
	}
	s := &Store{
		records: make(map[string]*record),
		pending: make(map[string]pendingCleanup),
		files:   files,
		hasher:  hasher,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates p, reserves a slug and inserts the share in one critical section
func (s *Store) Create(p CreateParams) (*Created, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	share := model.Share{
		ID:        uuid.New().String(),
		Files:     append([]model.FileEntry(nil), p.Files...),
		CreatedAt: now,
		Metadata:  p.Metadata,
	}
	if p.TTLMinutes != nil {
		expiresAt := now.Add(time.Duration(*p.TTLMinutes) * time.Minute)
		share.ExpiresAt = &expiresAt
	}
	if p.MaxDownloads != nil {
		share.MaxDownloads = *p.MaxDownloads
	}
	if p.PIN != nil {
		share.PINHash = s.hasher.Hash(*p.PIN)
	}
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	result := &Created{ManagementToken: token}
	slug, rejection, err := s.reserveLocked(p.CustomSlug)
	if err != nil {
		return nil, err
	}
	if p.CustomSlug != "" {
		result.IsCustomSlug = rejection == ""
		result.SlugRejection = rejection
		if rejection == slugTaken {
			result.Suggestions = utils.GenerateSlugSuggestions(p.CustomSlug, s.cfg.SuggestionsCount, s.existsLocked)
		}
	}

	share.Slug = slug
	s.records[slug] = &record{share: share, managementHash: s.hasher.Hash(token)}
	result.Share = cloneShare(share)

	log.Info().
		Str("slug", slug).
		Str("id", share.ID).
		Int("files", len(share.Files)).
		Bool("pin", share.PINProtected()).
		Int("max_downloads", share.MaxDownloads).
		Bool("custom_slug", result.IsCustomSlug).
		Msg("Share created")

	return result, nil
}

const slugTaken = "slug already in use"

// reserveLocked picks the slug for a new share. A custom slug is used verbatim
// when valid and free; anything else falls back to a generated slug.
func (s *Store) reserveLocked(custom string) (slug, rejection string, err error) {
	if custom != "" {
		if verr := utils.ValidateSlug(custom, s.cfg.MinSlugLength, s.cfg.MaxSlugLength); verr != nil {
			rejection = verr.Error()
		} else if s.existsLocked(custom) {
			rejection = slugTaken
		} else {
			return custom, "", nil
		}
		log.Info().Str("custom_slug", custom).Str("reason", rejection).Msg("Custom slug rejected, generating one")
	}

	length := s.cfg.SlugLength
	for attempt := 1; ; attempt++ {
		candidate, err := utils.GenerateRandomString(length)
		if err != nil {
			return "", "", err
		}
		if !s.existsLocked(candidate) && !utils.IsReservedSlug(candidate) {
			return candidate, rejection, nil
		}

		log.Warn().
			Str("slug", candidate).
			Int("attempt", attempt).
			Msg("Collision detected, retrying")

		if attempt%slugWidenEvery == 0 {
			length++
		}
	}
}

func (s *Store) existsLocked(slug string) bool {
	_, ok := s.records[slug]
	return ok
}

// Exists reports whether slug currently maps to a stored share
func (s *Store) Exists(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsLocked(slug)
}

// Get is a pure lookup. It does not check expiry.
func (s *Store) Get(slug string) (model.Share, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[slug]
	if !ok {
		return model.Share{}, false
	}
	return cloneShare(rec.share), true
}

// List snapshots every stored share, oldest first. Logically expired shares
// that have not been swept yet are included with Active=false.
func (s *Store) List() []model.ShareSummary {
	now := s.now()

	s.mu.Lock()
	summaries := make([]model.ShareSummary, 0, len(s.records))
	for _, rec := range s.records {
		sh := rec.share
		summaries = append(summaries, model.ShareSummary{
			Slug:         sh.Slug,
			ID:           sh.ID,
			FileCount:    len(sh.Files),
			TotalBytes:   sh.TotalSize(),
			CreatedAt:    sh.CreatedAt,
			ExpiresAt:    copyTime(sh.ExpiresAt),
			MaxDownloads: sh.MaxDownloads,
			Downloads:    sh.Downloads,
			PINProtected: sh.PINProtected(),
			Active:       !sh.Expired(now) && !sh.Exhausted(),
		})
	}
	s.mu.Unlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].Slug < summaries[j].Slug
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries
}

// Len returns the number of stored shares
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Delete removes the share and its files. It reports whether a share existed.
func (s *Store) Delete(slug string) bool {
	s.mu.Lock()
	rec := s.removeLocked(slug)
	s.mu.Unlock()

	if rec == nil {
		return false
	}
	s.deleteFiles(rec, reasonDeleted)
	return true
}

// DeleteWithToken removes the share if token matches its management token
func (s *Store) DeleteWithToken(slug, token string) error {
	s.mu.Lock()
	rec, ok := s.records[slug]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !s.hasher.Verify(token, rec.managementHash) {
		s.mu.Unlock()
		return ErrForbidden
	}
	s.removeLocked(slug)
	s.mu.Unlock()

	s.deleteFiles(rec, reasonDeleted)
	return nil
}

// IncrementDownload bumps the counter. Reaching the cap schedules deferred removal.
func (s *Store) IncrementDownload(slug string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	rec, ok := s.records[slug]
	if !ok {
		return 0, ErrNotFound
	}
	return s.incrementLocked(rec), nil
}

func (s *Store) incrementLocked(rec *record) int {
	rec.share.Downloads++
	if rec.share.Exhausted() {
		s.scheduleCleanupLocked(rec)
	}
	return rec.share.Downloads
}

// scheduleCleanupLocked removes rec after the configured grace period, unless
// its slug has been freed and reused by then.
func (s *Store) scheduleCleanupLocked(rec *record) {
	id, slug := rec.share.ID, rec.share.Slug
	if _, scheduled := s.pending[id]; scheduled {
		return
	}

	s.cleanups.Add(1)
	timer := time.AfterFunc(s.cfg.LimitCleanupDelay, func() {
		defer s.cleanups.Done()

		s.mu.Lock()
		delete(s.pending, id)
		var removed *record
		if cur, ok := s.records[slug]; ok && cur.share.ID == id {
			removed = s.removeLocked(slug)
		}
		s.mu.Unlock()

		if removed != nil {
			s.deleteFiles(removed, reasonLimitReached)
		}
	})
	s.pending[id] = pendingCleanup{timer: timer, slug: slug}

	log.Debug().Str("slug", slug).Dur("delay", s.cfg.LimitCleanupDelay).Msg("Download limit reached, cleanup scheduled")
}

// WaitPending blocks until every scheduled cleanup has finished
func (s *Store) WaitPending() {
	s.cleanups.Wait()
}

// removeLocked unlinks slug from the map and cancels its pending cleanup.
// The caller owns file deletion for the returned record.
func (s *Store) removeLocked(slug string) *record {
	rec, ok := s.records[slug]
	if !ok {
		return nil
	}
	delete(s.records, slug)

	if p, ok := s.pending[rec.share.ID]; ok {
		delete(s.pending, rec.share.ID)
		if p.timer.Stop() {
			s.cleanups.Done()
		}
	}
	return rec
}

// deleteFiles is the single file-reclamation path. Failures are logged, never returned.
func (s *Store) deleteFiles(rec *record, reason string) {
	for _, f := range rec.share.Files {
		if err := s.files.Remove(f.StoragePath); err != nil {
			log.Warn().
				Err(err).
				Str("slug", rec.share.Slug).
				Str("file", f.OriginalName).
				Msg("Failed to delete backing file")
		}
	}

	log.Info().
		Str("slug", rec.share.Slug).
		Str("id", rec.share.ID).
		Str("reason", reason).
		Int("downloads", rec.share.Downloads).
		Msg("Share deleted")
}

// Close rejects new shares and runs every pending cleanup now
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	var flushed []*record
	for id, p := range s.pending {
		delete(s.pending, id)
		if !p.timer.Stop() {
			continue // already running, WaitPending below covers it
		}
		s.cleanups.Done()
		if cur, ok := s.records[p.slug]; ok && cur.share.ID == id {
			flushed = append(flushed, s.removeLocked(p.slug))
		}
	}
	s.mu.Unlock()

	for _, rec := range flushed {
		s.deleteFiles(rec, reasonShutdown)
	}
	s.WaitPending()
}

func cloneShare(sh model.Share) model.Share {
	sh.Files = append([]model.FileEntry(nil), sh.Files...)
	sh.ExpiresAt = copyTime(sh.ExpiresAt)
	return sh
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
