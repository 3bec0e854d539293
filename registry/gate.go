package registry

import (
	"dropshare/model"
)

// Gate authorizes download attempts against a Store
type Gate struct {
	store *Store
}

// NewGate returns a gate over store
func NewGate(store *Store) *Gate {
	return &Gate{store: store}
}

// Authorize runs the download checks in order: existence, expiry, cap, PIN.
// On success the download is counted before the snapshot is returned.
// Expired and exhausted shares are deleted as a side effect. After Close it
// returns ErrClosed.
func (g *Gate) Authorize(slug, pin string) (model.Share, error) {
	return g.store.authorize(slug, pin, true)
}

// Inspect runs the same checks as Authorize without counting a download
func (g *Gate) Inspect(slug, pin string) (model.Share, error) {
	return g.store.authorize(slug, pin, false)
}

func (s *Store) authorize(slug, pin string, count bool) (model.Share, error) {
	now := s.now()

	s.mu.Lock()
	// A closed store schedules no more cleanups, so it counts no more downloads
	if count && s.closed {
		s.mu.Unlock()
		return model.Share{}, ErrClosed
	}
	rec, ok := s.records[slug]
	if !ok {
		s.mu.Unlock()
		return model.Share{}, ErrNotFound
	}

	// Expiry and cap come before the PIN so dead links never reveal whether a PIN exists
	if rec.share.Expired(now) {
		s.removeLocked(slug)
		s.mu.Unlock()
		s.deleteFiles(rec, reasonExpired)
		return model.Share{}, ErrExpired
	}
	if rec.share.Exhausted() {
		s.removeLocked(slug)
		s.mu.Unlock()
		s.deleteFiles(rec, reasonLimitReached)
		return model.Share{}, ErrLimitReached
	}

	if rec.share.PINProtected() {
		if pin == "" {
			s.mu.Unlock()
			return model.Share{}, ErrPINRequired
		}
		if !s.hasher.Verify(pin, rec.share.PINHash) {
			s.mu.Unlock()
			return model.Share{}, ErrInvalidPIN
		}
	}

	if count {
		s.incrementLocked(rec)
	}
	snapshot := cloneShare(rec.share)
	s.mu.Unlock()

	return snapshot, nil
}
