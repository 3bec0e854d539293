package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically evicts expired and exhausted shares
type Sweeper struct {
	store    *Store
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper returns a sweeper that runs every interval once started
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval}
}

// Start launches the sweep loop. It runs until ctx is cancelled or Stop is called.
func (sw *Sweeper) Start(ctx context.Context) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.done != nil {
		return
	}

	ctx, sw.cancel = context.WithCancel(ctx)
	sw.done = make(chan struct{})

	log.Info().Dur("interval", sw.interval).Msg("Expiry sweeper started")

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Expiry sweeper stopped")
				return
			case <-ticker.C:
				sw.RunOnce()
			}
		}
	}(sw.done)
}

// Stop cancels the loop and waits for an in-progress cycle to finish
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	cancel, done := sw.cancel, sw.done
	sw.cancel, sw.done = nil, nil
	sw.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce performs one full scan and returns how many shares were evicted
func (sw *Sweeper) RunOnce() int {
	start := time.Now()
	evicted := sw.store.sweep()

	if evicted > 0 {
		log.Info().
			Int("evicted", evicted).
			Int("remaining", sw.store.Len()).
			Dur("duration", time.Since(start)).
			Msg("Sweep complete")
	} else {
		log.Debug().Dur("duration", time.Since(start)).Msg("Sweep complete, nothing to evict")
	}
	return evicted
}

// sweep evicts expired shares and exhausted shares without a scheduled cleanup
func (s *Store) sweep() int {
	now := s.now()

	s.mu.Lock()
	slugs := make([]string, 0, len(s.records))
	for slug := range s.records {
		slugs = append(slugs, slug)
	}

	type eviction struct {
		rec    *record
		reason string
	}
	var evictions []eviction
	for _, slug := range slugs {
		rec := s.records[slug]
		switch {
		case rec.share.Expired(now):
			evictions = append(evictions, eviction{s.removeLocked(slug), reasonExpired})
		case rec.share.Exhausted():
			if _, scheduled := s.pending[rec.share.ID]; !scheduled {
				evictions = append(evictions, eviction{s.removeLocked(slug), reasonLimitReached})
			}
		}
	}
	s.mu.Unlock()

	for _, e := range evictions {
		s.deleteFiles(e.rec, e.reason)
	}
	return len(evictions)
}
