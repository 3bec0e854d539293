package cache

import (
	"fmt"
	"time"

	"dropshare/config"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// Cache holds rendered QR code PNGs so repeated lookups skip the encoder
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New creates a cache sized by cfg. A disabled cache is valid and never hits.
func New(cfg config.CacheConfig) (*Cache, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if !cfg.Enabled {
		log.Info().Msg("QR cache disabled")
		return &Cache{ttl: ttl}, nil
	}

	// Cost is the PNG size in bytes
	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize),
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Int("counter_size", cfg.CounterSize).
		Msg("QR cache initialized")

	return &Cache{client: client, ttl: ttl}, nil
}

// QRKey identifies one rendering of content
func QRKey(content string, size int, level string) string {
	return fmt.Sprintf("qr:%d:%s:%s", size, level, content)
}

// GetQR returns a cached PNG
func (c *Cache) GetQR(key string) ([]byte, bool) {
	if c.client == nil {
		return nil, false
	}
	v, ok := c.client.Get(key)
	if !ok {
		return nil, false
	}
	png, ok := v.([]byte)
	return png, ok
}

// SetQR stores png with the configured TTL. Admission is asynchronous.
func (c *Cache) SetQR(key string, png []byte) bool {
	if c.client == nil {
		return false
	}
	return c.client.SetWithTTL(key, png, int64(len(png)), c.ttl)
}

// Wait blocks until buffered writes are applied
func (c *Cache) Wait() {
	if c.client != nil {
		c.client.Wait()
	}
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	if c.client == nil {
		return
	}
	c.client.Del(key)
}

// Close cleanly shuts down the cache
func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
		log.Info().Msg("QR cache closed")
	}
}

// MetricsSnapshot is the JSON view of cache counters
type MetricsSnapshot struct {
	Enabled      bool    `json:"enabled"`
	Hits         uint64  `json:"hits"`
	Misses       uint64  `json:"misses"`
	KeysAdded    uint64  `json:"keys_added"`
	KeysEvicted  uint64  `json:"keys_evicted"`
	CostAdded    uint64  `json:"cost_added"`
	CostEvicted  uint64  `json:"cost_evicted"`
	SetsDropped  uint64  `json:"sets_dropped"`
	SetsRejected uint64  `json:"sets_rejected"`
	GetsDropped  uint64  `json:"gets_dropped"`
	HitRatio     float64 `json:"hit_ratio"`
	TTLSeconds   int     `json:"ttl_seconds"`
}

// GetMetricsSnapshot returns current cache metrics as a snapshot
func (c *Cache) GetMetricsSnapshot() MetricsSnapshot {
	if c.client == nil || c.client.Metrics == nil {
		return MetricsSnapshot{Enabled: c.client != nil, TTLSeconds: int(c.ttl.Seconds())}
	}

	m := c.client.Metrics
	return MetricsSnapshot{
		Enabled:      true,
		Hits:         m.Hits(),
		Misses:       m.Misses(),
		KeysAdded:    m.KeysAdded(),
		KeysEvicted:  m.KeysEvicted(),
		CostAdded:    m.CostAdded(),
		CostEvicted:  m.CostEvicted(),
		SetsDropped:  m.SetsDropped(),
		SetsRejected: m.SetsRejected(),
		GetsDropped:  m.GetsDropped(),
		HitRatio:     m.Ratio(),
		TTLSeconds:   int(c.ttl.Seconds()),
	}
}
