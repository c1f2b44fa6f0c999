package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"salesdash/pkg/contracts/domain"
)

// TableLoader reads a sales table from disk. *Parser implements it.
type TableLoader interface {
	ParseFile(ctx context.Context, path string) (*domain.SalesTable, *LoadReport, error)
}

// CacheObserver receives cache and load events, typically OTel instruments.
type CacheObserver interface {
	RecordCacheLookup(ctx context.Context, hit bool)
	RecordTableLoad(ctx context.Context, d time.Duration, err error)
}

type cacheEntry struct {
	table  *domain.SalesTable
	report *LoadReport
}

// CacheStats is a point-in-time view of cache counters.
type CacheStats struct {
	Entries  int     `json:"entries"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Loads    int64   `json:"loads"`
	HitRatio float64 `json:"hit_ratio"`
}

// TableCache memoizes loaded tables per input path for the lifetime of the
// process. Entries are never evicted; a restart is the only way to reload.
// Failed loads are not cached.
type TableCache struct {
	loader   TableLoader
	observer CacheObserver
	logger   *slog.Logger

	mutex   sync.RWMutex
	entries map[string]*cacheEntry
	group   singleflight.Group

	hitCount  atomic.Int64
	missCount atomic.Int64
	loadCount atomic.Int64
}

// NewTableCache creates a cache in front of loader. observer may be nil.
func NewTableCache(loader TableLoader, observer CacheObserver, logger *slog.Logger) *TableCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableCache{
		loader:   loader,
		observer: observer,
		logger:   logger.With(slog.String("component", "table_cache")),
		entries:  make(map[string]*cacheEntry),
	}
}

// Get returns the table for path, loading it on first use. Concurrent first
// requests for the same path share a single load.
func (c *TableCache) Get(ctx context.Context, path string) (*domain.SalesTable, error) {
	key, err := cacheKey(path)
	if err != nil {
		return nil, err
	}

	if entry, ok := c.lookup(key); ok {
		c.hitCount.Add(1)
		c.observe(ctx, true)
		return entry.table, nil
	}
	c.missCount.Add(1)
	c.observe(ctx, false)

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if entry, ok := c.lookup(key); ok {
			return entry, nil
		}
		return c.load(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "joined in-flight table load", slog.String("path", key))
	}
	return v.(*cacheEntry).table, nil
}

// Report returns the load report for a cached path.
func (c *TableCache) Report(path string) (*LoadReport, bool) {
	key, err := cacheKey(path)
	if err != nil {
		return nil, false
	}
	entry, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	return entry.report, true
}

// Stats returns cache statistics
func (c *TableCache) Stats() CacheStats {
	c.mutex.RLock()
	entries := len(c.entries)
	c.mutex.RUnlock()

	hits, misses := c.hitCount.Load(), c.missCount.Load()
	ratio := float64(0)
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:  entries,
		Hits:     hits,
		Misses:   misses,
		Loads:    c.loadCount.Load(),
		HitRatio: ratio,
	}
}

func (c *TableCache) lookup(key string) (*cacheEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *TableCache) load(ctx context.Context, key string) (*cacheEntry, error) {
	start := time.Now()
	table, report, err := c.loader.ParseFile(ctx, key)
	if c.observer != nil {
		c.observer.RecordTableLoad(ctx, time.Since(start), err)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "sales table load failed",
			slog.String("path", key),
			slog.String("error", err.Error()))
		return nil, err
	}

	entry := &cacheEntry{table: table, report: report}
	c.mutex.Lock()
	c.entries[key] = entry
	c.mutex.Unlock()
	c.loadCount.Add(1)

	return entry, nil
}

func (c *TableCache) observe(ctx context.Context, hit bool) {
	if c.observer != nil {
		c.observer.RecordCacheLookup(ctx, hit)
	}
}

// cacheKey normalizes path so that equivalent spellings share one entry.
func cacheKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve table path %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
