package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/models"
	"github.com/tristendillon/diagify/core/store"
)

type Store interface {
	LoadCatalog(ctx context.Context, pkg, root string) (*store.CachedCatalog, error)
	SaveCatalog(ctx context.Context, c store.CachedCatalog) error
	DeleteCatalog(ctx context.Context, pkg, root string) (int64, error)
}

// Key identifies one build of the catalog. A stored catalog for the same
// package and root with another version or fingerprint is stale.
type Key struct {
	Package     string
	Root        string
	Version     string
	Fingerprint string
}

type CacheMetrics struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	HitRate       float64
}

func (m *CacheMetrics) CalculateHitRate() {
	total := m.Hits + m.Misses
	if total > 0 {
		m.HitRate = float64(m.Hits) / float64(total) * 100
	}
}

type Cache struct {
	store   Store
	metrics CacheMetrics
	mutex   sync.Mutex
}

func NewCache(s Store) *Cache {
	return &Cache{store: s}
}

func (c *Cache) Get(ctx context.Context, key Key) (*models.Catalog, bool) {
	row, err := c.store.LoadCatalog(ctx, key.Package, key.Root)
	if err != nil {
		logger.Debug("Catalog cache read error for %s: %v", key.Root, err)
		c.count(&c.metrics.Misses)
		return nil, false
	}
	if row == nil {
		logger.Debug("Catalog cache miss for %s - entry not found", key.Root)
		c.count(&c.metrics.Misses)
		return nil, false
	}
	if row.Version != key.Version || row.Fingerprint != key.Fingerprint {
		logger.Debug("Catalog cache miss for %s - library changed (%s -> %s)", key.Root, row.Version, key.Version)
		c.Invalidate(ctx, key.Package, key.Root)
		c.count(&c.metrics.Misses)
		return nil, false
	}

	c.count(&c.metrics.Hits)
	logger.Debug("Catalog cache hit for %s (%d entries)", key.Root, len(row.Entries))
	cat := models.NewCatalog(row.Package, row.Entries)
	cat.Root = row.Root
	cat.Version = row.Version
	return cat, true
}

func (c *Cache) Set(ctx context.Context, key Key, cat *models.Catalog) error {
	if cat == nil {
		return fmt.Errorf("catalog cannot be nil")
	}
	return c.store.SaveCatalog(ctx, store.CachedCatalog{
		Package:     key.Package,
		Root:        key.Root,
		Version:     key.Version,
		Fingerprint: key.Fingerprint,
		Entries:     cat.Entries,
	})
}

// Invalidate drops cached catalogs of pkg; an empty root drops all roots.
func (c *Cache) Invalidate(ctx context.Context, pkg, root string) {
	n, err := c.store.DeleteCatalog(ctx, pkg, root)
	if err != nil {
		logger.Debug("Failed to invalidate catalog cache for %s: %v", pkg, err)
		return
	}
	c.mutex.Lock()
	c.metrics.Invalidations += n
	c.mutex.Unlock()
	if n > 0 {
		logger.Debug("Invalidated %d catalog cache entries for %s", n, pkg)
	}
}

func (c *Cache) Metrics() CacheMetrics {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	m := c.metrics
	m.CalculateHitRate()
	return m
}

func (c *Cache) LogStats() {
	m := c.Metrics()
	logger.Debug("Catalog cache stats: Hits=%d, Misses=%d, Hit Rate=%.1f%%, Invalidations=%d",
		m.Hits, m.Misses, m.HitRate, m.Invalidations)
}

func (c *Cache) count(field *int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	*field++
}

// Fingerprint hashes path, size and mtime of every file.
func Fingerprint(files []SourceFile) string {
	h := sha256.New()
	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			fmt.Fprintf(h, "%s|missing\n", f.RelPath)
			continue
		}
		fmt.Fprintf(h, "%s|%d|%d\n", f.RelPath, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
