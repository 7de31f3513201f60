// Package cache holds the introspection results the listing path would
// otherwise recompute on every request: (package, version) maps to the
// parsed pubspec and the archive hash. Backed by a Starskey key-value
// store on disk so the cache survives restarts.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/starskey-io/starskey"

	"github.com/pubcask/pubcask/pkg/logger"
	"github.com/pubcask/pubcask/pkg/manifest"
)

// Entry is one cached introspection result.
type Entry struct {
	Pubspec manifest.Value `json:"pubspec"`
	Sha256  string         `json:"sha256"`
}

// ManifestCache is what the listing path consults; NoopCache satisfies
// it when caching is disabled.
type ManifestCache interface {
	Get(pkg, version string) (*Entry, bool)
	Put(pkg, version string, entry *Entry)
	Close() error
}

// StarskeyCache is a disk-backed ManifestCache.
type StarskeyCache struct {
	db *starskey.Starskey
}

// NewStarskeyCache opens (or creates) the cache database at dir.
func NewStarskeyCache(dir string) (*StarskeyCache, error) {
	db, err := starskey.Open(&starskey.Config{
		Permission:        0755,
		Directory:         dir,
		FlushThreshold:    8 * 1024 * 1024,
		MaxLevel:          3,
		SizeFactor:        10,
		BloomFilter:       true,
		SuRF:              false,
		Logging:           false,
		Compression:       true,
		CompressionOption: starskey.SnappyCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest cache: %w", err)
	}

	logger.Info("Manifest cache initialized", "path", dir)
	return &StarskeyCache{db: db}, nil
}

func cacheKey(pkg, version string) []byte {
	return []byte(pkg + "@" + version)
}

// Get returns the cached entry for pkg@version, if any. Corrupt
// entries are treated as misses.
func (c *StarskeyCache) Get(pkg, version string) (*Entry, bool) {
	value, err := c.db.Get(cacheKey(pkg, version))
	if err != nil || value == nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		logger.Debug("Dropping corrupt cache entry", "package", pkg, "version", version, "error", err)
		return nil, false
	}
	return &entry, true
}

// Put stores an entry for pkg@version. Failures are logged and
// swallowed: the cache is an optimization, never a source of truth.
func (c *StarskeyCache) Put(pkg, version string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Debug("Failed to marshal cache entry", "package", pkg, "version", version, "error", err)
		return
	}
	if err := c.db.Put(cacheKey(pkg, version), data); err != nil {
		logger.Debug("Failed to store cache entry", "package", pkg, "version", version, "error", err)
	}
}

// Close closes the underlying database.
func (c *StarskeyCache) Close() error {
	return c.db.Close()
}

// NoopCache is the ManifestCache used when caching is disabled.
type NoopCache struct{}

func (NoopCache) Get(string, string) (*Entry, bool) { return nil, false }
func (NoopCache) Put(string, string, *Entry)        {}
func (NoopCache) Close() error                      { return nil }
