package fetch

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache persists extracted page content as one JSON document per URL hash.
// Entries have no TTL: cached content feeds a single analysis pass, not
// freshness-sensitive serving.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "fetch: create cache dir")
	}
	return &Cache{dir: dir}, nil
}

type cacheEntry struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

func (c *Cache) path(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns cached content for a URL, if present.
func (c *Cache) Get(url string) (string, bool) {
	data, err := os.ReadFile(c.path(url))
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		zap.L().Warn("fetch: corrupt cache entry", zap.String("url", url), zap.Error(err))
		return "", false
	}
	return entry.Content, true
}

// Put stores content for a URL. Write failures are logged, not fatal: the
// content is still usable for the current pass.
func (c *Cache) Put(url, content string) {
	data, err := json.Marshal(cacheEntry{URL: url, Content: content})
	if err != nil {
		zap.L().Error("fetch: marshal cache entry", zap.String("url", url), zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path(url), data, 0o644); err != nil {
		zap.L().Error("fetch: write cache entry", zap.String("url", url), zap.Error(err))
	}
}
