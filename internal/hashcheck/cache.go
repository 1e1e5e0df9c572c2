package hashcheck

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

const (
	cacheDirectoryNameConstant     = "vmcfg"
	cacheFileNameConstant          = "hashcheck.json"
	cacheDirectoryPermissionsValue = 0o755
	cacheFilePermissionsValue      = 0o600
	cacheIndentConstant            = "    "
	cacheReadTemplateConstant      = "unable to read hash cache %s: %w"
	cacheDecodeTemplateConstant    = "unable to decode hash cache %s: %w"
	cacheWriteTemplateConstant     = "unable to write hash cache %s: %w"
)

// CacheEntry records the validators and content hash observed for one URL.
// Key casing follows the HTTP headers the values came from.
type CacheEntry struct {
	ETag         string `json:"ETag"`
	LastModified string `json:"Last-Modified"`
	Hash         string `json:"hash"`
}

// Cache remembers validators per URL so unchanged artifacts are not
// re-downloaded and re-hashed. Safe for concurrent use.
type Cache struct {
	mutex   sync.Mutex
	entries map[string]CacheEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]CacheEntry{}}
}

// DefaultCachePath locates the per-user hash cache file.
func DefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, cacheDirectoryNameConstant, cacheFileNameConstant)
}

// Lookup returns the cached entry for a URL, if any.
func (cache *Cache) Lookup(artifactURL string) (CacheEntry, bool) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cachedEntry, entryPresent := cache.entries[artifactURL]
	return cachedEntry, entryPresent
}

// Store records or replaces the entry for a URL.
func (cache *Cache) Store(artifactURL string, cachedEntry CacheEntry) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.entries[artifactURL] = cachedEntry
}

// Len reports the number of cached URLs.
func (cache *Cache) Len() int {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	return len(cache.entries)
}

// LoadCache reads the cache file. A missing file yields an empty cache.
func LoadCache(cachePath string) (*Cache, error) {
	cacheContent, readError := os.ReadFile(cachePath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return NewCache(), nil
		}
		return nil, fmt.Errorf(cacheReadTemplateConstant, cachePath, readError)
	}

	loadedEntries := map[string]CacheEntry{}
	if decodeError := json.Unmarshal(cacheContent, &loadedEntries); decodeError != nil {
		return nil, fmt.Errorf(cacheDecodeTemplateConstant, cachePath, decodeError)
	}

	return &Cache{entries: loadedEntries}, nil
}

// SaveCache writes the cache file, creating parent directories as needed.
func (cache *Cache) SaveCache(cachePath string) error {
	cache.mutex.Lock()
	encodedEntries, encodeError := json.MarshalIndent(cache.entries, "", cacheIndentConstant)
	cache.mutex.Unlock()
	if encodeError != nil {
		return fmt.Errorf(cacheWriteTemplateConstant, cachePath, encodeError)
	}

	if directoryError := os.MkdirAll(filepath.Dir(cachePath), cacheDirectoryPermissionsValue); directoryError != nil {
		return fmt.Errorf(cacheWriteTemplateConstant, cachePath, directoryError)
	}

	if writeError := os.WriteFile(cachePath, encodedEntries, cacheFilePermissionsValue); writeError != nil {
		return fmt.Errorf(cacheWriteTemplateConstant, cachePath, writeError)
	}

	return nil
}
