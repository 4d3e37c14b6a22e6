package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dpshade/prompt-mover/internal/models"
)

// CachedSummary is a preset summary together with the file state it was computed from
type CachedSummary struct {
	Summary models.Summary `json:"summary"`
	ModTime time.Time      `json:"mod_time"`
	Size    int64          `json:"size"`
}

// SummaryCache avoids re-parsing unchanged preset files when listing
type SummaryCache struct {
	cacheDir  string
	cacheFile string
	summaries map[string]*CachedSummary
	mu        sync.RWMutex
}

// NewSummaryCache creates a new summary cache
func NewSummaryCache(baseDir string) *SummaryCache {
	cacheDir := filepath.Join(baseDir, ".cache")
	return &SummaryCache{
		cacheDir:  cacheDir,
		cacheFile: filepath.Join(cacheDir, "summaries.json"),
		summaries: make(map[string]*CachedSummary),
	}
}

// Load loads the summary cache from disk
func (c *SummaryCache) Load() error {
	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := json.Unmarshal(data, &c.summaries); err != nil || c.summaries == nil {
		// If cache is corrupted, start fresh
		c.summaries = make(map[string]*CachedSummary)
	}
	return nil
}

// Save saves the summary cache to disk
func (c *SummaryCache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.summaries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Get returns the cached summary if the file has not changed since it was stored
func (c *SummaryCache) Get(name string, info os.FileInfo) (*CachedSummary, bool) {
	c.mu.RLock()
	cached, exists := c.summaries[name]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if !info.ModTime().Equal(cached.ModTime) || info.Size() != cached.Size {
		return nil, false
	}
	return cached, true
}

// Set stores a summary in the cache
func (c *SummaryCache) Set(name string, info os.FileInfo, summary models.Summary) {
	c.mu.Lock()
	c.summaries[name] = &CachedSummary{
		Summary: summary,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
	c.mu.Unlock()
}

// Cleanup removes entries for presets that no longer exist and reports
// whether anything was removed
func (c *SummaryCache) Cleanup(existing map[string]bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := false
	for name := range c.summaries {
		if !existing[name] {
			delete(c.summaries, name)
			removed = true
		}
	}
	return removed
}
