package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/validation"
)

const presetExt = ".json"

// Storage keeps presets as one JSON file per preset inside a directory
type Storage struct {
	rootPath string
	cache    *SummaryCache
	logger   *zap.Logger
	mu       sync.Mutex // serialises writes so a preset is never persisted twice at once
}

// NewStorage creates a new storage instance
func NewStorage(rootPath string, logger *zap.Logger) (*Storage, error) {
	if rootPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		rootPath = filepath.Join(homeDir, ".prompt-mover", "presets")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache := NewSummaryCache(rootPath)
	if err := cache.Load(); err != nil {
		// cache is optional
		logger.Warn("failed to load summary cache", zap.Error(err))
	}

	return &Storage{
		rootPath: rootPath,
		cache:    cache,
		logger:   logger,
	}, nil
}

// InitLibrary creates the directory structure for a preset library
func (s *Storage) InitLibrary() error {
	for _, dir := range []string{s.rootPath, s.cache.cacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetBaseDir returns the root path of the storage
func (s *Storage) GetBaseDir() string {
	return s.rootPath
}

func (s *Storage) presetPath(name string) string {
	return filepath.Join(s.rootPath, name+presetExt)
}

// Get loads a preset by name
func (s *Storage) Get(ctx context.Context, name string) (*models.Preset, error) {
	if err := validation.ValidatePresetName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.TimeoutError("get", err)
	}

	data, err := os.ReadFile(s.presetPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError(fmt.Sprintf("preset '%s'", name))
		}
		return nil, errors.StorageError("read preset", err).WithContext("preset", name)
	}

	preset, err := parsePreset(name, data)
	if err != nil {
		return nil, err
	}
	return preset, nil
}

// Persist writes the preset atomically: a temp file is written and renamed
// over the old one, so readers only ever see a complete preset.
func (s *Storage) Persist(ctx context.Context, name string, preset *models.Preset) error {
	if err := validation.ValidatePresetName(name); err != nil {
		return err
	}
	if preset == nil {
		return errors.ValidationError("preset body is required")
	}
	if err := ctx.Err(); err != nil {
		return errors.TimeoutError("persist", err)
	}

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidFormat, "failed to serialize preset").WithContext("preset", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.rootPath, 0755); err != nil {
		return errors.StorageError("create preset directory", err)
	}
	path := s.presetPath(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.StorageError("write preset", err).WithContext("preset", name)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.StorageError("replace preset", err).WithContext("preset", name)
	}

	s.logger.Debug("preset persisted", zap.String("preset", name), zap.Int("items", len(preset.Items)))
	return nil
}

// List returns a summary of every preset in the directory, sorted by name
func (s *Storage) List(ctx context.Context) ([]models.Summary, error) {
	entries, err := os.ReadDir(s.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Summary{}, nil
		}
		return nil, errors.StorageError("list presets", err)
	}

	summaries := make([]models.Summary, 0, len(entries))
	existing := make(map[string]bool)
	cacheModified := false

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.TimeoutError("list", err)
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), presetExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), presetExt)
		info, err := entry.Info()
		if err != nil {
			continue
		}
		existing[name] = true

		if cached, valid := s.cache.Get(name, info); valid {
			summaries = append(summaries, cached.Summary)
			continue
		}

		preset, err := s.Get(ctx, name)
		if err != nil {
			// Log error but keep listing the rest
			s.logger.Warn("skipping unreadable preset", zap.String("preset", name), zap.Error(err))
			continue
		}
		summary := preset.Summarize()
		summary.UpdatedAt = info.ModTime()
		s.cache.Set(name, info, summary)
		cacheModified = true
		summaries = append(summaries, summary)
	}

	if s.cache.Cleanup(existing) {
		cacheModified = true
	}
	if cacheModified {
		if err := s.cache.Save(); err != nil {
			s.logger.Warn("failed to save summary cache", zap.Error(err))
		}
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func parsePreset(name string, data []byte) (*models.Preset, error) {
	var preset models.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileCorrupted, fmt.Sprintf("preset '%s' is not valid JSON", name))
	}
	preset.Name = name
	return &preset, nil
}
