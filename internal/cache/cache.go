package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrCacheMiss is returned when no usable snapshot exists
var ErrCacheMiss = errors.New("cache miss")

// DefaultMaxAge is how old a snapshot may be before readers refetch
const DefaultMaxAge = 15 * time.Minute

// ProjectSummary is the slice of project state kept for fast status output
type ProjectSummary struct {
	ExternalID string    `json:"external_id"`
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	TaskCount  int       `json:"task_count"`
	SyncedAt   time.Time `json:"synced_at"`
}

// cachedProjects is the on-disk shape of the projects snapshot
type cachedProjects struct {
	Projects  []ProjectSummary `json:"projects"`
	Timestamp int64            `json:"timestamp"`
}

// GetCacheDir returns the XDG-compliant cache directory path
func GetCacheDir() (string, error) {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	cacheDir = filepath.Join(cacheDir, "tracksync")
	return cacheDir, os.MkdirAll(cacheDir, 0755)
}

func projectsCacheFile() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "projects.json"), nil
}

// LoadProjectSummaries loads the projects snapshot if it is younger than
// maxAge. Missing, unreadable, or stale snapshots all return ErrCacheMiss;
// the caller falls back to the store.
func LoadProjectSummaries(maxAge time.Duration) ([]ProjectSummary, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	cacheFile, err := projectsCacheFile()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil, ErrCacheMiss
	}

	var cached cachedProjects
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, ErrCacheMiss
	}

	if time.Since(time.Unix(cached.Timestamp, 0)) > maxAge {
		return nil, ErrCacheMiss
	}
	return cached.Projects, nil
}

// SaveProjectSummaries writes the projects snapshot with a fresh timestamp
func SaveProjectSummaries(projects []ProjectSummary) error {
	cacheFile, err := projectsCacheFile()
	if err != nil {
		return err
	}

	cached := cachedProjects{
		Projects:  projects,
		Timestamp: time.Now().Unix(),
	}

	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cacheFile, data, 0644)
}

// InvalidateProjects discards the projects snapshot. Called after any
// sync flow that changes project or task rows.
func InvalidateProjects() error {
	cacheFile, err := projectsCacheFile()
	if err != nil {
		return err
	}
	if err := os.Remove(cacheFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// InvalidateAll discards every cached snapshot
func InvalidateAll() error {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(cacheDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
