// Package retention bounds the number of video artifacts kept on disk.
package retention

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
)

// Manager deletes the oldest artifacts once more than maxToKeep exist.
type Manager struct {
	directory string
	extension string
	metrics   *metrics.Metrics

	mu        sync.RWMutex
	maxToKeep int
}

// Entry is one artifact found under the directory.
type Entry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Result summarizes one Prune run. Per-file failures are counted, never returned.
type Result struct {
	Scanned    int
	Deleted    []string
	Failed     int
	FreedBytes int64
}

// NewManager creates a Manager for .mp4 artifacts under directory.
// m may be nil.
func NewManager(directory string, maxToKeep int, m *metrics.Metrics) *Manager {
	mgr := &Manager{
		directory: directory,
		extension: constants.VideoExtension,
		metrics:   m,
	}
	mgr.SetMaxToKeep(maxToKeep)
	return mgr
}

// SetMaxToKeep changes the limit for subsequent runs. Values below 1 become 1.
func (m *Manager) SetMaxToKeep(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.maxToKeep = n
	m.mu.Unlock()
}

// MaxToKeep returns the current limit.
func (m *Manager) MaxToKeep() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxToKeep
}

// Prune deletes the oldest count-maxToKeep artifacts by modification time.
// Protected paths are never deleted; older unprotected files are taken instead.
func (m *Manager) Prune(protected ...string) Result {
	var res Result

	entries, err := m.List()
	if err != nil {
		slog.Warn("Failed to list video artifacts", "directory", m.directory, "error", err)
		return res
	}
	res.Scanned = len(entries)

	maxToKeep := m.MaxToKeep()
	if len(entries) <= maxToKeep {
		return res
	}

	keep := make(map[string]struct{}, len(protected))
	for _, p := range protected {
		if p != "" {
			keep[filepath.Clean(p)] = struct{}{}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.Before(entries[j].ModTime)
	})

	numToDelete := len(entries) - maxToKeep
	for _, entry := range entries {
		if numToDelete == 0 {
			break
		}
		if _, ok := keep[filepath.Clean(entry.Path)]; ok {
			continue
		}
		numToDelete--

		if err := os.Remove(entry.Path); err != nil {
			res.Failed++
			slog.Warn("Failed to delete old crash video", "path", entry.Path, "error", err)
			continue
		}
		res.Deleted = append(res.Deleted, entry.Path)
		res.FreedBytes += entry.Size
		slog.Debug("Deleted old crash video", "path", entry.Path, "mod_time", entry.ModTime)
	}

	m.metrics.RecordRetention(len(res.Deleted), res.Failed)
	if len(res.Deleted) > 0 {
		slog.Info("Crash video retention completed",
			"deleted_files", len(res.Deleted),
			"freed_bytes", res.FreedBytes,
			"max_to_keep", maxToKeep,
		)
	}
	return res
}

// List returns every artifact under the directory, recursively, in walk order.
// Hidden subdirectories are skipped.
func (m *Manager) List() ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(m.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Skip errors and continue walking
		}
		if d.IsDir() {
			if path != m.directory && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), m.extension) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr == nil {
			entries = append(entries, Entry{
				Path:    path,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
		return nil
	})

	if err != nil {
		return entries, fmt.Errorf("failed to walk video directory: %w", err)
	}
	return entries, nil
}
