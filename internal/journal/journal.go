// Package journal persists one Key=Value metadata file per recording session so
// that a session interrupted by a crash can be found on the next launch.
package journal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// Recognized keys
const (
	KeyVideoPath      = "VideoPath"
	KeyCrashVideoPath = "CrashVideoPath"
	KeyStatus         = "Status"
	KeyStartTime      = "StartTime"
	KeyDuration       = "Duration"
	KeyFPS            = "FPS"
	KeyResolution     = "Resolution"
)

// PathFor returns the journal path for a video: same base name, .session extension.
func PathFor(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + constants.JournalExtension
}

// CrashVideoPathFor returns the path a crash-time capture is renamed to.
func CrashVideoPathFor(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + constants.CrashVideoSuffix + ext
}

// SegmentDirFor returns the hidden working directory a segment-ring recorder
// uses while capturing videoPath. Retention skips hidden directories.
func SegmentDirFor(videoPath string) string {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(filepath.Dir(videoPath), "."+base+constants.SegmentDirSuffix)
}

// Encode renders an entry as newline-separated Key=Value lines.
func Encode(e *models.JournalEntry) []byte {
	var buf bytes.Buffer
	writeKV(&buf, KeyVideoPath, e.VideoPath)
	if e.CrashVideoPath != "" {
		writeKV(&buf, KeyCrashVideoPath, e.CrashVideoPath)
	}
	writeKV(&buf, KeyStatus, string(e.Status))
	if !e.StartTime.IsZero() {
		writeKV(&buf, KeyStartTime, e.StartTime.UTC().Format(time.RFC3339))
	}
	writeKV(&buf, KeyDuration, strconv.FormatFloat(e.Duration, 'f', -1, 64))
	writeKV(&buf, KeyFPS, strconv.Itoa(e.FPS))
	writeKV(&buf, KeyResolution, fmt.Sprintf("%dx%d", e.Width, e.Height))
	return buf.Bytes()
}

func writeKV(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(value)
	buf.WriteByte('\n')
}

// Decode parses Key=Value lines. Unknown keys are ignored and malformed values
// leave the corresponding field at its zero value.
func Decode(data []byte) *models.JournalEntry {
	e := &models.JournalEntry{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case KeyVideoPath:
			e.VideoPath = value
		case KeyCrashVideoPath:
			e.CrashVideoPath = value
		case KeyStatus:
			e.Status = models.SessionStatus(strings.TrimSpace(value))
		case KeyStartTime:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
				e.StartTime = t
			}
		case KeyDuration:
			if d, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				e.Duration = d
			}
		case KeyFPS:
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				e.FPS = n
			}
		case KeyResolution:
			w, h, found := strings.Cut(strings.TrimSpace(value), "x")
			if !found {
				continue
			}
			width, werr := strconv.Atoi(w)
			height, herr := strconv.Atoi(h)
			if werr == nil && herr == nil {
				e.Width, e.Height = width, height
			}
		}
	}
	return e
}

// Write persists the entry next to its video, replacing any previous entry atomically.
// It returns the journal path.
func Write(e *models.JournalEntry) (string, error) {
	if e.VideoPath == "" {
		return "", fmt.Errorf("journal entry has no video path")
	}
	path := PathFor(e.VideoPath)
	if err := utils.WriteFileAtomic(path, Encode(e), 0o600); err != nil {
		return "", fmt.Errorf("failed to write journal %s: %w", path, err)
	}
	e.Path = path
	return path, nil
}

// Read loads the journal at path.
func Read(path string) (*models.JournalEntry, error) {
	// #nosec G304 -- journal paths are enumerated from the video directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", path, err)
	}
	e := Decode(data)
	e.Path = path
	return e, nil
}

// Delete removes the journal at path. A missing file is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete journal %s: %w", path, err)
	}
	return nil
}

// List returns every journal file under dir, recursively. A missing directory
// yields no entries.
func List(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			slog.Warn("Skipping unreadable path while listing journals", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), constants.JournalExtension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list journals in %s: %w", dir, err)
	}
	return paths, nil
}
