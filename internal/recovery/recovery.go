// Package recovery cleans up after sessions that ended without a clean stop.
package recovery

import (
	"errors"
	"io/fs"
	"os"

	"github.com/darkace1998/crash-video-recorder/internal/journal"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// Outcome labels for processed journal entries
const (
	OutcomeCrashRecorded  = "crash_recorded"
	OutcomeStaleRecording = "stale_recording"
	OutcomeOrphaned       = "orphaned"
	OutcomeCorrupt        = "corrupt"
	OutcomeFailed         = "failed"
)

// Scanner walks the video directory for leftover journal entries.
// It never re-attaches video content; it only removes stale files.
type Scanner struct {
	directory string
	metrics   *metrics.Metrics
	log       *utils.ComponentLogger
}

// Report summarizes one scan.
type Report struct {
	Entries         int
	DeletedVideos   []string
	DeletedJournals []string
	DeletedSegments []string
	Outcomes        map[string]int
}

// New creates a Scanner for directory. m may be nil.
func New(directory string, m *metrics.Metrics) *Scanner {
	return &Scanner{
		directory: directory,
		metrics:   m,
		log:       utils.NewComponentLogger("recovery"),
	}
}

// Scan processes every journal entry under the directory. Failures are logged
// per entry and never stop the scan.
func (s *Scanner) Scan() Report {
	report := Report{Outcomes: make(map[string]int)}

	paths, err := journal.List(s.directory)
	if err != nil {
		s.log.Warn("Failed to enumerate session journals", "directory", s.directory, "error", err)
		return report
	}
	report.Entries = len(paths)
	if len(paths) == 0 {
		s.log.Debug("No leftover session journals", "directory", s.directory)
		return report
	}

	s.log.Info("Found leftover session journals", "count", len(paths), "directory", s.directory)
	for _, path := range paths {
		outcome := s.process(path, &report)
		report.Outcomes[outcome]++
		s.metrics.RecordRecovery(outcome)
	}
	return report
}

func (s *Scanner) process(path string, report *Report) string {
	entry, err := journal.Read(path)
	if err != nil {
		s.log.Warn("Failed to read session journal", "path", path, "error", err)
		return OutcomeFailed
	}

	// Journals are plain files; never follow one to delete outside the directory.
	for _, p := range []string{entry.VideoPath, entry.CrashVideoPath} {
		if p == "" {
			continue
		}
		if _, err := utils.PathWithinBase(s.directory, p); err != nil {
			s.log.Warn("Session journal points outside the video directory", "path", path, "error", err)
			if s.removeJournal(path, report) != nil {
				return OutcomeFailed
			}
			return OutcomeCorrupt
		}
	}

	// A recorder killed mid-capture leaves its segment ring behind.
	if entry.VideoPath != "" && (entry.Status == models.StatusRecording || entry.Status == models.StatusCrashRecorded) {
		if s.removeSegments(entry.VideoPath, report) != nil {
			return OutcomeFailed
		}
	}

	switch entry.Status {
	case models.StatusCrashRecorded:
		crashPath := entry.CrashVideoPath
		if crashPath == "" && entry.VideoPath != "" {
			crashPath = journal.CrashVideoPathFor(entry.VideoPath)
		}
		if crashPath != "" {
			if size, err := utils.NonEmptyFileSize(crashPath); err == nil {
				s.log.Info("Crash video from previous session was already reported", "crash_video_path", crashPath, "size_bytes", size)
			} else {
				s.log.Warn("Crash video from previous session is missing or empty", "crash_video_path", crashPath, "error", err)
			}
			if s.removeVideo(crashPath, report) != nil {
				return OutcomeFailed
			}
		}
		if s.removeJournal(path, report) != nil {
			return OutcomeFailed
		}
		return OutcomeCrashRecorded

	case models.StatusRecording:
		if entry.VideoPath == "" {
			s.log.Warn("Session journal has no video path", "path", path)
			if s.removeJournal(path, report) != nil {
				return OutcomeFailed
			}
			return OutcomeOrphaned
		}
		if !utils.FileExists(entry.VideoPath) {
			s.log.Info("Video from interrupted session is gone", "video_path", entry.VideoPath)
			if s.removeJournal(path, report) != nil {
				return OutcomeFailed
			}
			return OutcomeOrphaned
		}
		s.log.Info("Removing incomplete video from interrupted session", "video_path", entry.VideoPath)
		if s.removeVideo(entry.VideoPath, report) != nil {
			return OutcomeFailed
		}
		if s.removeJournal(path, report) != nil {
			return OutcomeFailed
		}
		return OutcomeStaleRecording

	default:
		s.log.Warn("Session journal is corrupt or has an unknown status", "path", path, "status", string(entry.Status))
		if s.removeJournal(path, report) != nil {
			return OutcomeFailed
		}
		return OutcomeCorrupt
	}
}

func (s *Scanner) removeVideo(path string, report *Report) error {
	err := os.Remove(path)
	switch {
	case err == nil:
		report.DeletedVideos = append(report.DeletedVideos, path)
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		s.log.Warn("Failed to delete video", "video_path", path, "error", err)
		return err
	}
}

func (s *Scanner) removeSegments(videoPath string, report *Report) error {
	dir := journal.SegmentDirFor(videoPath)
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		s.log.Warn("Failed to delete leftover segment ring", "path", dir, "error", err)
		return err
	}
	s.log.Info("Removed leftover segment ring", "path", dir)
	report.DeletedSegments = append(report.DeletedSegments, dir)
	return nil
}

func (s *Scanner) removeJournal(path string, report *Report) error {
	if err := journal.Delete(path); err != nil {
		s.log.Warn("Failed to delete session journal", "path", path, "error", err)
		return err
	}
	report.DeletedJournals = append(report.DeletedJournals, path)
	return nil
}
