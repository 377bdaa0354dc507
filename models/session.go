package models

import (
	"time"

	"github.com/darkace1998/crash-video-recorder/constants"
)

// SessionStatus is the durable status of a recording session.
type SessionStatus string

// Session statuses
const (
	StatusRecording     SessionStatus = constants.SessionStatusRecording
	StatusCrashRecorded SessionStatus = constants.SessionStatusCrashRecorded
)

// Session is one active or crashed recording attempt.
type Session struct {
	ID        string          `json:"id"`
	VideoPath string          `json:"video_path"`
	Config    RecordingConfig `json:"config"`
	Status    SessionStatus   `json:"status"`
	StartTime time.Time       `json:"start_time"`
}

// JournalEntry is the persisted shadow copy of a Session.
// Path is the journal file it was read from and is not serialized.
type JournalEntry struct {
	Path           string        `json:"path"`
	VideoPath      string        `json:"video_path"`
	CrashVideoPath string        `json:"crash_video_path,omitempty"`
	Status         SessionStatus `json:"status"`
	StartTime      time.Time     `json:"start_time"`
	Duration       float64       `json:"duration"` // buffer length in seconds
	FPS            int           `json:"fps"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
}

// NewJournalEntry captures the durable fields of a session.
func NewJournalEntry(s *Session) *JournalEntry {
	return &JournalEntry{
		VideoPath: s.VideoPath,
		Status:    s.Status,
		StartTime: s.StartTime,
		Duration:  s.Config.BufferSeconds,
		FPS:       s.Config.TargetFPS,
		Width:     s.Config.Width,
		Height:    s.Config.Height,
	}
}

// Attachment is a file handed to the error reporter for the next event.
type Attachment struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
