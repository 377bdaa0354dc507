package reporter

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// Sentry attaches videos to the scope of a Sentry hub so they ride along with
// the next captured event.
type Sentry struct {
	hub          *sentry.Hub
	flushTimeout time.Duration
	log          *utils.ComponentLogger
}

// NewSentry initializes the global Sentry client.
func NewSentry(settings models.SentrySettings) (*Sentry, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         settings.DSN,
		Environment: settings.Environment,
		Release:     settings.Release,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return NewSentryWithHub(sentry.CurrentHub(), settings.FlushTimeout), nil
}

// NewSentryWithHub wraps an existing hub. A non-positive flushTimeout takes
// the default, so Flush(0) and Close still wait for delivery.
func NewSentryWithHub(hub *sentry.Hub, flushTimeout time.Duration) *Sentry {
	if flushTimeout <= 0 {
		flushTimeout = constants.DefaultSentryFlush
	}
	return &Sentry{
		hub:          hub,
		flushTimeout: flushTimeout,
		log:          utils.NewComponentLogger("sentry"),
	}
}

// IsEnabled reports whether the hub has a client bound.
func (s *Sentry) IsEnabled() bool {
	return s.hub != nil && s.hub.Client() != nil
}

// MakeAttachment describes the file at path as an attachment.
func (s *Sentry) MakeAttachment(path, filename, contentType string) (*models.Attachment, error) {
	return newAttachment(path, filename, contentType)
}

// AddAttachment reads the file and adds it to the hub's current scope.
func (s *Sentry) AddAttachment(a *models.Attachment) error {
	if a == nil {
		return fmt.Errorf("nil attachment")
	}
	// #nosec G304 -- attachment paths are artifacts produced by this process
	payload, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("failed to read attachment: %w", err)
	}
	s.hub.Scope().AddAttachment(&sentry.Attachment{
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Payload:     payload,
	})
	s.log.Debug("Attachment added to sentry scope", "filename", a.Filename, "size_bytes", len(payload))
	return nil
}

// CaptureEvent sends a message event carrying the scope's attachments.
func (s *Sentry) CaptureEvent(message string) (string, error) {
	id := s.hub.CaptureMessage(message)
	if id == nil {
		return "", fmt.Errorf("sentry dropped the event")
	}
	s.hub.Scope().ClearAttachments()
	return string(*id), nil
}

// Close flushes pending events.
func (s *Sentry) Close() error {
	if !s.Flush(0) {
		return fmt.Errorf("timed out flushing sentry events")
	}
	return nil
}

// Flush waits for buffered events to be delivered.
func (s *Sentry) Flush(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = s.flushTimeout
	}
	return s.hub.Flush(timeout)
}
