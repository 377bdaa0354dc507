package reporter

import (
	"fmt"
	"time"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/internal/attachment"
	"github.com/darkace1998/crash-video-recorder/models"
)

// Reporter is an attachment.Reporter that can also send events.
type Reporter interface {
	attachment.Reporter
	CaptureEvent(message string) (string, error)
	Flush(timeout time.Duration) bool
	Close() error
}

// New builds the reporter selected by settings.Type.
func New(settings models.ReporterSettings) (Reporter, error) {
	switch settings.Type {
	case constants.ReporterSpool, "":
		return NewSpool(settings.Spool)
	case constants.ReporterSentry:
		return NewSentry(settings.Sentry)
	case constants.ReporterNone:
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown reporter type %q", settings.Type)
	}
}

// Disabled is a Reporter that is never enabled. Recording refuses to start with it.
type Disabled struct{}

// IsEnabled always returns false.
func (Disabled) IsEnabled() bool { return false }

// MakeAttachment always fails.
func (Disabled) MakeAttachment(string, string, string) (*models.Attachment, error) {
	return nil, models.ErrPrerequisiteMissing
}

// AddAttachment always fails.
func (Disabled) AddAttachment(*models.Attachment) error { return models.ErrPrerequisiteMissing }

// CaptureEvent always fails.
func (Disabled) CaptureEvent(string) (string, error) { return "", models.ErrPrerequisiteMissing }

// Flush does nothing.
func (Disabled) Flush(time.Duration) bool { return true }

// Close does nothing.
func (Disabled) Close() error { return nil }
