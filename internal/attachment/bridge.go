// Package attachment hands finalized video artifacts to the error reporter.
package attachment

import (
	"fmt"
	"path/filepath"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// Reporter is the error-reporting capability that carries attachments to the next event.
type Reporter interface {
	IsEnabled() bool
	MakeAttachment(path, filename, contentType string) (*models.Attachment, error)
	// AddAttachment adds to the current scope; earlier attachments are kept.
	AddAttachment(a *models.Attachment) error
}

// Bridge attaches video files to a Reporter.
type Bridge struct {
	reporter Reporter
	metrics  *metrics.Metrics
	log      *utils.ComponentLogger
}

// NewBridge creates a Bridge. Both arguments may be nil.
func NewBridge(reporter Reporter, m *metrics.Metrics) *Bridge {
	return &Bridge{
		reporter: reporter,
		metrics:  m,
		log:      utils.NewComponentLogger("attachment"),
	}
}

// Attach adds the video at path to the reporter's scope. The reporter is not
// contacted when the path is empty, the file is gone, or the reporter is unavailable.
func (b *Bridge) Attach(path string) error {
	if path == "" {
		b.metrics.RecordAttachment("missing")
		return fmt.Errorf("no video path: %w", models.ErrEmptyOrMissingArtifact)
	}
	if b.reporter == nil || !b.reporter.IsEnabled() {
		b.metrics.RecordAttachment("unavailable")
		return fmt.Errorf("reporter unavailable: %w", models.ErrPrerequisiteMissing)
	}
	if !utils.FileExists(path) {
		b.metrics.RecordAttachment("missing")
		return fmt.Errorf("video %s no longer exists: %w", path, models.ErrEmptyOrMissingArtifact)
	}

	a, err := b.reporter.MakeAttachment(path, filepath.Base(path), constants.VideoMIMEType)
	if err != nil {
		b.metrics.RecordAttachment("failed")
		return fmt.Errorf("failed to create attachment for %s: %w", path, err)
	}
	if err := b.reporter.AddAttachment(a); err != nil {
		b.metrics.RecordAttachment("failed")
		return fmt.Errorf("failed to add attachment %s: %w", a.Filename, err)
	}

	b.metrics.RecordAttachment("ok")
	b.log.Info("Attached crash video", "video_path", path, "filename", a.Filename, "size_bytes", a.Size)
	return nil
}
