// Package capture drives a Recorder through crash-safe circular-buffer sessions.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/internal/attachment"
	"github.com/darkace1998/crash-video-recorder/internal/journal"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
	"github.com/darkace1998/crash-video-recorder/internal/recovery"
	"github.com/darkace1998/crash-video-recorder/internal/retention"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

const inactivePollInterval = 10 * time.Millisecond

// Options configures a Controller. Zero values take the package defaults.
type Options struct {
	Directory       string
	MaxVideosToKeep int
	SettleDelay     time.Duration
	FlushTimeout    time.Duration
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

// Status is a point-in-time snapshot of a Controller.
type Status struct {
	State           string                  `json:"state"`
	Available       bool                    `json:"available"`
	Directory       string                  `json:"directory"`
	MaxVideosToKeep int                     `json:"max_videos_to_keep"`
	SessionID       string                  `json:"session_id,omitempty"`
	VideoPath       string                  `json:"video_path,omitempty"`
	StartTime       *time.Time              `json:"start_time,omitempty"`
	Config          *models.RecordingConfig `json:"config,omitempty"`
}

// Controller owns at most one recording session at a time.
type Controller struct {
	recorder  Recorder
	reporter  attachment.Reporter
	bridge    *attachment.Bridge
	retention *retention.Manager
	scanner   *recovery.Scanner
	metrics   *metrics.Metrics
	opts      Options
	log       *utils.ComponentLogger

	mu           sync.Mutex
	state        State
	session      *models.Session
	journalPath  string
	lastRecovery recovery.Report
}

// New creates a Controller. recorder and reporter may be nil, in which case
// Start fails with ErrPrerequisiteMissing.
func New(recorder Recorder, reporter attachment.Reporter, opts Options) *Controller {
	if opts.Directory == "" {
		opts.Directory = constants.CrashVideoDirName
	}
	if opts.MaxVideosToKeep == 0 {
		opts.MaxVideosToKeep = constants.DefaultMaxVideosToKeep
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = constants.DefaultSettleDelay
	}
	if opts.FlushTimeout == 0 {
		opts.FlushTimeout = constants.DefaultFlushTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		recorder:  recorder,
		reporter:  reporter,
		bridge:    attachment.NewBridge(reporter, opts.Metrics),
		retention: retention.NewManager(opts.Directory, opts.MaxVideosToKeep, opts.Metrics),
		scanner:   recovery.New(opts.Directory, opts.Metrics),
		metrics:   opts.Metrics,
		opts:      opts,
		log:       utils.NewComponentLogger("capture"),
	}
}

// Available reports whether both capabilities are present and the reporter is enabled.
func (c *Controller) Available() bool {
	return c.recorder != nil && c.reporter != nil && c.reporter.IsEnabled()
}

// Start begins a circular-buffer session. Out-of-range config values are
// clamped. Any failure leaves the controller idle with no journal entry.
func (c *Controller) Start(cfg models.RecordingConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		c.metrics.RecordSessionRejected("already_active")
		return fmt.Errorf("cannot start while %s: %w", c.state, models.ErrAlreadyActive)
	}
	if c.reporter == nil || !c.reporter.IsEnabled() {
		c.metrics.RecordSessionRejected("prerequisite_missing")
		return fmt.Errorf("error reporter is disabled: %w", models.ErrPrerequisiteMissing)
	}
	if c.recorder == nil {
		c.metrics.RecordSessionRejected("prerequisite_missing")
		return fmt.Errorf("no screen recorder: %w", models.ErrPrerequisiteMissing)
	}

	// Either a recording started elsewhere or our previous session still flushing.
	if c.recorder.IsActive() {
		c.log.Info("Recorder is busy, stopping it before the new session")
		if err := c.recorder.Stop(); err != nil {
			c.log.Warn("Failed to stop existing recording", "error", err)
		}
		c.waitInactive()
	}

	cfg = cfg.Clamp()
	now := c.opts.Now()
	videoPath := c.newVideoPath(now)

	if err := os.MkdirAll(c.opts.Directory, 0o750); err != nil {
		c.metrics.RecordSessionRejected("storage_unavailable")
		return fmt.Errorf("failed to create %s: %w: %w", c.opts.Directory, models.ErrStorageUnavailable, err)
	}

	c.lastRecovery = c.scanner.Scan()

	session := &models.Session{
		ID:        uuid.NewString(),
		VideoPath: videoPath,
		Config:    cfg,
		Status:    models.StatusRecording,
		StartTime: now,
	}
	journalPath, err := journal.Write(models.NewJournalEntry(session))
	if err != nil {
		c.metrics.RecordSessionRejected("storage_unavailable")
		return fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
	}

	if err := c.recorder.Start(models.NewRecordRequest(videoPath, cfg)); err != nil {
		if derr := journal.Delete(journalPath); derr != nil {
			c.log.Warn("Failed to roll back session journal", "path", journalPath, "error", derr)
		}
		c.metrics.RecordSessionRejected("recorder_failed")
		return fmt.Errorf("recorder did not start: %w: %w", models.ErrPrerequisiteMissing, err)
	}

	c.retention.Prune(videoPath)

	c.session = session
	c.journalPath = journalPath
	c.state = StateRecording
	c.metrics.RecordSessionStarted(cfg.BufferSeconds)

	c.log.Info("Crash video recording started",
		"session_id", session.ID,
		"video_path", videoPath,
		"buffer_seconds", cfg.BufferSeconds,
		"fps", cfg.TargetFPS,
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"bitrate", cfg.Bitrate(),
	)
	return nil
}

// Stop ends the session cleanly and removes its journal entry. It is a no-op when idle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return nil
	}

	c.state = StateStopping
	stopErr := c.recorder.Stop()

	journalPath := c.journalPath
	c.endSession()

	if err := journal.Delete(journalPath); err != nil {
		c.log.Warn("Failed to delete session journal", "path", journalPath, "error", err)
	}
	if stopErr != nil {
		return fmt.Errorf("recorder failed to stop: %w", stopErr)
	}
	c.log.Info("Crash video recording stopped")
	return nil
}

// FinalizeAndSave stops the recorder, waits for the flush and returns the
// verified artifact path. Under a real crash the flush may not finish; that
// surfaces as ErrEmptyOrMissingArtifact. The controller is idle afterwards.
func (c *Controller) FinalizeAndSave() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	journalPath := c.journalPath
	path, _, err := c.finalizeLocked()
	if err != nil {
		return "", err
	}
	if derr := journal.Delete(journalPath); derr != nil {
		c.log.Warn("Failed to delete session journal", "path", journalPath, "error", derr)
	}
	return path, nil
}

// CaptureAndAttachVideo finalizes the session and attaches the video to the
// reporter. Failures are logged; the result is the path or "".
func (c *Controller) CaptureAndAttachVideo() string {
	path, err := c.FinalizeAndSave()
	if err != nil {
		c.log.Warn("Failed to capture crash video", "error", err)
		return ""
	}
	if err := c.bridge.Attach(path); err != nil {
		c.log.Warn("Failed to attach crash video", "video_path", path, "error", err)
		return ""
	}
	return path
}

// HandleCrash finalizes the active session, renames the video to its crash
// path, attaches it and marks the journal CRASH_RECORDED. The journal is
// left for the next launch to clean up.
func (c *Controller) HandleCrash(reason string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.RecordCrash()
	log := c.log.With("reason", reason)

	if c.state != StateRecording {
		log.Warn("Crash detected with no active recording")
		return ""
	}

	path, session, err := c.finalizeLocked()
	if err != nil {
		log.Error("Failed to finalize crash video", "error", err)
		return ""
	}

	crashPath := journal.CrashVideoPathFor(path)
	if err := os.Rename(path, crashPath); err != nil {
		log.Warn("Failed to move crash video, keeping original path", "video_path", path, "error", err)
		crashPath = path
	}

	if err := c.bridge.Attach(crashPath); err != nil {
		log.Error("Failed to attach crash video", "crash_video_path", crashPath, "error", err)
	}

	entry := models.NewJournalEntry(session)
	entry.Status = models.StatusCrashRecorded
	entry.CrashVideoPath = crashPath
	if _, err := journal.Write(entry); err != nil {
		log.Error("Failed to mark session journal as crash recorded", "error", err)
	}

	log.Info("Crash video saved", "crash_video_path", crashPath)
	return crashPath
}

// RecoverPanic must be deferred directly. It records the crash video for a
// panicking goroutine and then re-panics.
func (c *Controller) RecoverPanic() {
	if r := recover(); r != nil {
		c.HandleCrash(fmt.Sprintf("panic: %v", r))
		panic(r)
	}
}

// SetMaxVideosToKeep changes the retention limit for later sessions. Values below 1 become 1.
func (c *Controller) SetMaxVideosToKeep(n int) {
	c.retention.SetMaxToKeep(n)
}

// MaxVideosToKeep returns the retention limit.
func (c *Controller) MaxVideosToKeep() int {
	return c.retention.MaxToKeep()
}

// LastRecovery returns the report of the recovery scan run by the latest Start.
func (c *Controller) LastRecovery() recovery.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRecovery
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:           c.state.String(),
		Available:       c.Available(),
		Directory:       c.opts.Directory,
		MaxVideosToKeep: c.retention.MaxToKeep(),
	}
	if c.session != nil {
		start := c.session.StartTime
		cfg := c.session.Config
		st.SessionID = c.session.ID
		st.VideoPath = c.session.VideoPath
		st.StartTime = &start
		st.Config = &cfg
	}
	return st
}

// finalizeLocked requires c.mu. It always leaves the controller idle.
func (c *Controller) finalizeLocked() (string, *models.Session, error) {
	if c.state != StateRecording {
		return "", nil, fmt.Errorf("cannot finalize while %s: %w", c.state, models.ErrNotRecording)
	}

	c.state = StateFinalizing
	session := c.session
	defer c.endSession()

	began := time.Now()
	if err := c.recorder.Stop(); err != nil {
		c.log.Warn("Recorder reported an error while stopping", "error", err)
	}
	c.waitForFlush()
	flushSeconds := time.Since(began).Seconds()

	path := c.recorder.LastOutputPath()
	if path == "" {
		c.metrics.RecordFinalize("missing", flushSeconds, 0)
		return "", session, fmt.Errorf("recorder returned no output path: %w", models.ErrEmptyOrMissingArtifact)
	}
	size, err := utils.NonEmptyFileSize(path)
	if err != nil {
		c.metrics.RecordFinalize("missing", flushSeconds, 0)
		return "", session, fmt.Errorf("%w: %w", models.ErrEmptyOrMissingArtifact, err)
	}

	c.metrics.RecordFinalize("ok", flushSeconds, size)
	c.log.Info("Crash video finalized", "video_path", path, "size_bytes", size, "flush_seconds", flushSeconds)
	return path, session, nil
}

func (c *Controller) waitForFlush() {
	fw, ok := c.recorder.(FlushWaiter)
	if !ok {
		time.Sleep(c.opts.SettleDelay)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.FlushTimeout)
	defer cancel()
	if err := fw.WaitFlushed(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.log.Warn("Timed out waiting for recorder flush", "timeout", c.opts.FlushTimeout)
			return
		}
		c.log.Warn("Recorder flush failed", "error", err)
	}
}

func (c *Controller) waitInactive() {
	if fw, ok := c.recorder.(FlushWaiter); ok {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.FlushTimeout)
		err := fw.WaitFlushed(ctx)
		cancel()
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			c.log.Warn("Timed out waiting for previous recording to flush", "timeout", c.opts.FlushTimeout)
		}
	}

	deadline := time.Now().Add(c.opts.SettleDelay)
	for c.recorder.IsActive() && time.Now().Before(deadline) {
		time.Sleep(inactivePollInterval)
	}
	if c.recorder.IsActive() {
		c.log.Warn("Existing recording still active after settle delay", "settle_delay", c.opts.SettleDelay)
	}
}

func (c *Controller) endSession() {
	c.state = StateIdle
	c.session = nil
	c.journalPath = ""
	c.metrics.RecordSessionEnded()
}

func (c *Controller) newVideoPath(now time.Time) string {
	name := constants.VideoFilePrefix + now.Format(constants.VideoTimestampLayout) + "_" +
		uuid.NewString()[:8] + constants.VideoExtension
	return filepath.Join(c.opts.Directory, name)
}
