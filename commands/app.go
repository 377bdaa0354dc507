package commands

import (
	"errors"

	"github.com/darkace1998/crash-video-recorder/internal/capture"
	"github.com/darkace1998/crash-video-recorder/internal/dirlock"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
	"github.com/darkace1998/crash-video-recorder/internal/recorder"
	"github.com/darkace1998/crash-video-recorder/internal/reporter"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// App wires the recorder, the reporter and the controller for one process.
// It satisfies server.Controller; captures made through it are followed by a
// reporter event so the attachment is delivered.
type App struct {
	Settings   *models.Settings
	Metrics    *metrics.Metrics
	Reporter   reporter.Reporter
	Controller *capture.Controller

	lock *dirlock.Lock
	log  *utils.ComponentLogger
}

// NewApp builds the process wiring from settings. A missing ffmpeg binary
// leaves the controller without a recorder, so Start reports it.
func NewApp(settings *models.Settings, m *metrics.Metrics) (*App, error) {
	return newApp(settings, m, nil)
}

func newApp(settings *models.Settings, m *metrics.Metrics, rec capture.Recorder) (*App, error) {
	log := utils.NewComponentLogger("app")

	lock, err := dirlock.Acquire(settings.Recording.Directory)
	if err != nil {
		return nil, err
	}

	rep, err := reporter.New(settings.Reporter)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	if rec == nil {
		ff := recorder.NewFFmpeg(settings.Recorder)
		if ff.Available() {
			rec = ff
		} else {
			log.Warn("ffmpeg not found, recording is unavailable", "ffmpeg_path", settings.Recorder.FFmpegPath)
		}
	}

	ctrl := capture.New(rec, rep, capture.Options{
		Directory:       settings.Recording.Directory,
		MaxVideosToKeep: settings.Recording.MaxVideosToKeep,
		SettleDelay:     settings.Recording.SettleDelay,
		FlushTimeout:    settings.Recording.FlushTimeout,
		Metrics:         m,
	})

	return &App{
		Settings:   settings,
		Metrics:    m,
		Reporter:   rep,
		Controller: ctrl,
		lock:       lock,
		log:        log,
	}, nil
}

// Status returns the controller snapshot.
func (a *App) Status() capture.Status {
	return a.Controller.Status()
}

// Start begins a recording session.
func (a *App) Start(cfg models.RecordingConfig) error {
	return a.Controller.Start(cfg)
}

// CaptureAndAttachVideo saves the buffer, attaches it and sends an event
// carrying it.
func (a *App) CaptureAndAttachVideo() string {
	path := a.Controller.CaptureAndAttachVideo()
	if path != "" {
		a.sendEvent("Crash video captured on request")
	}
	return path
}

// Crash records the crash video, sends an event with it and flushes the reporter.
func (a *App) Crash(reason string) string {
	path := a.Controller.HandleCrash(reason)
	a.sendEvent(reason)
	if !a.Reporter.Flush(0) {
		a.log.Warn("Reporter flush timed out")
	}
	return path
}

// Close stops an active session without saving, closes the reporter and
// releases the directory.
func (a *App) Close() error {
	var errs []error
	if err := a.Controller.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Reporter.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) sendEvent(message string) {
	id, err := a.Reporter.CaptureEvent(message)
	if err != nil {
		a.log.Warn("Failed to send crash event", "error", err)
		return
	}
	a.log.Info("Crash event sent", "event_id", id)
}
