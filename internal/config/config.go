// Package config loads the recorder's YAML settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/models"
)

// Environment overrides applied after the file is read.
const (
	EnvDirectory = "CRASHVIDEO_DIR"
	EnvLogLevel  = "CRASHVIDEO_LOG_LEVEL"
	EnvSentryDSN = "CRASHVIDEO_SENTRY_DSN"
	EnvListen    = "CRASHVIDEO_LISTEN"
)

// Load reads and parses the configuration file, fills defaults, applies
// environment overrides and validates the result. An empty path yields the
// defaults alone.
func Load(path string) (*models.Settings, error) {
	cfg := &models.Settings{}

	if path != "" {
		// #nosec G304 -- config path is supplied by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if cfg, err = models.SettingsFromYAML(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	ApplyDefaults(cfg)
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns a fully defaulted configuration.
func Default() *models.Settings {
	var cfg models.Settings
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *models.Settings) {
	if cfg.Recording.Directory == "" {
		cfg.Recording.Directory = DefaultVideoDirectory()
	}
	if cfg.Recording.Profile == "" {
		cfg.Recording.Profile = constants.ProfileDesktop
	}
	if cfg.Recording.Profile == constants.ProfileCustom && cfg.Recording.Custom == (models.RecordingConfig{}) {
		cfg.Recording.Custom = models.DefaultRecordingConfig()
	}
	if cfg.Recording.MaxVideosToKeep == 0 {
		cfg.Recording.MaxVideosToKeep = constants.DefaultMaxVideosToKeep
	}
	if cfg.Recording.SettleDelay == 0 {
		cfg.Recording.SettleDelay = constants.DefaultSettleDelay
	}
	if cfg.Recording.FlushTimeout == 0 {
		cfg.Recording.FlushTimeout = constants.DefaultFlushTimeout
	}

	if cfg.Recorder.FFmpegPath == "" {
		cfg.Recorder.FFmpegPath = "ffmpeg"
	}
	if cfg.Recorder.SegmentSeconds == 0 {
		cfg.Recorder.SegmentSeconds = constants.DefaultSegmentSeconds
	}

	if cfg.Reporter.Type == "" {
		cfg.Reporter.Type = constants.ReporterSpool
	}
	if cfg.Reporter.Spool.DatabasePath == "" {
		cfg.Reporter.Spool.DatabasePath = filepath.Join(cfg.Recording.Directory, constants.SpoolDirName, "spool.db")
	}
	if cfg.Reporter.Spool.Directory == "" {
		cfg.Reporter.Spool.Directory = filepath.Join(filepath.Dir(cfg.Reporter.Spool.DatabasePath), "attachments")
	}
	if cfg.Reporter.Sentry.FlushTimeout == 0 {
		cfg.Reporter.Sentry.FlushTimeout = constants.DefaultSentryFlush
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = constants.LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = constants.LogFormatText
	}
}

func applyEnv(cfg *models.Settings) {
	if v := os.Getenv(EnvDirectory); v != "" {
		cfg.Recording.Directory = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvSentryDSN); v != "" {
		cfg.Reporter.Sentry.DSN = v
	}
	if v, ok := os.LookupEnv(EnvListen); ok {
		cfg.Server.Listen = v
	}
}

// DefaultVideoDirectory is <user config dir>/CrashVideos, or ./CrashVideos when
// the platform has no config directory.
func DefaultVideoDirectory() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return constants.CrashVideoDirName
	}
	return filepath.Join(base, "crash-video-recorder", constants.CrashVideoDirName)
}
