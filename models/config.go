package models

import "time"

// LoggingSettings defines logging configuration
type LoggingSettings struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, text
	OutputPath string `yaml:"output_path"`

	// Components overrides the level per component (capture, recorder, recovery, ...).
	Components map[string]string `yaml:"components"`
}

// RecordingSettings controls the circular-buffer session and artifact housekeeping.
type RecordingSettings struct {
	Directory       string          `yaml:"directory"`
	Profile         string          `yaml:"profile"` // desktop, mobile, custom
	Custom          RecordingConfig `yaml:"custom"`  // used when profile is custom
	MaxVideosToKeep int             `yaml:"max_videos_to_keep"`
	SettleDelay     time.Duration   `yaml:"settle_delay"`
	FlushTimeout    time.Duration   `yaml:"flush_timeout"`
}

// RecorderSettings configures the ffmpeg screen recorder.
type RecorderSettings struct {
	FFmpegPath     string `yaml:"ffmpeg_path"`
	InputFormat    string `yaml:"input_format"` // x11grab, avfoundation, gdigrab
	InputDevice    string `yaml:"input_device"`
	AudioFormat    string `yaml:"audio_format"` // pulse, alsa, avfoundation, dshow
	AudioDevice    string `yaml:"audio_device"`
	SegmentSeconds int    `yaml:"segment_seconds"`
}

// SpoolSettings configures the local SQLite attachment spool.
type SpoolSettings struct {
	DatabasePath string `yaml:"database_path"`
	Directory    string `yaml:"directory"`
}

// SentrySettings configures the Sentry reporter.
type SentrySettings struct {
	DSN          string        `yaml:"dsn"`
	Environment  string        `yaml:"environment"`
	Release      string        `yaml:"release"`
	FlushTimeout time.Duration `yaml:"flush_timeout"`
}

// ReporterSettings selects and configures the error reporter.
type ReporterSettings struct {
	Type   string         `yaml:"type"` // spool, sentry, none
	Spool  SpoolSettings  `yaml:"spool"`
	Sentry SentrySettings `yaml:"sentry"`
}

// ServerSettings configures the optional status/control HTTP endpoint.
type ServerSettings struct {
	Listen string `yaml:"listen"` // empty disables the server
	APIKey string `yaml:"api_key"`
}

// Settings is the full configuration file.
type Settings struct {
	Recording RecordingSettings `yaml:"recording"`
	Recorder  RecorderSettings  `yaml:"recorder"`
	Reporter  ReporterSettings  `yaml:"reporter"`
	Server    ServerSettings    `yaml:"server"`
	Logging   LoggingSettings   `yaml:"logging"`
}
