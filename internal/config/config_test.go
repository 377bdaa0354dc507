package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/darkace1998/crash-video-recorder/constants"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "recording:\n  directory: "+dir+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Recording.Directory != dir {
		t.Errorf("Expected directory %s, got %s", dir, cfg.Recording.Directory)
	}
	if cfg.Recording.Profile != constants.ProfileDesktop {
		t.Errorf("Expected desktop profile, got %s", cfg.Recording.Profile)
	}
	if cfg.Recording.MaxVideosToKeep != constants.DefaultMaxVideosToKeep {
		t.Errorf("Expected %d videos to keep, got %d", constants.DefaultMaxVideosToKeep, cfg.Recording.MaxVideosToKeep)
	}
	if cfg.Recording.SettleDelay != constants.DefaultSettleDelay {
		t.Errorf("Expected default settle delay, got %v", cfg.Recording.SettleDelay)
	}
	if cfg.Reporter.Type != constants.ReporterSpool {
		t.Errorf("Expected spool reporter, got %s", cfg.Reporter.Type)
	}
	if cfg.Reporter.Spool.DatabasePath != filepath.Join(dir, constants.SpoolDirName, "spool.db") {
		t.Errorf("Unexpected spool database path %s", cfg.Reporter.Spool.DatabasePath)
	}
	if cfg.Server.Listen != "" {
		t.Errorf("Expected server disabled by default, got %q", cfg.Server.Listen)
	}
	if cfg.Reporter.Sentry.FlushTimeout != constants.DefaultSentryFlush {
		t.Errorf("Expected sentry flush timeout %v, got %v", constants.DefaultSentryFlush, cfg.Reporter.Sentry.FlushTimeout)
	}
	if cfg.Recording.FlushTimeout < constants.RecorderExitTimeout {
		t.Errorf("Flush timeout %v shorter than recorder exit timeout %v", cfg.Recording.FlushTimeout, constants.RecorderExitTimeout)
	}
}

func TestLoadReadsAllSections(t *testing.T) {
	path := writeConfig(t, `
recording:
  directory: /var/lib/crash
  profile: custom
  custom:
    buffer_seconds: 45
    target_fps: 60
    width: 2560
    height: 1440
    quality_preset: 80
  max_videos_to_keep: 3
  settle_delay: 100ms
recorder:
  ffmpeg_path: /usr/bin/ffmpeg
  input_format: x11grab
  input_device: ":0.0"
  segment_seconds: 5
reporter:
  type: sentry
  sentry:
    dsn: https://key@example.com/1
    environment: staging
server:
  listen: 127.0.0.1:9999
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Recording.RecordingConfig(); got.TargetFPS != 60 || got.Width != 2560 || got.QualityPreset != 80 {
		t.Errorf("Unexpected custom recording config %+v", got)
	}
	if cfg.Recording.SettleDelay != 100*time.Millisecond {
		t.Errorf("Expected 100ms settle delay, got %v", cfg.Recording.SettleDelay)
	}
	if cfg.Recorder.InputDevice != ":0.0" || cfg.Recorder.SegmentSeconds != 5 {
		t.Errorf("Unexpected recorder settings %+v", cfg.Recorder)
	}
	if cfg.Reporter.Sentry.Environment != "staging" {
		t.Errorf("Expected staging environment, got %s", cfg.Reporter.Sentry.Environment)
	}
	if cfg.Server.Listen != "127.0.0.1:9999" {
		t.Errorf("Expected listen address, got %s", cfg.Server.Listen)
	}
	if cfg.Logging.Format != constants.LogFormatJSON {
		t.Errorf("Expected json logging, got %s", cfg.Logging.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDirectory, dir)
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvListen, "127.0.0.1:8088")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Recording.Directory != dir {
		t.Errorf("Expected env directory %s, got %s", dir, cfg.Recording.Directory)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected warn level, got %s", cfg.Logging.Level)
	}
	if cfg.Server.Listen != "127.0.0.1:8088" {
		t.Errorf("Expected env listen address, got %s", cfg.Server.Listen)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "recording: [unterminated"},
		{"bad profile", "recording:\n  profile: console\n"},
		{"sentry without dsn", "reporter:\n  type: sentry\n"},
		{"bad log level", "logging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvSentryDSN, "")
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
