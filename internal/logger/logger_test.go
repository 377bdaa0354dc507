package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

func TestInitWritesToConsoleAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "recorder.log")

	closer, err := InitWithWriter(&console, models.LoggingSettings{Level: "info", Format: "json", OutputPath: logPath})
	if err != nil {
		t.Fatalf("InitWithWriter() error = %v", err)
	}

	slog.Info("crash video saved", "path", "/tmp/a.mp4")
	slog.Debug("filtered out")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(console.String(), `"msg":"crash video saved"`) {
		t.Errorf("console missing JSON record: %q", console.String())
	}
	if strings.Contains(console.String(), "filtered out") {
		t.Error("debug record should be filtered at info level")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "crash video saved") {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestInitTextFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	if _, err := InitWithWriter(&console, models.LoggingSettings{Level: "debug", Format: "text"}); err != nil {
		t.Fatalf("InitWithWriter() error = %v", err)
	}
	slog.Debug("recorder started")

	if !strings.Contains(console.String(), "msg=\"recorder started\"") {
		t.Errorf("expected text record, got %q", console.String())
	}
}

func TestInitComponentOverride(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	_, err := InitWithWriter(&console, models.LoggingSettings{
		Level:      "warn",
		Components: map[string]string{"logger-test-recorder": "debug"},
	})
	if err != nil {
		t.Fatalf("InitWithWriter() error = %v", err)
	}

	utils.NewComponentLogger("logger-test-recorder").Debug("segment written")
	utils.NewComponentLogger("logger-test-capture").Info("session started")

	if !strings.Contains(console.String(), "segment written") {
		t.Errorf("expected debug record from overridden component, got %q", console.String())
	}
	if strings.Contains(console.String(), "session started") {
		t.Error("info record should be filtered for components at the global warn level")
	}
}
