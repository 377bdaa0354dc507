// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// Init installs the default slog logger. When settings name an output path the
// log is written there as well as to stderr; the returned closer releases it.
func Init(settings models.LoggingSettings) (io.Closer, error) {
	return InitWithWriter(os.Stderr, settings)
}

// InitWithWriter is Init with an explicit console writer.
func InitWithWriter(console io.Writer, settings models.LoggingSettings) (io.Closer, error) {
	var (
		out    = console
		closer io.Closer = nopCloser{}
	)

	if settings.OutputPath != "" {
		if err := utils.EnsureDir(filepath.Dir(settings.OutputPath)); err != nil {
			return nil, err
		}
		// #nosec G304 -- log path comes from the operator's config file
		f, err := os.OpenFile(settings.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		closer = f
	}

	utils.SetGlobalLogLevel(settings.Level)
	// The handler must admit the most verbose component; ComponentLogger filters the rest.
	level := utils.ParseLogLevel(settings.Level)
	for component, l := range settings.Components {
		utils.SetComponentLogLevel(component, l)
		level = min(level, utils.ParseLogLevel(l))
	}
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if settings.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	if settings.Format != "json" && settings.Format != "text" && settings.Format != "" {
		slog.Warn("Unsupported log format, defaulting to text", "format", settings.Format)
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
