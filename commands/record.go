package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/darkace1998/crash-video-recorder/commands/formatter"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
	"github.com/darkace1998/crash-video-recorder/internal/server"
	"github.com/darkace1998/crash-video-recorder/models"
)

type recordOptions struct {
	profile    string
	buffer     float64
	fps        int
	quality    int
	audio      bool
	listen     string
	duration   time.Duration
	crashAfter time.Duration
}

func newRecordCmd(rt *runtime) *cobra.Command {
	var opts recordOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the screen into a rolling buffer until interrupted",
		Long: "Start a circular-buffer recording session. Ctrl+C stops it without saving.\n" +
			"Send SIGUSR1 or POST /api/capture to save the buffer and attach it to the error reporter; " +
			"recording continues with a new session afterwards.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := rt.settings
			if opts.profile != "" {
				settings.Recording.Profile = opts.profile
			}
			if opts.listen != "" {
				settings.Server.Listen = opts.listen
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			cfg := settings.Recording.RecordingConfig()
			flags := cmd.Flags()
			if flags.Changed("buffer") {
				cfg.BufferSeconds = opts.buffer
			}
			if flags.Changed("fps") {
				cfg.TargetFPS = opts.fps
			}
			if flags.Changed("quality") {
				cfg.QualityPreset = opts.quality
			}
			if flags.Changed("audio") {
				cfg.EnableAudio = opts.audio
			}

			app, err := NewApp(settings, metrics.New())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := app.Close(); cerr != nil {
					app.log.Warn("Failed to shut down cleanly", "error", cerr)
				}
			}()

			return runRecording(cmd.Context(), app, cfg, opts, rt.out(cmd))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.profile, "profile", "", "Recording profile: desktop, mobile, custom")
	flags.Float64Var(&opts.buffer, "buffer", 0, "Seconds of video to keep (5-600)")
	flags.IntVar(&opts.fps, "fps", 0, "Target frame rate (10-120)")
	flags.IntVar(&opts.quality, "quality", 0, "Quality preset (0-100)")
	flags.BoolVar(&opts.audio, "audio", false, "Record audio")
	flags.StringVar(&opts.listen, "listen", "", "Serve status, capture and metrics on this address")
	flags.DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	flags.DurationVar(&opts.crashAfter, "crash-after", 0, "Panic after this long to exercise the crash path")
	_ = flags.MarkHidden("crash-after")

	return cmd
}

// runRecording owns the session until a stop signal, the duration elapses or
// the server fails. A panic here saves the crash video before propagating.
func runRecording(ctx context.Context, app *App, cfg models.RecordingConfig, opts recordOptions, out *formatter.Output) error {
	defer func() {
		if r := recover(); r != nil {
			app.Crash(fmt.Sprintf("panic: %v", r))
			panic(r)
		}
	}()

	if err := app.Start(cfg); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	if report := app.Controller.LastRecovery(); report.Entries > 0 {
		app.log.Info("Cleaned up after previous sessions",
			"entries", report.Entries,
			"deleted_videos", len(report.DeletedVideos),
		)
	}
	st := app.Status()
	_ = out.PrintFields(st, "state", st.State, "video_path", st.VideoPath, "directory", st.Directory)

	var srv *server.Server
	serverErr := make(chan error, 1)
	if listen := app.Settings.Server.Listen; listen != "" {
		srv = server.New(app, app.Settings.Server, app.Metrics)
		go func() {
			serverErr <- srv.Start()
		}()
	}
	defer shutdownServer(srv)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, append([]os.Signal{os.Interrupt, syscall.SIGTERM}, captureSignals...)...)
	defer signal.Stop(sigCh)

	deadline := timerChan(opts.duration)
	crash := timerChan(opts.crashAfter)

	for {
		select {
		case <-ctx.Done():
			return app.Controller.Stop()

		case sig := <-sigCh:
			if !isCaptureSignal(sig) {
				app.log.Info("Received shutdown signal", "signal", sig.String())
				return app.Controller.Stop()
			}
			path := app.CaptureAndAttachVideo()
			if path == "" {
				_ = out.Message("Capture failed, see log for details")
			} else {
				_ = out.Message("Saved " + path)
			}
			if err := app.Start(cfg); err != nil {
				return fmt.Errorf("failed to restart recording: %w", err)
			}

		case <-deadline:
			return app.Controller.Stop()

		case <-crash:
			panic("simulated crash")

		case err := <-serverErr:
			if err != nil {
				_ = app.Controller.Stop()
				return err
			}
		}
	}
}

func shutdownServer(srv *server.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}
}

// timerChan returns nil, which blocks forever, when d is not positive.
func timerChan(d time.Duration) <-chan time.Time {
	if d <= 0 {
		return nil
	}
	return time.After(d)
}

func isCaptureSignal(sig os.Signal) bool {
	for _, s := range captureSignals {
		if s == sig {
			return true
		}
	}
	return false
}
