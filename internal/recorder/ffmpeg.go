// Package recorder implements the screen Recorder on top of the ffmpeg CLI.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/internal/journal"
	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

const segmentPattern = "seg_%03d.mp4"

// ErrRecorderBusy is returned by Start while a capture is running.
var ErrRecorderBusy = errors.New("ffmpeg recorder is already capturing")

// FFmpeg records the screen into a ring of short segments using the ffmpeg
// segment muxer. Only the newest segments covering the buffer length are kept.
// Stop asks ffmpeg to quit and joins the ring into one file in the background.
type FFmpeg struct {
	settings models.RecorderSettings
	log      *utils.ComponentLogger

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	exited     chan error
	stopping   bool
	segmentDir string
	lastOutput string
	flushed    chan struct{}
	flushErr   error
}

// NewFFmpeg creates a recorder. Empty settings fields take platform defaults.
func NewFFmpeg(settings models.RecorderSettings) *FFmpeg {
	if settings.FFmpegPath == "" {
		settings.FFmpegPath = "ffmpeg"
	}
	if settings.SegmentSeconds <= 0 {
		settings.SegmentSeconds = constants.DefaultSegmentSeconds
	}
	if settings.InputFormat == "" || settings.InputDevice == "" {
		format, device := defaultInput()
		if settings.InputFormat == "" {
			settings.InputFormat = format
		}
		if settings.InputDevice == "" {
			settings.InputDevice = device
		}
	}
	return &FFmpeg{
		settings: settings,
		log:      utils.NewComponentLogger("recorder"),
	}
}

func defaultInput() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", "1:none"
	case "windows":
		return "gdigrab", "desktop"
	default:
		display := os.Getenv("DISPLAY")
		if display == "" {
			display = ":0.0"
		}
		return "x11grab", display
	}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.settings.FFmpegPath)
	return err == nil
}

// IsActive reports whether a capture is running or still being flushed
// after Stop. Start fails with ErrRecorderBusy while it is true.
func (f *FFmpeg) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cmd != nil
}

// LastOutputPath is the file the most recent capture is joined into.
func (f *FFmpeg) LastOutputPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOutput
}

// Start launches ffmpeg writing the segment ring next to req.Path.
func (f *FFmpeg) Start(req models.RecordRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cmd != nil {
		return ErrRecorderBusy
	}

	segmentDir := SegmentDir(req.Path)
	if err := os.RemoveAll(segmentDir); err != nil {
		return fmt.Errorf("failed to clear segment directory: %w", err)
	}
	if err := utils.EnsureDir(segmentDir); err != nil {
		return err
	}

	args := BuildCaptureArgs(f.settings, req, segmentDir)
	// #nosec G204 -- binary and arguments come from the operator's config
	cmd := exec.Command(f.settings.FFmpegPath, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}

	f.log.Debug("Executing FFmpeg command", "args", args)
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(segmentDir)
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	f.cmd = cmd
	f.stdin = stdin
	f.exited = exited
	f.stopping = false
	f.segmentDir = segmentDir
	f.lastOutput = req.Path
	f.flushed = make(chan struct{})
	f.flushErr = nil

	f.log.Info("Screen capture started",
		"output", req.Path,
		"segments", SegmentCount(req.BufferSeconds, f.settings.SegmentSeconds),
		"segment_seconds", f.settings.SegmentSeconds,
	)
	return nil
}

// Stop asks ffmpeg to finish. The buffered segments are joined into
// LastOutputPath asynchronously; WaitFlushed reports completion.
func (f *FFmpeg) Stop() error {
	f.mu.Lock()
	if f.cmd == nil || f.stopping {
		f.mu.Unlock()
		return nil
	}
	f.stopping = true
	cmd, stdin, exited := f.cmd, f.stdin, f.exited
	segmentDir, output, flushed := f.segmentDir, f.lastOutput, f.flushed
	f.mu.Unlock()

	var stopErr error
	if _, err := io.WriteString(stdin, "q"); err != nil {
		stopErr = fmt.Errorf("failed to signal ffmpeg: %w", err)
	}
	_ = stdin.Close()

	go f.finish(cmd, exited, segmentDir, output, flushed)
	return stopErr
}

func (f *FFmpeg) finish(cmd *exec.Cmd, exited <-chan error, segmentDir, output string, flushed chan struct{}) {
	select {
	case err := <-exited:
		if err != nil {
			f.log.Debug("ffmpeg exited with error", "error", err)
		}
	case <-time.After(constants.RecorderExitTimeout):
		f.log.Warn("ffmpeg did not exit, killing it", "timeout", constants.RecorderExitTimeout)
		_ = cmd.Process.Kill()
		<-exited
	}

	err := f.join(segmentDir, output)
	if err != nil {
		f.log.Error("Failed to join capture segments", "output", output, "error", err)
	} else {
		f.log.Info("Screen capture flushed", "output", output)
	}

	f.mu.Lock()
	f.flushErr = err
	f.cmd = nil
	f.stdin = nil
	f.exited = nil
	f.stopping = false
	f.mu.Unlock()
	close(flushed)
}

// WaitFlushed blocks until the last Stop has produced its output file.
func (f *FFmpeg) WaitFlushed(ctx context.Context) error {
	f.mu.Lock()
	flushed := f.flushed
	f.mu.Unlock()
	if flushed == nil {
		return nil
	}

	select {
	case <-flushed:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.flushErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FFmpeg) join(segmentDir, output string) error {
	defer func() {
		if err := os.RemoveAll(segmentDir); err != nil {
			f.log.Warn("Failed to remove segment directory", "path", segmentDir, "error", err)
		}
	}()

	segments, err := ListSegments(segmentDir)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("no segments recorded in %s", segmentDir)
	}

	listPath := filepath.Join(segmentDir, "concat.txt")
	if err := utils.WriteFileAtomic(listPath, ConcatList(segments), 0o600); err != nil {
		return err
	}

	args := BuildConcatArgs(listPath, output)
	// #nosec G204 -- arguments are paths this recorder created
	cmd := exec.Command(f.settings.FFmpegPath, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}
	return nil
}

// SegmentDir is the hidden working directory holding the segment ring for output.
func SegmentDir(output string) string {
	return journal.SegmentDirFor(output)
}

// SegmentCount is the ring size needed to always hold bufferSeconds of video:
// one extra segment covers the one currently being written.
func SegmentCount(bufferSeconds float64, segmentSeconds int) int {
	if segmentSeconds <= 0 {
		segmentSeconds = constants.DefaultSegmentSeconds
	}
	return int(math.Ceil(bufferSeconds/float64(segmentSeconds))) + 1
}

// BuildCaptureArgs constructs the ffmpeg arguments for a segment-ring capture.
func BuildCaptureArgs(settings models.RecorderSettings, req models.RecordRequest, segmentDir string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-f", settings.InputFormat,
		"-framerate", strconv.Itoa(req.FPS),
	}

	// The cursor is the only overlay a desktop grab can leave out.
	if !req.RecordUI {
		switch settings.InputFormat {
		case "x11grab", "gdigrab":
			args = append(args, "-draw_mouse", "0")
		case "avfoundation":
			args = append(args, "-capture_cursor", "0")
		}
	}
	args = append(args, "-i", settings.InputDevice)

	audio := req.EnableAudio && settings.AudioFormat != "" && settings.AudioDevice != ""
	if audio {
		args = append(args, "-f", settings.AudioFormat, "-i", settings.AudioDevice)
	}

	bitrate := strconv.Itoa(req.Encoder.VideoBitrate)
	gop := req.FPS * settings.SegmentSeconds
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d", req.Width, req.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-b:v", bitrate,
		"-maxrate", bitrate,
		"-bufsize", strconv.Itoa(req.Encoder.VideoBitrate*2),
		"-g", strconv.Itoa(gop),
		"-keyint_min", strconv.Itoa(gop),
		"-sc_threshold", "0",
	)

	if audio {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-f", "segment",
		"-segment_time", strconv.Itoa(settings.SegmentSeconds),
		"-segment_wrap", strconv.Itoa(SegmentCount(req.BufferSeconds, settings.SegmentSeconds)),
		"-segment_format", "mp4",
		"-reset_timestamps", "1",
		"-y", filepath.Join(segmentDir, segmentPattern),
	)
	return args
}

// BuildConcatArgs joins the segments named in listPath into output without re-encoding.
func BuildConcatArgs(listPath, output string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y", output,
	}
}

// ListSegments returns the non-empty segments in dir, oldest first.
func ListSegments(dir string) ([]string, error) {
	type segment struct {
		path    string
		modTime time.Time
	}
	var segs []segment

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read segment directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != constants.VideoExtension {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		segs = append(segs, segment{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}

	sort.SliceStable(segs, func(i, j int) bool {
		if segs[i].modTime.Equal(segs[j].modTime) {
			return segs[i].path < segs[j].path
		}
		return segs[i].modTime.Before(segs[j].modTime)
	})

	paths := make([]string, len(segs))
	for i, s := range segs {
		paths[i] = s.path
	}
	return paths, nil
}

// ConcatList renders a concat demuxer script for the given files.
func ConcatList(paths []string) []byte {
	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`))
		sb.WriteString("'\n")
	}
	return []byte(sb.String())
}
