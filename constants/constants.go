// Package constants holds shared names, limits and defaults for crash video recording.
package constants

import "time"

// Session statuses as written to the journal
const (
	SessionStatusRecording     = "RECORDING"
	SessionStatusCrashRecorded = "CRASH_RECORDED"
)

// Artifact naming
const (
	VideoExtension       = ".mp4"
	JournalExtension     = ".session"
	CrashVideoSuffix     = "_crash"
	VideoFilePrefix      = "crash_video_"
	VideoTimestampLayout = "20060102_150405"
	VideoMIMEType        = "video/mp4"
	CrashVideoDirName    = "CrashVideos"
	SpoolDirName         = ".spool" // hidden directories are skipped by retention
	SegmentDirSuffix     = ".segments"
	LockFileName         = ".crash-video.lock"
)

// Recording limits
const (
	MinBufferSeconds = 5.0
	MaxBufferSeconds = 600.0
	MinTargetFPS     = 10
	MaxTargetFPS     = 120
	MinQualityPreset = 0
	MaxQualityPreset = 100
	MinVideoBitrate  = 2_000_000
	MaxVideoBitrate  = 10_000_000
)

// Default values
const (
	DefaultBufferSeconds   = 30.0
	DefaultTargetFPS       = 30
	DefaultWidth           = 1280
	DefaultHeight          = 720
	DefaultQualityPreset   = 50
	DefaultMaxVideosToKeep = 10
	DefaultSettleDelay     = 500 * time.Millisecond
	DefaultFlushTimeout    = 15 * time.Second // longer than RecorderExitTimeout plus the segment join
	DefaultSegmentSeconds  = 2
	RecorderExitTimeout    = 10 * time.Second
	DefaultSentryFlush     = 2 * time.Second
	DefaultListenAddr      = "127.0.0.1:9090"
)

// Recording profiles
const (
	ProfileDesktop = "desktop"
	ProfileMobile  = "mobile"
	ProfileCustom  = "custom"
)

// Reporter types
const (
	ReporterSpool  = "spool"
	ReporterSentry = "sentry"
	ReporterNone   = "none"
)

// Log levels
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)
