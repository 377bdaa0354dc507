package capture

import (
	"context"

	"github.com/darkace1998/crash-video-recorder/models"
)

// Recorder is the screen-recording capability. It owns the circular buffer;
// the controller only starts it, stops it and reads back where it wrote.
type Recorder interface {
	IsActive() bool
	Start(req models.RecordRequest) error
	// Stop requests a flush of the buffer to LastOutputPath. The flush may
	// complete asynchronously.
	Stop() error
	LastOutputPath() string
}

// FlushWaiter is implemented by recorders that can signal flush completion.
// Without it the controller falls back to a fixed settle delay.
type FlushWaiter interface {
	WaitFlushed(ctx context.Context) error
}

// State of a Controller.
type State int

// Controller states
const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}
