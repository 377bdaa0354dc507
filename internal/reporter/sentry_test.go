package reporter

import (
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/darkace1998/crash-video-recorder/constants"
)

func newTestHub(t *testing.T) (*sentry.Hub, *[]*sentry.Event, *sync.Mutex) {
	t.Helper()
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return event
		},
	})
	if err != nil {
		t.Fatalf("sentry.NewClient() error = %v", err)
	}
	return sentry.NewHub(client, sentry.NewScope()), &events, &mu
}

func TestSentryAttachmentRidesWithEvent(t *testing.T) {
	hub, events, mu := newTestHub(t)
	s := NewSentryWithHub(hub, time.Second)

	if !s.IsEnabled() {
		t.Fatal("Expected sentry reporter to be enabled")
	}

	a, err := s.MakeAttachment(writeVideo(t, "crash_video_b.mp4", "frames"), "crash_video_b.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("MakeAttachment() error = %v", err)
	}
	if err := s.AddAttachment(a); err != nil {
		t.Fatalf("AddAttachment() error = %v", err)
	}

	if _, err := s.CaptureEvent("assertion failed"); err != nil {
		t.Fatalf("CaptureEvent() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(*events))
	}
	ev := (*events)[0]
	if len(ev.Attachments) != 1 {
		t.Fatalf("Expected 1 attachment on the event, got %d", len(ev.Attachments))
	}
	got := ev.Attachments[0]
	if got.Filename != "crash_video_b.mp4" || got.ContentType != "video/mp4" || string(got.Payload) != "frames" {
		t.Errorf("Unexpected attachment %+v", got)
	}
}

func TestSentryDisabledWithoutClient(t *testing.T) {
	s := NewSentryWithHub(sentry.NewHub(nil, sentry.NewScope()), time.Second)
	if s.IsEnabled() {
		t.Error("Hub without client should not be enabled")
	}
}

func TestSentryFlushTimeoutDefault(t *testing.T) {
	hub, _, _ := newTestHub(t)

	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"unset", 0, constants.DefaultSentryFlush},
		{"negative", -time.Second, constants.DefaultSentryFlush},
		{"configured", 3 * time.Second, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewSentryWithHub(hub, tt.in).flushTimeout; got != tt.want {
				t.Errorf("flushTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}
