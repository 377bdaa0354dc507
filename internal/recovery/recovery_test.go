package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/darkace1998/crash-video-recorder/internal/journal"
	"github.com/darkace1998/crash-video-recorder/internal/metrics"
	"github.com/darkace1998/crash-video-recorder/models"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeEntry(t *testing.T, e *models.JournalEntry) string {
	t.Helper()
	path, err := journal.Write(e)
	if err != nil {
		t.Fatalf("journal.Write() error = %v", err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestScanEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "crash_video_a.mp4")
	writeFile(t, video, "kept")

	report := New(dir, nil).Scan()

	if report.Entries != 0 {
		t.Errorf("Expected zero entries, got %d", report.Entries)
	}
	if len(report.DeletedVideos) != 0 || len(report.DeletedJournals) != 0 {
		t.Errorf("Expected nothing deleted, got %+v", report)
	}
	if !exists(video) {
		t.Error("Video without a journal must not be touched")
	}
}

func TestScanMissingDirectory(t *testing.T) {
	report := New(filepath.Join(t.TempDir(), "absent"), nil).Scan()
	if report.Entries != 0 {
		t.Errorf("Expected zero entries, got %d", report.Entries)
	}
}

func TestScanRecordingWithExistingVideo(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "crash_video_a.mp4")
	writeFile(t, video, "partial frames")
	jpath := writeEntry(t, &models.JournalEntry{VideoPath: video, Status: models.StatusRecording})

	report := New(dir, nil).Scan()

	if exists(video) {
		t.Error("Expected stale video to be deleted")
	}
	if exists(jpath) {
		t.Error("Expected journal to be deleted")
	}
	if report.Outcomes[OutcomeStaleRecording] != 1 {
		t.Errorf("Expected one stale recording outcome, got %v", report.Outcomes)
	}
}

func TestScanRemovesLeftoverSegmentRing(t *testing.T) {
	tests := []struct {
		name   string
		status models.SessionStatus
	}{
		{"recording", models.StatusRecording},
		{"crash recorded", models.StatusCrashRecorded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			video := filepath.Join(dir, "crash_video_r.mp4")
			ring := journal.SegmentDirFor(video)
			for i := 0; i < 12; i++ {
				writeFile(t, filepath.Join(ring, fmt.Sprintf("seg_%03d.mp4", i)), "frames")
			}
			jpath := writeEntry(t, &models.JournalEntry{VideoPath: video, Status: tt.status})

			report := New(dir, nil).Scan()

			if exists(ring) {
				t.Error("Expected the segment ring to be removed")
			}
			if exists(jpath) {
				t.Error("Expected the journal to be removed")
			}
			if len(report.DeletedSegments) != 1 || report.DeletedSegments[0] != ring {
				t.Errorf("DeletedSegments = %v, want [%s]", report.DeletedSegments, ring)
			}
			if report.Outcomes[OutcomeFailed] != 0 {
				t.Errorf("Unexpected failure outcome: %v", report.Outcomes)
			}
		})
	}
}

func TestScanRecordingWithEmptyVideoIsDeletedRegardlessOfSize(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "crash_video_b.mp4")
	writeFile(t, video, "")
	jpath := writeEntry(t, &models.JournalEntry{VideoPath: video, Status: models.StatusRecording})

	New(dir, nil).Scan()

	if exists(video) || exists(jpath) {
		t.Error("Expected zero-byte video and journal to be deleted")
	}
}

func TestScanRecordingWithoutVideoPath(t *testing.T) {
	dir := t.TempDir()
	jpath := filepath.Join(dir, "orphan.session")
	writeFile(t, jpath, "Status=RECORDING\nFPS=30\n")

	report := New(dir, nil).Scan()

	if exists(jpath) {
		t.Error("Expected orphaned journal to be deleted")
	}
	if report.Outcomes[OutcomeOrphaned] != 1 {
		t.Errorf("Expected orphaned outcome, got %v", report.Outcomes)
	}
}

func TestScanRecordingWithMissingVideo(t *testing.T) {
	dir := t.TempDir()
	jpath := writeEntry(t, &models.JournalEntry{VideoPath: filepath.Join(dir, "gone.mp4"), Status: models.StatusRecording})

	report := New(dir, nil).Scan()

	if exists(jpath) {
		t.Error("Expected journal to be deleted when its video is gone")
	}
	if len(report.DeletedVideos) != 0 {
		t.Errorf("Expected no video deletions, got %v", report.DeletedVideos)
	}
}

func TestScanCrashRecorded(t *testing.T) {
	tests := []struct {
		name          string
		explicitCrash bool
		crashOnDisk   bool
	}{
		{"artifact present at derived path", false, true},
		{"artifact present at recorded path", true, true},
		{"artifact already gone", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			video := filepath.Join(dir, "crash_video_c.mp4")
			crash := journal.CrashVideoPathFor(video)
			entry := &models.JournalEntry{VideoPath: video, Status: models.StatusCrashRecorded}
			if tt.explicitCrash {
				crash = filepath.Join(dir, "elsewhere", "c_crash.mp4")
				entry.CrashVideoPath = crash
			}
			if tt.crashOnDisk {
				writeFile(t, crash, "final frames")
			}
			jpath := writeEntry(t, entry)

			report := New(dir, nil).Scan()

			if exists(crash) {
				t.Error("Expected crash artifact to be deleted")
			}
			if exists(jpath) {
				t.Error("Expected journal to be deleted")
			}
			if report.Outcomes[OutcomeCrashRecorded] != 1 {
				t.Errorf("Expected crash outcome, got %v", report.Outcomes)
			}
		})
	}
}

func TestScanCorruptJournal(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "crash_video_d.mp4")
	writeFile(t, video, "frames")
	jpath := filepath.Join(dir, "crash_video_d.session")
	writeFile(t, jpath, "VideoPath="+video+"\nSta")

	report := New(dir, nil).Scan()

	if exists(jpath) {
		t.Error("Expected corrupt journal to be deleted")
	}
	if !exists(video) {
		t.Error("Corrupt journal must not delete the referenced video")
	}
	if report.Outcomes[OutcomeCorrupt] != 1 {
		t.Errorf("Expected corrupt outcome, got %v", report.Outcomes)
	}
}

func TestScanKeepsFilesOutsideDirectory(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "notes.mp4")
	writeFile(t, outside, "not ours")
	jpath := filepath.Join(dir, "crash_video_e.session")
	writeFile(t, jpath, "VideoPath="+outside+"\nStatus=RECORDING\n")

	report := New(dir, nil).Scan()

	if !exists(outside) {
		t.Error("Recovery must not delete files outside the video directory")
	}
	if exists(jpath) {
		t.Error("Expected the journal to be removed")
	}
	if report.Outcomes[OutcomeCorrupt] != 1 {
		t.Errorf("Expected corrupt outcome, got %v", report.Outcomes)
	}
}

func TestScanNestedAndMetrics(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "old")
	v1 := filepath.Join(nested, "a.mp4")
	writeFile(t, v1, "x")
	writeEntry(t, &models.JournalEntry{VideoPath: v1, Status: models.StatusRecording})
	writeEntry(t, &models.JournalEntry{VideoPath: filepath.Join(dir, "b.mp4"), Status: models.StatusCrashRecorded})

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	report := New(dir, m).Scan()

	if report.Entries != 2 {
		t.Fatalf("Expected 2 entries, got %d", report.Entries)
	}
	if len(report.DeletedJournals) != 2 {
		t.Errorf("Expected 2 journals deleted, got %v", report.DeletedJournals)
	}
	if got := testutil.ToFloat64(m.RecoveryEntries.WithLabelValues(OutcomeStaleRecording)); got != 1 {
		t.Errorf("Expected 1 stale recording metric, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecoveryEntries.WithLabelValues(OutcomeCrashRecorded)); got != 1 {
		t.Errorf("Expected 1 crash recorded metric, got %v", got)
	}
}
