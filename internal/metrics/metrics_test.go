package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func TestSessionLifecycle(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSessionStarted(30)
	if got := testutil.ToFloat64(m.SessionActive); got != 1 {
		t.Errorf("Expected active gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.BufferSeconds); got != 30 {
		t.Errorf("Expected buffer gauge 30, got %v", got)
	}

	m.RecordSessionEnded()
	if got := testutil.ToFloat64(m.SessionActive); got != 0 {
		t.Errorf("Expected active gauge 0, got %v", got)
	}

	m.RecordSessionRejected("already_active")
	if got := testutil.ToFloat64(m.SessionsTotal.WithLabelValues("already_active")); got != 1 {
		t.Errorf("Expected one rejected session, got %v", got)
	}
}

func TestHousekeepingCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRetention(3, 1)
	m.RecordRecovery("recording_deleted")
	m.RecordRecovery("recording_deleted")
	m.RecordFinalize("ok", 0.2, 4096)
	m.RecordCrash()

	if got := testutil.ToFloat64(m.RetentionDeleted.WithLabelValues("deleted")); got != 3 {
		t.Errorf("Expected 3 deletions, got %v", got)
	}
	if got := testutil.ToFloat64(m.RetentionDeleted.WithLabelValues("failed")); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecoveryEntries.WithLabelValues("recording_deleted")); got != 2 {
		t.Errorf("Expected 2 recovery entries, got %v", got)
	}
	if got := testutil.ToFloat64(m.FinalizeTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 finalize, got %v", got)
	}
	if got := testutil.ToFloat64(m.CrashesTotal); got != 1 {
		t.Errorf("Expected 1 crash, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSessionStarted(10)
	m.RecordSessionEnded()
	m.RecordFinalize("ok", 1, 1)
	m.RecordAttachment("ok")
	m.RecordRetention(1, 0)
	m.RecordRecovery("x")
	m.RecordAPIRequest("/healthz", "GET", "200", 0.01)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordAttachment("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `crashvideo_attachments_total{result="ok"} 1`) {
		t.Errorf("metrics output missing attachment counter:\n%s", w.Body.String())
	}
}
