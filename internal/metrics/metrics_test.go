package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTurnCounts(t *testing.T) {
	m := New("test")
	m.ObserveTurn("feedback", "speech", 200*time.Millisecond)
	m.ObserveTurn("feedback", "speech", time.Second)
	m.ObserveTurn("response", "text", time.Second)

	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("feedback", "speech")); got != 2 {
		t.Fatalf("feedback turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("response", "text")); got != 1 {
		t.Fatalf("response turns = %v, want 1", got)
	}
}

func TestEvictedIgnoresZero(t *testing.T) {
	m := New("test")
	m.Evicted(0)
	m.Evicted(3)
	if got := testutil.ToFloat64(m.SessionsEvicted); got != 3 {
		t.Fatalf("evicted = %v, want 3", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTurn("feedback", "speech", time.Second)
	m.GenerationFailed()
	m.Degraded("timeout")
	m.SetActiveSessions(4)
	m.ConnectionOpened()
	m.ConnectionClosed()
	if m.Registry() != nil {
		t.Fatal("nil metrics should have no registry")
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New("tilawa")
	m.SessionCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tilawa_sessions_created_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
