package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecomputeDone(t *testing.T) {
	m := New()
	m.RecomputeDone(2, 5, true)
	m.RecomputeDone(4, 9, false)

	if got := testutil.ToFloat64(m.recomputes.WithLabelValues("true")); got != 1 {
		t.Errorf("converged recomputes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.recomputes.WithLabelValues("false")); got != 1 {
		t.Errorf("non-converged recomputes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.passes); got != 6 {
		t.Errorf("passes = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.derivedWrites); got != 14 {
		t.Errorf("writes = %v, want 14", got)
	}
}

func TestLifecycleAndJobs(t *testing.T) {
	m := New()
	m.LifecycleOp("delete")
	m.LifecycleOp("delete")
	m.LifecycleOp("undo")
	m.JobFinished("bigquery_export", "succeeded")

	if got := testutil.ToFloat64(m.lifecycle.WithLabelValues("delete")); got != 2 {
		t.Errorf("delete ops = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.jobs.WithLabelValues("bigquery_export", "succeeded")); got != 1 {
		t.Errorf("jobs = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `imoveis_http_requests_total{code="200",method="GET"} 1`) {
		t.Errorf("request counter missing from output:\n%s", body)
	}
}
