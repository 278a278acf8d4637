package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/x", http.MethodGet, 200, time.Millisecond)
	m.EntryWritten("income", "create")
	m.LedgerAdjustment("applied")
	m.EventPublished(false)
	m.CacheLookup("dashboard", true)
	m.RateLimited()
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestCounters(t *testing.T) {
	m := New()
	m.EntryWritten("expense", "delete")
	m.EntryWritten("expense", "delete")
	m.LedgerAdjustment("skipped")
	m.CacheLookup("dashboard", false)

	body := scrape(t, m)
	for _, want := range []string{
		`fintrack_entry_writes_total{kind="expense",op="delete"} 2`,
		`fintrack_ledger_adjustments_total{outcome="skipped"} 1`,
		`fintrack_cache_lookups_total{cache="dashboard",result="miss"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("/dashboard/{owner}", http.MethodGet, 200, 20*time.Millisecond)

	body := scrape(t, m)
	if !strings.Contains(body, `fintrack_http_requests_total{method="GET",route="/dashboard/{owner}",status="200"} 1`) {
		t.Errorf("request counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("runtime collector missing")
	}
}
