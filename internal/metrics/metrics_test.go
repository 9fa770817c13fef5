package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_CrawlObserver(t *testing.T) {
	r := NewRecorder("")

	r.PageFetched(checker.PageRecord{URL: "https://example.com", StatusCode: 200})
	r.PageFetched(checker.PageRecord{URL: "https://example.com/missing", StatusCode: 404})
	r.PageFetched(checker.PageRecord{URL: "https://example.com/ok", StatusCode: 204})
	r.FetchFailed("https://example.com/down", errors.New("connection refused"))
	r.FindingsRecorded([]checker.Finding{
		{ID: "server_banner"},
		{ID: "missing_x-frame-options"},
		{ID: "server_banner"},
	})

	if got := testutil.ToFloat64(r.pagesFetched.WithLabelValues("2xx")); got != 2 {
		t.Errorf("2xx pages = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.pagesFetched.WithLabelValues("4xx")); got != 1 {
		t.Errorf("4xx pages = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.fetchFailures); got != 1 {
		t.Errorf("fetch failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.findingsTotal.WithLabelValues("server_banner")); got != 2 {
		t.Errorf("server_banner findings = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.findingsTotal.WithLabelValues(checker.FindingFetchError)); got != 1 {
		t.Errorf("fetch_error findings = %v, want 1", got)
	}
}

func TestRecorder_ObserveScan(t *testing.T) {
	r := NewRecorder("test")

	r.ObserveScan("passive", false, 1.5)
	r.ObserveScan("active", true, 180)
	r.ObserveScan("active", false, 20)

	if got := testutil.ToFloat64(r.scansTotal.WithLabelValues("active", OutcomeFailure)); got != 1 {
		t.Errorf("failed active scans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.scansTotal.WithLabelValues("active", OutcomeSuccess)); got != 1 {
		t.Errorf("successful active scans = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.scanDuration); got != 2 {
		t.Errorf("duration series = %v, want 2", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder("")
	r.ObserveRequest("/api/v1/health", http.StatusOK)
	r.ObserveScan("passive", false, 0.2)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`webscan_api_requests_total{code="200",route="/api/v1/health"} 1`,
		`webscan_scans_total{kind="passive",outcome="success"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in exposition output", want)
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 301: "3xx", 503: "5xx", 0: "other", 999: "other"}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}
