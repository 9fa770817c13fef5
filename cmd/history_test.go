package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/khanhnv2901/webscan/cmd/testutil"
	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	jsonstore "github.com/khanhnv2901/webscan/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/webscan/internal/nmap"
	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// seedScans stores one passive and one active scan and returns their IDs.
func seedScans(t *testing.T, env *testutil.TestEnv) (passiveID, activeID string) {
	t.Helper()

	store, err := jsonstore.NewScanRepository(env.ResultsDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	passive, err := scan.NewPassive("https://example.com", checker.CrawlResult{
		Findings: []checker.Finding{{
			ID:          "missing_content-security-policy",
			Title:       "Missing CSP",
			Severity:    checker.SeverityMedium,
			Remediation: "Add CSP header",
		}},
		Pages: []checker.PageRecord{{URL: "https://example.com", StatusCode: 200}},
	})
	if err != nil {
		t.Fatal(err)
	}
	active, err := scan.NewActive("example.com", "example.com", "443", nmap.Result{
		Output: testutil.NmapXML,
		Ports:  nmap.Parse(testutil.NmapXML),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []*scan.Scan{passive, active} {
		if err := store.Save(context.Background(), s); err != nil {
			t.Fatalf("save scan: %v", err)
		}
	}
	return passive.ID(), active.ID()
}

func TestHistoryCommand_Empty(t *testing.T) {
	setupCommandEnv(t)

	out, _, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No scans stored yet.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestHistoryCommand_List(t *testing.T) {
	env := setupCommandEnv(t)
	passiveID, activeID := seedScans(t, env)

	out, _, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{"KIND", passiveID, activeID, "1 page, 1 finding", "1 port"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	resetCommandState()
	out, _, err = executeCommand(t, "history", "--kind", "active", "-f", "json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var entries []historyEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != activeID || entries[0].Kind != scan.KindActive {
		t.Errorf("expected only the active scan, got %+v", entries)
	}

	resetCommandState()
	if _, _, err := executeCommand(t, "history", "--kind", "bogus"); err == nil {
		t.Error("expected an invalid --kind to fail")
	}
}

func TestHistoryShowCommand(t *testing.T) {
	env := setupCommandEnv(t)
	passiveID, activeID := seedScans(t, env)

	out, _, err := executeCommand(t, "history", "show", passiveID)
	if err != nil {
		t.Fatalf("history show failed: %v", err)
	}
	if !strings.Contains(out, "Passive scan: https://example.com") || !strings.Contains(out, "missing_content-security-policy") {
		t.Errorf("unexpected passive output:\n%s", out)
	}

	resetCommandState()
	out, _, err = executeCommand(t, "history", "show", activeID, "--raw")
	if err != nil {
		t.Fatalf("history show failed: %v", err)
	}
	if !strings.Contains(out, "Active scan: example.com") || !strings.Contains(out, "<nmaprun>") {
		t.Errorf("unexpected active output:\n%s", out)
	}
}

func TestHistoryShowCommand_Errors(t *testing.T) {
	setupCommandEnv(t)

	if _, _, err := executeCommand(t, "history", "show", "../../etc/passwd"); !errors.Is(err, scanerrors.ErrInvalidScanID) {
		t.Errorf("expected ErrInvalidScanID, got %v", err)
	}

	resetCommandState()
	if _, _, err := executeCommand(t, "history", "show", "2f1c1a5e-8a8e-4c7e-9d3f-2b7f3c2a9e11"); !errors.Is(err, scanerrors.ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}

func TestHistoryDeleteCommand(t *testing.T) {
	env := setupCommandEnv(t)
	passiveID, _ := seedScans(t, env)

	out, _, err := executeCommand(t, "history", "delete", passiveID)
	if err != nil {
		t.Fatalf("history delete failed: %v", err)
	}
	if !strings.Contains(out, "Deleted scan "+passiveID) {
		t.Errorf("unexpected output:\n%s", out)
	}

	resetCommandState()
	if _, _, err := executeCommand(t, "history", "delete", passiveID); !errors.Is(err, scanerrors.ErrScanNotFound) {
		t.Errorf("expected second delete to report ErrScanNotFound, got %v", err)
	}
}
