package advice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTableHasCoreKeys(t *testing.T) {
	table := Default()
	for _, key := range []string{"hsts", "csp", "xss", "jquery", "server", DefaultKey} {
		if table.answers[key] == "" {
			t.Errorf("expected built-in answer for %q", key)
		}
	}
}

func TestLookup(t *testing.T) {
	table := New(map[string]string{
		"hsts":    "hsts answer",
		"csp":     "csp answer",
		"xss":     "xss answer",
		"default": "default answer",
	})

	tests := []struct {
		question string
		want     string
	}{
		{"How do I enable HSTS?", "hsts answer"},
		{"what about CSP and XSS", "csp answer"}, // csp sorts before xss
		{"tell me about xss", "xss answer"},
		{"", "default answer"},
		{"something unrelated", "default answer"},
	}

	for _, tt := range tests {
		if got := table.Lookup(tt.question); got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.question, got, tt.want)
		}
	}
}

func TestLookup_MissingDefault(t *testing.T) {
	table := New(map[string]string{"csp": "csp answer"})
	if got := table.Lookup("nothing"); got != "" {
		t.Fatalf("expected empty answer without default entry, got %q", got)
	}
}

func TestForFinding(t *testing.T) {
	table := Default()

	answer, ok := table.ForFinding("missing_strict-transport-security")
	if !ok || !strings.Contains(answer, "Strict-Transport-Security") {
		t.Fatalf("expected HSTS advice, got %q (ok=%v)", answer, ok)
	}
	if _, ok := table.ForFinding("fetch_error"); ok {
		t.Fatal("fetch_error has no linked advice")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advice.json")
	if err := os.WriteFile(path, []byte(`{"HSTS": "custom", "default": "fallback"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := table.Lookup("hsts please"); got != "custom" {
		t.Errorf("expected keys to be lowercased, got %q", got)
	}
	if keys := table.Keys(); len(keys) != 2 || keys[0] != "default" {
		t.Errorf("unexpected keys %v", keys)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`["not", "an", "object"]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for non-object JSON")
	}

	table, err = Load("")
	if err != nil || table.Lookup("jquery") == "" {
		t.Errorf("empty path should load the built-in table, err=%v", err)
	}
}
