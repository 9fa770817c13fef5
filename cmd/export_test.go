package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

func TestExportCommand_Formats(t *testing.T) {
	tests := []struct {
		format   string
		filename string
		check    func(t *testing.T, body []byte)
	}{
		{
			format:   "csv",
			filename: "webscan_https___example.com.csv",
			check: func(t *testing.T, body []byte) {
				if !strings.Contains(string(body), "missing_content-security-policy") {
					t.Errorf("csv missing finding:\n%s", body)
				}
			},
		},
		{
			format:   "md",
			filename: "webscan_https___example.com.md",
			check: func(t *testing.T, body []byte) {
				if !strings.Contains(string(body), "https://example.com") {
					t.Errorf("markdown missing target:\n%s", body)
				}
			},
		},
		{
			format:   "markdown",
			filename: "webscan_https___example.com.md",
			check:    func(t *testing.T, body []byte) {},
		},
		{
			format:   "pdf",
			filename: "webscan_https___example.com.pdf",
			check: func(t *testing.T, body []byte) {
				if !bytes.HasPrefix(body, []byte("%PDF")) {
					t.Errorf("expected a PDF document, got %q", body[:min(len(body), 16)])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			env := setupCommandEnv(t)
			passiveID, _ := seedScans(t, env)
			outDir := filepath.Join(env.TmpDir, "reports")

			out, _, err := executeCommand(t, "export", "--id", passiveID, "--format", tt.format, "--dir", outDir)
			if err != nil {
				t.Fatalf("export failed: %v", err)
			}
			if !strings.Contains(out, "Report written to") {
				t.Errorf("unexpected output:\n%s", out)
			}
			tt.check(t, env.ReadFile(filepath.Join("reports", tt.filename)))
		})
	}
}

func TestExportCommand_ActiveToStdout(t *testing.T) {
	env := setupCommandEnv(t)
	_, activeID := seedScans(t, env)

	out, _, err := executeCommand(t, "export", "--id", activeID, "-f", "csv", "-o", "-")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "443/tcp open https") {
		t.Errorf("expected port row in csv:\n%s", out)
	}
}

func TestExportCommand_ExplicitOutput(t *testing.T) {
	env := setupCommandEnv(t)
	passiveID, _ := seedScans(t, env)
	target := filepath.Join(env.TmpDir, "custom", "report.md")

	if _, _, err := executeCommand(t, "export", "--id", passiveID, "--output", target); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	env.MustExist(filepath.Join("custom", "report.md"))
}

func TestExportCommand_Errors(t *testing.T) {
	env := setupCommandEnv(t)
	passiveID, _ := seedScans(t, env)

	var formatErr *UnsupportedFormatError
	if _, _, err := executeCommand(t, "export", "--id", passiveID, "--format", "docx"); !errors.As(err, &formatErr) {
		t.Errorf("expected UnsupportedFormatError, got %v", err)
	}

	resetCommandState()
	if _, _, err := executeCommand(t, "export"); err == nil || !strings.Contains(err.Error(), "id") {
		t.Errorf("expected missing --id to fail, got %v", err)
	}

	resetCommandState()
	if _, _, err := executeCommand(t, "export", "--id", "not-a-uuid"); !errors.Is(err, scanerrors.ErrInvalidScanID) {
		t.Errorf("expected ErrInvalidScanID, got %v", err)
	}
}
