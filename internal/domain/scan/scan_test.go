package scan

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/nmap"
	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

func TestNewPassive(t *testing.T) {
	if _, err := NewPassive("", checker.CrawlResult{}); err == nil {
		t.Fatal("expected error for empty target")
	}

	s, err := NewPassive("https://example.com", checker.CrawlResult{
		Pages:    []checker.PageRecord{{URL: "https://example.com", StatusCode: 200}},
		Findings: []checker.Finding{{ID: "server_banner"}, {ID: "missing_x-frame-options"}},
	})
	if err != nil {
		t.Fatalf("NewPassive: %v", err)
	}
	if _, err := uuid.Parse(s.ID()); err != nil {
		t.Errorf("expected uuid id, got %q", s.ID())
	}
	if s.Kind() != KindPassive || s.Active() != nil || len(s.Findings()) != 2 {
		t.Errorf("unexpected scan %+v", s)
	}
	if s.CreatedAt().Location().String() != "UTC" {
		t.Errorf("expected UTC timestamp, got %v", s.CreatedAt())
	}
	if got := s.Summary(); got != "1 page, 2 findings" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestNewActive(t *testing.T) {
	if _, err := NewActive("x", "", "", nmap.Result{}); !errors.Is(err, scanerrors.ErrEmptyTarget) {
		t.Fatalf("expected ErrEmptyTarget for empty host, got %v", err)
	}

	s, err := NewActive("", "example.com", "", nmap.Result{Err: scanerrors.NewScanError(scanerrors.KindToolTimeout, nil)})
	if err != nil {
		t.Fatalf("NewActive: %v", err)
	}
	if s.Target() != "example.com" {
		t.Errorf("target should default to host, got %q", s.Target())
	}
	if s.Findings() != nil {
		t.Errorf("active scans carry no passive findings")
	}
	if got := s.Summary(); got != "failed: nmap timeout" {
		t.Errorf("unexpected summary %q", got)
	}
}
