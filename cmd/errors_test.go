package cmd

import (
	"errors"
	"testing"

	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

func TestConsentRequiredError(t *testing.T) {
	err := &ConsentRequiredError{Host: "example.com"}
	want := "active scan of example.com requires --consent (only scan hosts you are authorised to test)"
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
	if !errors.Is(err, scanerrors.ErrConsentRequired) {
		t.Fatal("expected ConsentRequiredError to wrap ErrConsentRequired")
	}

	if got := (&ConsentRequiredError{}).Error(); got != "active scans require --consent" {
		t.Fatalf("unexpected message without host: %s", got)
	}
}

func TestUnsupportedFormatError(t *testing.T) {
	err := &UnsupportedFormatError{Format: "xml", Allowed: []string{"csv", "pdf", "md"}}
	want := "invalid format: xml (must be csv, pdf, md)"
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
	if !errors.Is(err, scanerrors.ErrInvalidInput) {
		t.Fatal("expected UnsupportedFormatError to wrap ErrInvalidInput")
	}
}

func TestScanFailedError(t *testing.T) {
	cause := scanerrors.NewScanError(scanerrors.KindToolTimeout, nil)
	err := &ScanFailedError{Target: "example.com", Err: cause}
	if err.Error() != "scan of example.com failed: nmap timeout" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, scanerrors.ErrToolTimeout) {
		t.Fatal("expected ScanFailedError to unwrap to the scan error kind")
	}
}
