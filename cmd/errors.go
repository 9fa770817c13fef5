package cmd

import (
	"fmt"
	"strings"

	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// ConsentRequiredError is returned when an active scan is requested without --consent.
type ConsentRequiredError struct {
	Host string
}

func (e *ConsentRequiredError) Error() string {
	if e.Host == "" {
		return "active scans require --consent"
	}
	return fmt.Sprintf("active scan of %s requires --consent (only scan hosts you are authorised to test)", e.Host)
}

func (e *ConsentRequiredError) Unwrap() error {
	return scanerrors.ErrConsentRequired
}

// UnsupportedFormatError reports an unknown --format value.
type UnsupportedFormatError struct {
	Format  string
	Allowed []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("invalid format: %s (must be %s)", e.Format, strings.Join(e.Allowed, ", "))
}

func (e *UnsupportedFormatError) Unwrap() error {
	return scanerrors.ErrInvalidInput
}

// ScanFailedError signals that a scan ran but produced no usable result. The
// result has already been printed; the error only sets the exit status.
type ScanFailedError struct {
	Target string
	Err    error
}

func (e *ScanFailedError) Error() string {
	return fmt.Sprintf("scan of %s failed: %v", e.Target, e.Err)
}

func (e *ScanFailedError) Unwrap() error {
	return e.Err
}
