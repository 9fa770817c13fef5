package errors

import "errors"

// Kind classifies a scan failure so callers can branch without matching messages.
type Kind string

const (
	KindFetch           Kind = "fetch_error"
	KindToolUnavailable Kind = "tool_unavailable"
	KindToolTimeout     Kind = "tool_timeout"
	KindToolInvocation  Kind = "tool_invocation"
	KindParse           Kind = "parse_error"
)

// Scan errors
var (
	ErrFetch           = errors.New("fetch failed")
	ErrToolUnavailable = errors.New("nmap not installed on system")
	ErrToolTimeout     = errors.New("nmap timeout")
	ErrToolInvocation  = errors.New("nmap invocation failed")
	ErrParse           = errors.New("malformed scan output")
)

// Validation errors
var (
	ErrEmptyTarget     = errors.New("target cannot be empty")
	ErrConsentRequired = errors.New("consent required")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidScanID   = errors.New("invalid scan ID")
)

// Repository errors
var (
	ErrScanNotFound          = errors.New("scan not found")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
)

var kindSentinels = map[Kind]error{
	KindFetch:           ErrFetch,
	KindToolUnavailable: ErrToolUnavailable,
	KindToolTimeout:     ErrToolTimeout,
	KindToolInvocation:  ErrToolInvocation,
	KindParse:           ErrParse,
}

// ScanError carries the kind of a scan failure together with its cause.
type ScanError struct {
	Kind Kind
	Err  error
}

// NewScanError builds a ScanError. A nil cause falls back to the kind's sentinel.
func NewScanError(kind Kind, err error) *ScanError {
	if err == nil {
		err = kindSentinels[kind]
	}
	return &ScanError{Kind: kind, Err: err}
}

func (e *ScanError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports a match against the sentinel of the same kind, so
// errors.Is(scanErr, ErrToolTimeout) holds even when the cause is an *exec.ExitError.
func (e *ScanError) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf extracts the Kind of err, or "" when err is not a ScanError.
func KindOf(err error) Kind {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Kind
	}
	return ""
}
