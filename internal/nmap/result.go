package nmap

import (
	"encoding/json"
	"errors"

	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// PortRecord is one <port> element of the scan output.
type PortRecord struct {
	Port     string `json:"port" yaml:"port"`
	Protocol string `json:"protocol" yaml:"protocol"`
	State    string `json:"state" yaml:"state"`
	Service  string `json:"service" yaml:"service"`
	Raw      string `json:"raw" yaml:"raw"`
}

// Result is the outcome of an active scan. When Failed reports true only Err,
// Duration and an empty Ports are meaningful. A parse failure keeps Output and
// sets Err with KindParse.
type Result struct {
	Output   string
	Ports    []PortRecord
	Duration float64 // seconds
	Err      *scanerrors.ScanError
}

// Failed reports whether the scan produced no usable output.
func (r Result) Failed() bool {
	return r.Err != nil && r.Err.Kind != scanerrors.KindParse
}

// ErrorKind returns the failure kind, or "" on a clean run.
func (r Result) ErrorKind() scanerrors.Kind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

type resultWire struct {
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind  string       `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ParseError string       `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
	Output     string       `json:"output,omitempty" yaml:"output,omitempty"`
	Ports      []PortRecord `json:"ports" yaml:"ports"`
	Duration   float64      `json:"duration" yaml:"duration"`
}

func (r Result) wire() resultWire {
	w := resultWire{
		Ports:    r.Ports,
		Duration: r.Duration,
	}
	if w.Ports == nil {
		w.Ports = []PortRecord{}
	}
	switch {
	case r.Failed():
		w.Error = r.Err.Error()
		w.ErrorKind = string(r.Err.Kind)
		w.Ports = []PortRecord{}
	case r.Err != nil:
		w.Output = r.Output
		w.ErrorKind = string(r.Err.Kind)
		w.ParseError = r.Err.Error()
	default:
		w.Output = r.Output
	}
	return w
}

// MarshalJSON renders either {error, error_kind, ports, duration} or {output, ports, duration}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// MarshalYAML mirrors MarshalJSON.
func (r Result) MarshalYAML() (interface{}, error) {
	return r.wire(), nil
}

// UnmarshalJSON restores a Result written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{
		Output:   w.Output,
		Ports:    w.Ports,
		Duration: w.Duration,
	}
	switch {
	case w.Error != "":
		r.Err = scanerrors.NewScanError(scanerrors.Kind(w.ErrorKind), errors.New(w.Error))
	case w.ParseError != "":
		r.Err = scanerrors.NewScanError(scanerrors.KindParse, errors.New(w.ParseError))
	}
	return nil
}
