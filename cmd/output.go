package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/nmap"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var outputFormats = []string{outputText, outputJSON, outputYAML}

func parseOutputFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "yml" {
		f = outputYAML
	}
	for _, allowed := range outputFormats {
		if f == allowed {
			return f, nil
		}
	}
	return "", &UnsupportedFormatError{Format: format, Allowed: outputFormats}
}

// writeStructured renders v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return &UnsupportedFormatError{Format: format, Allowed: outputFormats}
}

// scanOutput wraps a result with its stored ID for structured output.
type scanOutput struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Target string `json:"target" yaml:"target"`
	Result any    `json:"result" yaml:"result"`
}

func printPassiveResult(w io.Writer, format, target, id string, result checker.CrawlResult) error {
	if format != outputText {
		return writeStructured(w, format, scanOutput{ID: id, Target: target, Result: result})
	}

	fmt.Fprintf(w, "%s %s\n", colorBold("Passive scan:"), target)
	fmt.Fprintf(w, "Pages fetched: %d   Findings: %d   Duration: %.2fs\n", len(result.Pages), len(result.Findings), result.Duration)
	if id != "" {
		fmt.Fprintf(w, "Scan ID: %s\n", id)
	}

	if len(result.Pages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, colorBold("Pages"))
		for _, p := range result.Pages {
			fmt.Fprintf(w, "  [%d] %s\n", p.StatusCode, p.URL)
		}
	}

	fmt.Fprintln(w)
	if len(result.Findings) == 0 {
		fmt.Fprintln(w, colorSuccess("No findings."))
		return nil
	}

	counts := result.CountBySeverity()
	fmt.Fprintf(w, "%s  high:%d medium:%d low:%d\n", colorBold("Findings"),
		counts[checker.SeverityHigh], counts[checker.SeverityMedium], counts[checker.SeverityLow])

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tID\tTITLE\tREMEDIATION")
	for _, f := range sortedFindings(result.Findings) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatSeverityWithColor(f.Severity), f.ID, f.Title, f.Remediation)
	}
	return tw.Flush()
}

// sortedFindings orders by severity, high first, keeping discovery order otherwise.
func sortedFindings(findings []checker.Finding) []checker.Finding {
	rank := map[checker.Severity]int{checker.SeverityHigh: 0, checker.SeverityMedium: 1, checker.SeverityLow: 2}
	sorted := append([]checker.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, ok := rank[sorted[i].Severity]
		if !ok {
			ri = len(rank)
		}
		rj, ok := rank[sorted[j].Severity]
		if !ok {
			rj = len(rank)
		}
		return ri < rj
	})
	return sorted
}

func printActiveResult(w io.Writer, format, host, id string, result nmap.Result, showRaw bool) error {
	if format != outputText {
		return writeStructured(w, format, scanOutput{ID: id, Target: host, Result: result})
	}

	fmt.Fprintf(w, "%s %s\n", colorBold("Active scan:"), host)
	if result.Failed() {
		fmt.Fprintf(w, "%s %s (%s)\n", colorError("Scan failed:"), result.Err.Error(), result.ErrorKind())
		return nil
	}
	fmt.Fprintf(w, "Ports: %d   Duration: %.2fs\n", len(result.Ports), result.Duration)
	if id != "" {
		fmt.Fprintf(w, "Scan ID: %s\n", id)
	}
	if result.Err != nil {
		fmt.Fprintf(w, "%s %s\n", colorWarn("Output could not be parsed:"), result.Err.Error())
	}

	if len(result.Ports) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PORT\tSTATE\tSERVICE")
		for _, p := range result.Ports {
			fmt.Fprintf(tw, "%s/%s\t%s\t%s\n", p.Port, p.Protocol, formatPortState(p.State), p.Service)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if showRaw || result.Err != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, result.Output)
	}
	return nil
}
