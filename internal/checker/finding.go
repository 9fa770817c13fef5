package checker

// Severity is the qualitative risk level of a Finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding IDs emitted by the passive auditors.
const (
	FindingFetchError       = "fetch_error"
	FindingServerBanner     = "server_banner"
	FindingDeprecatedJQuery = "deprecated_jquery"
	missingHeaderPrefix     = "missing_"
)

// Finding is a single audit result. Header and Value carry check-specific evidence.
type Finding struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Remediation string   `json:"remediation" yaml:"remediation"`
	Header      string   `json:"header,omitempty" yaml:"header,omitempty"`
	Value       string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// PageRecord is written once per successfully fetched URL.
type PageRecord struct {
	URL        string `json:"url" yaml:"url"`
	StatusCode int    `json:"status_code" yaml:"status_code"`
}

// CrawlResult is the outcome of a passive scan. Findings and Pages keep discovery order.
type CrawlResult struct {
	Findings []Finding    `json:"results" yaml:"results"`
	Pages    []PageRecord `json:"pages" yaml:"pages"`
	Duration float64      `json:"duration" yaml:"duration"` // seconds
}

// CountBySeverity tallies findings per severity.
func (r CrawlResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
