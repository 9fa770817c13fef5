package checker

import (
	"net/http"
	"strings"
)

// SecurityHeaderSpec describes one expected response header.
type SecurityHeaderSpec struct {
	Name  string // lowercase header name, also used in the finding ID
	Title string
}

// securityHeaderSpecs is checked in order; findings follow the same order.
var securityHeaderSpecs = []SecurityHeaderSpec{
	{Name: "strict-transport-security", Title: "HSTS"},
	{Name: "content-security-policy", Title: "CSP"},
	{Name: "x-frame-options", Title: "X-Frame-Options"},
	{Name: "x-content-type-options", Title: "X-Content-Type-Options"},
	{Name: "referrer-policy", Title: "Referrer-Policy"},
	{Name: "x-xss-protection", Title: "X-XSS-Protection"},
}

// ExpectedSecurityHeaders returns a copy of the expected header table.
func ExpectedSecurityHeaders() []SecurityHeaderSpec {
	return append([]SecurityHeaderSpec(nil), securityHeaderSpecs...)
}

// AnalyzeSecurityHeaders reports every missing expected header and a Server banner if present.
// Header names are compared case-insensitively; values are opaque.
func AnalyzeSecurityHeaders(headers http.Header) []Finding {
	present := lowerHeaderIndex(headers)
	findings := make([]Finding, 0, len(securityHeaderSpecs)+1)

	for _, spec := range securityHeaderSpecs {
		if _, ok := present[spec.Name]; ok {
			continue
		}
		findings = append(findings, Finding{
			ID:          missingHeaderPrefix + spec.Name,
			Title:       "Missing " + spec.Title,
			Severity:    SeverityMedium,
			Remediation: "Add " + spec.Title + " header",
			Header:      spec.Name,
		})
	}

	if server, ok := present["server"]; ok {
		findings = append(findings, Finding{
			ID:          FindingServerBanner,
			Title:       "Server header present (fingerprinting)",
			Severity:    SeverityLow,
			Remediation: "Remove or obfuscate Server header",
			Value:       server,
		})
	}

	return findings
}

// lowerHeaderIndex maps lowercase header names to their first value.
// http.Header keys are canonicalized by the client, but maps built by hand may not be.
func lowerHeaderIndex(headers http.Header) map[string]string {
	index := make(map[string]string, len(headers))
	for name, values := range headers {
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		index[strings.ToLower(name)] = value
	}
	return index
}
