package checker

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// legacyJQueryMarkers flag a jQuery 1.x/2.x reference. This is a literal substring
// match on the script URL, not a version comparison.
var legacyJQueryMarkers = []string{"/1.", "/2.", "jquery-1", "jquery-2"}

// ScriptSources returns the src attribute of every <script> element that has a non-empty one,
// in document order.
func ScriptSources(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var sources []string
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			sources = append(sources, src)
		}
	})
	return sources
}

// InspectScripts reports script references to deprecated jQuery builds.
func InspectScripts(html string) []Finding {
	var findings []Finding
	for _, src := range ScriptSources(html) {
		if !isLegacyJQuery(src) {
			continue
		}
		findings = append(findings, Finding{
			ID:          FindingDeprecatedJQuery,
			Title:       "Old jQuery detected",
			Severity:    SeverityLow,
			Remediation: "Upgrade jQuery to latest 3.x or remove dependency",
			Value:       src,
		})
	}
	return findings
}

func isLegacyJQuery(src string) bool {
	lower := strings.ToLower(src)
	if !strings.Contains(lower, "jquery") {
		return false
	}
	for _, marker := range legacyJQueryMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
