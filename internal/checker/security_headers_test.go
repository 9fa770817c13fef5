package checker

import (
	"net/http"
	"testing"
)

func allSecurityHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	headers.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'")
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	headers.Set("X-XSS-Protection", "1; mode=block")
	return headers
}

func TestAnalyzeSecurityHeaders_AllPresent(t *testing.T) {
	findings := AnalyzeSecurityHeaders(allSecurityHeaders())

	if len(findings) != 0 {
		t.Fatalf("expected no findings with all headers present, got %v", findings)
	}
}

func TestAnalyzeSecurityHeaders_OnlyContentType(t *testing.T) {
	headers := http.Header{"content-type": []string{"text/html"}}

	findings := AnalyzeSecurityHeaders(headers)

	want := []string{
		"missing_strict-transport-security",
		"missing_content-security-policy",
		"missing_x-frame-options",
		"missing_x-content-type-options",
		"missing_referrer-policy",
		"missing_x-xss-protection",
	}
	if len(findings) != len(want) {
		t.Fatalf("expected %d findings, got %d (%v)", len(want), len(findings), findings)
	}
	for i, id := range want {
		if findings[i].ID != id {
			t.Errorf("finding %d: want %s, got %s", i, id, findings[i].ID)
		}
		if findings[i].Severity != SeverityMedium {
			t.Errorf("finding %d: expected medium severity, got %s", i, findings[i].Severity)
		}
	}
	if findings[0].Title != "Missing HSTS" || findings[0].Remediation != "Add HSTS header" {
		t.Errorf("unexpected HSTS finding text: %+v", findings[0])
	}
	if findings[1].Header != "content-security-policy" {
		t.Errorf("expected header evidence, got %q", findings[1].Header)
	}
}

func TestAnalyzeSecurityHeaders_MissingCount(t *testing.T) {
	specs := ExpectedSecurityHeaders()
	for k := 0; k <= len(specs); k++ {
		headers := http.Header{}
		// drop the first k headers
		for _, spec := range specs[k:] {
			headers.Set(spec.Name, "x")
		}

		missing := 0
		for _, f := range AnalyzeSecurityHeaders(headers) {
			if f.ID != FindingServerBanner {
				missing++
			}
		}
		if missing != k {
			t.Errorf("k=%d: expected %d missing-header findings, got %d", k, k, missing)
		}
	}
}

func TestAnalyzeSecurityHeaders_ServerBanner(t *testing.T) {
	headers := allSecurityHeaders()
	headers.Set("Server", "nginx/1.18.0")

	findings := AnalyzeSecurityHeaders(headers)

	if len(findings) != 1 {
		t.Fatalf("expected a single finding, got %v", findings)
	}
	f := findings[0]
	if f.ID != FindingServerBanner || f.Severity != SeverityLow {
		t.Errorf("unexpected finding %+v", f)
	}
	if f.Value != "nginx/1.18.0" {
		t.Errorf("expected banner value, got %q", f.Value)
	}
}

func TestAnalyzeSecurityHeaders_CaseInsensitive(t *testing.T) {
	headers := http.Header{
		"STRICT-TRANSPORT-SECURITY": []string{"max-age=1"},
		"content-security-policy":   []string{"default-src 'none'"},
		"X-Frame-Options":           []string{"DENY"},
		"x-content-type-options":    []string{"nosniff"},
		"Referrer-Policy":           []string{"no-referrer"},
		"x-xss-protection":          []string{"0"},
		"SERVER":                    []string{"Apache"},
	}

	findings := AnalyzeSecurityHeaders(headers)

	if len(findings) != 1 || findings[0].ID != FindingServerBanner || findings[0].Value != "Apache" {
		t.Fatalf("expected only a server banner finding, got %v", findings)
	}
}

func TestAnalyzeSecurityHeaders_EmptyValueCountsAsPresent(t *testing.T) {
	headers := allSecurityHeaders()
	headers["X-Frame-Options"] = []string{""}

	if findings := AnalyzeSecurityHeaders(headers); len(findings) != 0 {
		t.Fatalf("expected header with empty value to count as present, got %v", findings)
	}
}
