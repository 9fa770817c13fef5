package checker

import "testing"

func TestInspectScripts_OldJQuery(t *testing.T) {
	html := `<script src="/js/jquery-1.9.1.min.js"></script>`

	findings := InspectScripts(html)

	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %v", findings)
	}
	f := findings[0]
	if f.ID != FindingDeprecatedJQuery {
		t.Errorf("expected deprecated_jquery, got %s", f.ID)
	}
	if f.Value != "/js/jquery-1.9.1.min.js" {
		t.Errorf("unexpected value %q", f.Value)
	}
	if f.Remediation != "Upgrade jQuery to latest 3.x or remove dependency" {
		t.Errorf("unexpected remediation %q", f.Remediation)
	}
}

func TestInspectScripts_Heuristic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"cdn path 1.x", "https://code.jquery.com/1.12.4/jquery.min.js", true},
		{"cdn path 2.x", "//ajax.googleapis.com/ajax/libs/jquery/2.2.4/jquery.min.js", true},
		{"filename 2.x", "/static/jquery-2.1.0.js", true},
		{"uppercase", "/JS/JQUERY-1.4.JS", true},
		{"modern", "/js/jquery-3.7.1.min.js", false},
		{"no version", "/js/jquery.min.js", false},
		{"not jquery", "/js/lodash/1.0.0/lodash.js", false},
		// literal rule: any "/1." segment counts, even when unrelated to jQuery's version
		{"unrelated version segment", "/cdn/v/1.0/jquery.js", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := `<html><head><script src="` + tt.src + `"></script></head></html>`
			got := len(InspectScripts(html)) == 1
			if got != tt.want {
				t.Errorf("src %q: want flagged=%v, got %v", tt.src, tt.want, got)
			}
		})
	}
}

func TestInspectScripts_IgnoresInlineAndEmpty(t *testing.T) {
	html := `<script>var jquery = "/1.";</script><script src=""></script>`

	if findings := InspectScripts(html); len(findings) != 0 {
		t.Fatalf("expected no findings, got %v", findings)
	}
}

func TestScriptSources_DocumentOrder(t *testing.T) {
	html := `<script src="a.js"></script><p>x</p><script src="b.js"></script><script></script>`

	got := ScriptSources(html)

	if len(got) != 2 || got[0] != "a.js" || got[1] != "b.js" {
		t.Fatalf("unexpected sources %v", got)
	}
}

func TestInspectScripts_MalformedHTML(t *testing.T) {
	html := `<div><script src="/jquery-1.3.js"><p>unterminated`

	if findings := InspectScripts(html); len(findings) != 1 {
		t.Fatalf("expected lenient parsing to find the script, got %v", findings)
	}
}
