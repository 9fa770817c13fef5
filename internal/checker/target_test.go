package checker

import (
	"errors"
	"testing"

	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"example.com":          "http://example.com",
		"  example.com/path  ": "http://example.com/path",
		"https://example.com":  "https://example.com",
		"http://example.com":   "http://example.com",
		"httpbin.org":          "httpbin.org",
		"":                     "",
	}
	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHostOf(t *testing.T) {
	tests := map[string]string{
		"example.com":                        "example.com",
		"example.com:8443":                   "example.com",
		"https://user:pw@example.com:8443/x": "example.com",
		"http://[2001:db8::1]:80/":           "2001:db8::1",
	}
	for in, want := range tests {
		got, err := HostOf(in)
		if err != nil {
			t.Errorf("HostOf(%q) returned error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("HostOf(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "http://", "http://%zz"} {
		if _, err := HostOf(in); !errors.Is(err, scanerrors.ErrInvalidInput) {
			t.Errorf("HostOf(%q): expected ErrInvalidInput, got %v", in, err)
		}
	}
}
