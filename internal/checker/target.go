package checker

import (
	"fmt"
	"net/url"
	"strings"

	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// NormalizeURL trims raw and prefixes http:// unless it already starts with
// "http". The prefix test is deliberately loose: "https://x" and "httpbin.org"
// are both left as they are.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "http") {
		return raw
	}
	return "http://" + raw
}

// HostOf returns the hostname of target without scheme, userinfo, port or path.
// Bare hosts such as "example.com:8443" are accepted.
func HostOf(target string) (string, error) {
	u, err := url.Parse(NormalizeURL(target))
	if err != nil {
		return "", fmt.Errorf("%w: %v", scanerrors.ErrInvalidInput, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", scanerrors.ErrInvalidInput, target)
	}
	return host, nil
}
