package checker

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	// DefaultUserAgent identifies passive scan traffic.
	DefaultUserAgent = "WebScan/1.0"
	// DefaultFetchTimeout bounds a single page fetch.
	DefaultFetchTimeout = 10 * time.Second
)

// Page is a fetched HTTP response with its body decoded to UTF-8.
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       string
}

// PageFetcher issues single GET requests. Redirects are followed and the whole body is read.
type PageFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewPageFetcher builds a fetcher whose client times out after timeout.
func NewPageFetcher(timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &PageFetcher{
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: false,
					MinVersion:         tls.VersionTLS12,
				},
			},
		},
		UserAgent: DefaultUserAgent,
	}
}

// Fetch performs the GET. Any status code is a successful fetch; only transport,
// DNS, timeout and body read failures return an error.
func (f *PageFetcher) Fetch(ctx context.Context, target string) (*Page, error) {
	client := f.Client
	if client == nil {
		client = NewPageFetcher(DefaultFetchTimeout).Client
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:        target,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       decodeBody(raw, resp.Header.Get("Content-Type")),
	}, nil
}

// decodeBody converts raw to UTF-8 using the declared or sniffed charset.
func decodeBody(raw []byte, contentType string) string {
	if len(raw) == 0 {
		return ""
	}
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
