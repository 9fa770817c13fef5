package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPageFetcher_Fetch(t *testing.T) {
	uaCh := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaCh <- r.Header.Get("User-Agent")
		w.Header().Set("Server", "test-server")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer server.Close()

	page, err := NewPageFetcher(time.Second).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if page.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418, got %d", page.StatusCode)
	}
	if page.Header.Get("Server") != "test-server" {
		t.Errorf("expected headers to be captured, got %v", page.Header)
	}
	if page.Body != "<html>hello</html>" {
		t.Errorf("unexpected body %q", page.Body)
	}
	if gotUA := <-uaCh; gotUA != DefaultUserAgent {
		t.Errorf("expected user agent %q, got %q", DefaultUserAgent, gotUA)
	}
}

func TestPageFetcher_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("new"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	page, err := NewPageFetcher(time.Second).Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if page.StatusCode != http.StatusOK || page.Body != "new" {
		t.Fatalf("expected redirect to be followed, got %d %q", page.StatusCode, page.Body)
	}
	if page.URL != server.URL+"/old" {
		t.Errorf("page URL should stay the requested URL, got %s", page.URL)
	}
}

func TestPageFetcher_DecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xe9})
	}))
	defer server.Close()

	page, err := NewPageFetcher(time.Second).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if page.Body != "café" {
		t.Fatalf("expected latin-1 body decoded to UTF-8, got %q", page.Body)
	}
}

func TestPageFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewPageFetcher(50*time.Millisecond).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestPageFetcher_InvalidURL(t *testing.T) {
	_, err := NewPageFetcher(time.Second).Fetch(context.Background(), "://bad")
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
