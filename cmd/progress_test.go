package cmd

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
)

// syncBuffer guards a bytes.Buffer shared with the progress goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCrawlProgressLifecycle(t *testing.T) {
	out := &syncBuffer{}
	progress := newCrawlProgress(out, 0, "crawl")
	if progress.total != 1 {
		t.Fatalf("expected total to be clamped to 1, got %d", progress.total)
	}

	progress.Start()
	progress.PageFetched(checker.PageRecord{URL: "https://example.com", StatusCode: 200})
	progress.FetchFailed("https://example.com/missing", errors.New("boom"))
	progress.FindingsRecorded([]checker.Finding{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	time.Sleep(350 * time.Millisecond) // allow ticker to tick at least once
	progress.Stop()
	progress.Stop()

	output := out.String()
	if !strings.Contains(output, "Pages: 2/2") {
		t.Fatalf("expected page progress, got %q", output)
	}
	if !strings.Contains(output, "OK:1") || !strings.Contains(output, "Fail:1") {
		t.Fatalf("expected OK/Fail counts in output, got %q", output)
	}
	if !strings.Contains(output, "Findings:3") {
		t.Fatalf("expected findings count in output, got %q", output)
	}
}
