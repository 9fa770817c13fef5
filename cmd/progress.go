package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
)

// crawlProgress prints a one-line crawl status and implements checker.CrawlObserver.
type crawlProgress struct {
	out      io.Writer
	total    int
	name     string
	mu       sync.Mutex
	ok       int
	fail     int
	findings int
	updates  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newCrawlProgress(out io.Writer, total int, name string) *crawlProgress {
	if total <= 0 {
		total = 1
	}
	return &crawlProgress{
		out:     out,
		total:   total,
		name:    name,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (p *crawlProgress) Start() {
	p.wg.Add(1)
	go p.loop()
}

func (p *crawlProgress) PageFetched(checker.PageRecord) {
	p.record(func() { p.ok++ })
}

func (p *crawlProgress) FetchFailed(string, error) {
	p.record(func() { p.fail++ })
}

func (p *crawlProgress) FindingsRecorded(findings []checker.Finding) {
	p.record(func() { p.findings += len(findings) })
}

func (p *crawlProgress) record(update func()) {
	p.mu.Lock()
	update()
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

func (p *crawlProgress) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
		p.print()
		fmt.Fprintln(p.out)
	})
}

func (p *crawlProgress) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *crawlProgress) print() {
	p.mu.Lock()
	ok, fail, findings := p.ok, p.fail, p.findings
	p.mu.Unlock()

	visited := ok + fail
	total := p.total
	if visited > total {
		total = visited
	}
	percent := (float64(visited) / float64(total)) * 100

	fmt.Fprintf(p.out, "\r[%s] Pages: %d/%d (%.1f%%) OK:%d Fail:%d Findings:%d",
		p.name, visited, total, percent, ok, fail, findings)
}
