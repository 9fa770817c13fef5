package checker

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CrawlOptions bounds a passive crawl.
type CrawlOptions struct {
	MaxPages          int           // visited URLs, including failed fetches; at least 1
	MaxDepth          int           // link hops from the start URL; 0 audits the start page only
	Timeout           time.Duration // per fetch
	UserAgent         string
	RequestsPerSecond float64 // 0 disables throttling
}

// DefaultCrawlOptions mirrors the defaults of the scan endpoints.
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		MaxPages:  10,
		MaxDepth:  1,
		Timeout:   DefaultFetchTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// WorstCase bounds how long a crawl with these options can run: every visit
// uses the full fetch timeout plus one politeness interval.
func (o CrawlOptions) WorstCase() time.Duration {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	perPage := timeout
	if o.RequestsPerSecond > 0 {
		perPage += time.Duration(float64(time.Second) / o.RequestsPerSecond)
	}
	return time.Duration(max(o.MaxPages, 1)) * perPage
}

// Fetcher retrieves one page.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*Page, error)
}

// CrawlObserver receives per-page crawl events, e.g. for metrics.
type CrawlObserver interface {
	PageFetched(page PageRecord)
	FetchFailed(target string, err error)
	FindingsRecorded(findings []Finding)
}

// Crawler runs a same-host breadth-first crawl, one request at a time.
type Crawler struct {
	Fetcher  Fetcher // nil builds a PageFetcher from the crawl options
	Logger   *zap.Logger
	Observer CrawlObserver
}

type frontierEntry struct {
	url   string
	depth int
}

// Crawl audits startURL and the same-host pages reachable from it. Fetch failures
// become fetch_error findings; nothing is returned as an error.
func (c *Crawler) Crawl(ctx context.Context, startURL string, opts CrawlOptions) CrawlResult {
	start := time.Now()
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}

	fetcher := c.Fetcher
	if fetcher == nil {
		pf := NewPageFetcher(opts.Timeout)
		if opts.UserAgent != "" {
			pf.UserAgent = opts.UserAgent
		}
		fetcher = pf
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	startHost := hostnameOf(startURL)
	visited := make(map[string]struct{}, opts.MaxPages)
	frontier := []frontierEntry{{url: startURL, depth: 0}}
	result := CrawlResult{
		Findings: []Finding{},
		Pages:    []PageRecord{},
	}

	for len(frontier) > 0 && len(visited) < opts.MaxPages {
		entry := frontier[0]
		frontier = frontier[1:]

		if _, seen := visited[entry.url]; seen || entry.depth > opts.MaxDepth {
			continue
		}
		visited[entry.url] = struct{}{}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				logger.Debug("rate_limit_wait_interrupted", zap.String("url", entry.url), zap.Error(err))
			}
		}

		page, err := fetcher.Fetch(ctx, entry.url)
		if err != nil {
			err = scanerrors.NewScanError(scanerrors.KindFetch, err)
			logger.Debug("fetch_failed", zap.String("url", entry.url), zap.Error(err))
			result.Findings = append(result.Findings, Finding{
				ID:          FindingFetchError,
				Title:       "Failed to fetch " + entry.url,
				Severity:    SeverityLow,
				Remediation: err.Error(),
			})
			if c.Observer != nil {
				c.Observer.FetchFailed(entry.url, err)
			}
			continue
		}

		record := PageRecord{URL: entry.url, StatusCode: page.StatusCode}
		result.Pages = append(result.Pages, record)

		pageFindings := AnalyzeSecurityHeaders(page.Header)
		pageFindings = append(pageFindings, InspectScripts(page.Body)...)
		result.Findings = append(result.Findings, pageFindings...)

		logger.Debug("page_audited",
			zap.String("url", entry.url),
			zap.Int("status", page.StatusCode),
			zap.Int("depth", entry.depth),
			zap.Int("findings", len(pageFindings)),
		)
		if c.Observer != nil {
			c.Observer.PageFetched(record)
			c.Observer.FindingsRecorded(pageFindings)
		}

		if entry.depth >= opts.MaxDepth {
			continue
		}
		for _, link := range ExtractLinks(entry.url, page.Body) {
			if !hostsMatch(startHost, hostnameOf(link)) {
				continue
			}
			if _, seen := visited[link]; seen {
				continue
			}
			frontier = append(frontier, frontierEntry{url: link, depth: entry.depth + 1})
		}
	}

	result.Duration = time.Since(start).Seconds()
	logger.Info("crawl_completed",
		zap.String("start_url", startURL),
		zap.Int("pages", len(result.Pages)),
		zap.Int("findings", len(result.Findings)),
		zap.Float64("duration_seconds", result.Duration),
	)
	return result
}

// Crawl runs a crawl with the default page fetcher.
func Crawl(ctx context.Context, startURL string, opts CrawlOptions) CrawlResult {
	return (&Crawler{}).Crawl(ctx, startURL, opts)
}

// ExtractLinks returns the href of every <a> element resolved against base, in document order.
// Links are not normalized beyond resolution: fragments, query order and the
// href's own escaping are kept, so "/a b" stays "/a b".
func ExtractLinks(base, html string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if link, ok := resolveHref(base, baseURL, strings.TrimSpace(href)); ok {
			links = append(links, link)
		}
	})
	return links
}

// resolveHref joins href onto base (RFC 3986 section 5.2) working on the raw
// strings, so nothing is re-escaped.
func resolveHref(base string, baseURL *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if ref.Scheme != "" {
		return href, true
	}
	if strings.HasPrefix(href, "//") {
		return baseURL.Scheme + ":" + href, true
	}

	sep := strings.Index(base, "://")
	if sep < 0 || baseURL.Opaque != "" {
		return baseURL.ResolveReference(ref).String(), true
	}
	baseRest := base[sep+3:]
	if i := strings.IndexAny(baseRest, "/?#"); i >= 0 {
		baseRest = baseRest[i:]
	} else {
		baseRest = ""
	}
	authority := base[:len(base)-len(baseRest)]
	basePath, baseTail := splitPath(baseRest)
	if i := strings.IndexByte(baseTail, '#'); i >= 0 {
		baseTail = baseTail[:i]
	}

	refPath, refTail := splitPath(href)
	switch {
	case href == "":
		return base, true
	case refPath == "" && strings.HasPrefix(refTail, "?"):
		return authority + basePath + refTail, true
	case refPath == "":
		return authority + basePath + baseTail + refTail, true
	case strings.HasPrefix(refPath, "/"):
		return authority + removeDotSegments(refPath) + refTail, true
	}

	dir := "/"
	if i := strings.LastIndexByte(basePath, '/'); i >= 0 {
		dir = basePath[:i+1]
	}
	return authority + removeDotSegments(dir+refPath) + refTail, true
}

// splitPath separates a path from its "?query#fragment" tail.
func splitPath(raw string) (path, tail string) {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i], raw[i:]
	}
	return raw, ""
}

func removeDotSegments(p string) string {
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for i, seg := range segments {
		last := i == len(segments)-1
		switch seg {
		case ".":
			if last {
				out = append(out, "")
			}
		case "..":
			if len(out) > 1 {
				out = out[:len(out)-1]
			}
			if last {
				out = append(out, "")
			}
		default:
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/")
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func hostsMatch(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}
