package scan

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/nmap"
	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// Kind distinguishes the engine that produced a scan.
type Kind string

const (
	KindPassive Kind = "passive"
	KindActive  Kind = "active"
)

// Scan is one persisted passive or active scan. Exactly one of Passive and
// Active is set, matching Kind.
type Scan struct {
	id        string
	kind      Kind
	target    string
	host      string
	ports     string
	createdAt time.Time
	passive   *checker.CrawlResult
	active    *nmap.Result
}

// NewPassive records a finished crawl of target.
func NewPassive(target string, result checker.CrawlResult) (*Scan, error) {
	if target == "" {
		return nil, scanerrors.ErrEmptyTarget
	}
	return &Scan{
		id:        uuid.NewString(),
		kind:      KindPassive,
		target:    target,
		createdAt: time.Now().UTC(),
		passive:   &result,
	}, nil
}

// NewActive records a finished nmap run against host.
func NewActive(target, host, ports string, result nmap.Result) (*Scan, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: scan host cannot be empty", scanerrors.ErrEmptyTarget)
	}
	if target == "" {
		target = host
	}
	return &Scan{
		id:        uuid.NewString(),
		kind:      KindActive,
		target:    target,
		host:      host,
		ports:     ports,
		createdAt: time.Now().UTC(),
		active:    &result,
	}, nil
}

// Reconstruct rebuilds a scan from persisted data (for repository use)
func Reconstruct(id string, kind Kind, target, host, ports string, createdAt time.Time, passive *checker.CrawlResult, active *nmap.Result) *Scan {
	return &Scan{
		id:        id,
		kind:      kind,
		target:    target,
		host:      host,
		ports:     ports,
		createdAt: createdAt,
		passive:   passive,
		active:    active,
	}
}

// Getters

func (s *Scan) ID() string                    { return s.id }
func (s *Scan) Kind() Kind                    { return s.kind }
func (s *Scan) Target() string                { return s.target }
func (s *Scan) Host() string                  { return s.host }
func (s *Scan) Ports() string                 { return s.ports }
func (s *Scan) CreatedAt() time.Time          { return s.createdAt }
func (s *Scan) Passive() *checker.CrawlResult { return s.passive }
func (s *Scan) Active() *nmap.Result          { return s.active }

// Findings returns the passive findings, or nil for active scans.
func (s *Scan) Findings() []checker.Finding {
	if s.passive == nil {
		return nil
	}
	return s.passive.Findings
}

// Summary is a one-line description used by history listings.
func (s *Scan) Summary() string {
	switch {
	case s.passive != nil:
		return pluralize(len(s.passive.Pages), "page") + ", " + pluralize(len(s.passive.Findings), "finding")
	case s.active != nil && s.active.Failed():
		return "failed: " + s.active.Err.Error()
	case s.active != nil:
		return pluralize(len(s.active.Ports), "port")
	}
	return ""
}

func pluralize(n int, noun string) string {
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}
