package scan

import (
	"context"
	"fmt"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/nmap"
	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"go.uber.org/zap"
)

// Crawler runs a passive crawl.
type Crawler interface {
	Crawl(ctx context.Context, startURL string, opts checker.CrawlOptions) checker.CrawlResult
}

// PortScanner runs an active scan against one host.
type PortScanner interface {
	Scan(ctx context.Context, host, ports string) nmap.Result
}

// Observer receives the outcome of every finished scan.
type Observer interface {
	ObserveScan(kind string, failed bool, seconds float64)
}

// Service runs scans and records them in the history store and metrics
type Service struct {
	passive  Crawler
	active   PortScanner
	repo     scan.Repository
	observer Observer
	logger   *zap.Logger
}

// NewService creates a scan service. repo and observer may be nil to disable
// persistence and metrics.
func NewService(passive Crawler, active PortScanner, repo scan.Repository, observer Observer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		passive:  passive,
		active:   active,
		repo:     repo,
		observer: observer,
		logger:   logger,
	}
}

// Outcome describes what happened to the record of one scan run.
type Outcome struct {
	Scan  *scan.Scan
	Saved bool
	// SaveErr is set when the scan ran but could not be stored. It never
	// invalidates the scan.
	SaveErr error
}

// ID returns the stored scan ID, or "" when the scan was not persisted.
func (o Outcome) ID() string {
	if !o.Saved || o.Scan == nil {
		return ""
	}
	return o.Scan.ID()
}

// RunPassive crawls target and records the result.
func (s *Service) RunPassive(ctx context.Context, target string, opts checker.CrawlOptions) (checker.CrawlResult, Outcome) {
	result := s.passive.Crawl(ctx, target, opts)
	s.observe(scan.KindPassive, len(result.Pages) == 0, result.Duration)

	record, err := scan.NewPassive(target, result)
	if err != nil {
		return result, Outcome{SaveErr: err}
	}
	return result, s.save(ctx, record)
}

// RunActive scans host and records the result. target is the URL or host the
// caller asked for and is kept in the history record.
func (s *Service) RunActive(ctx context.Context, target, host, ports string) (nmap.Result, Outcome) {
	var result nmap.Result
	if s.active == nil {
		result = nmap.Result{Ports: []nmap.PortRecord{}, Err: scanerrors.NewScanError(scanerrors.KindToolUnavailable, nil)}
	} else {
		result = s.active.Scan(ctx, host, ports)
	}
	s.observe(scan.KindActive, result.Failed(), result.Duration)

	record, err := scan.NewActive(target, host, ports, result)
	if err != nil {
		return result, Outcome{SaveErr: err}
	}
	return result, s.save(ctx, record)
}

func (s *Service) observe(kind scan.Kind, failed bool, seconds float64) {
	if s.observer != nil {
		s.observer.ObserveScan(string(kind), failed, seconds)
	}
}

func (s *Service) save(ctx context.Context, record *scan.Scan) Outcome {
	if s.repo == nil {
		return Outcome{Scan: record}
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.Warn("scan_persist_failed",
			zap.String("kind", string(record.Kind())),
			zap.String("target", record.Target()),
			zap.Error(err),
		)
		return Outcome{Scan: record, SaveErr: fmt.Errorf("failed to save scan: %w", err)}
	}
	s.logger.Debug("scan_saved", zap.String("id", record.ID()), zap.String("kind", string(record.Kind())))
	return Outcome{Scan: record, Saved: true}
}
