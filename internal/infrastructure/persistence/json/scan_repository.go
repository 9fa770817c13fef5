package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/nmap"
	"github.com/khanhnv2901/webscan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

// scanDTO is the data transfer object for JSON serialization
type scanDTO struct {
	ID        string               `json:"id"`
	Kind      string               `json:"kind"`
	Target    string               `json:"target"`
	Host      string               `json:"host,omitempty"`
	Ports     string               `json:"ports,omitempty"`
	CreatedAt string               `json:"created_at"`
	Passive   *checker.CrawlResult `json:"passive,omitempty"`
	Active    *nmap.Result         `json:"active,omitempty"`
}

// ScanRepository implements the scan.Repository interface with one JSON file per scan
type ScanRepository struct {
	scansDir string
	mu       sync.RWMutex
}

// NewScanRepository creates the scans directory under resultsDir if needed
func NewScanRepository(resultsDir string) (*ScanRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("results directory cannot be empty")
	}

	scansDir, err := security.ResolveWithin(resultsDir, constants.ScansDirName)
	if err != nil {
		return nil, fmt.Errorf("resolve scans directory: %w", err)
	}
	if err := os.MkdirAll(scansDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create scans directory: %w", err)
	}

	return &ScanRepository{scansDir: scansDir}, nil
}

// Save persists a scan
func (r *ScanRepository) Save(ctx context.Context, s *scan.Scan) error {
	path, err := r.pathFor(s.ID())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(toScanDTO(s), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := security.WriteFileAtomic(path, data, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// FindByID retrieves a scan by its ID
func (r *ScanRepository) FindByID(ctx context.Context, id string) (*scan.Scan, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := loadScan(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, sharedErrors.ErrScanNotFound
	}
	return s, err
}

// FindAll retrieves all scans, newest first. Unreadable files are skipped.
func (r *ScanRepository) FindAll(ctx context.Context) ([]*scan.Scan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.scansDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scans directory: %w", err)
	}

	scans := make([]*scan.Scan, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), constants.ScanFileExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := security.ResolveWithin(r.scansDir, entry.Name())
		if err != nil {
			continue
		}
		s, err := loadScan(path)
		if err != nil {
			continue
		}
		scans = append(scans, s)
	}

	sort.SliceStable(scans, func(i, j int) bool {
		return scans[i].CreatedAt().After(scans[j].CreatedAt())
	})
	return scans, nil
}

// Delete removes a scan by its ID
func (r *ScanRepository) Delete(ctx context.Context, id string) error {
	path, err := r.pathFor(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sharedErrors.ErrScanNotFound
		}
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	return nil
}

// Helper methods

// pathFor only accepts UUIDs, so IDs can never name files outside the scans directory.
func (r *ScanRepository) pathFor(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", sharedErrors.ErrInvalidScanID, id)
	}
	return security.ResolveWithin(r.scansDir, parsed.String()+constants.ScanFileExt)
}

func loadScan(path string) (*scan.Scan, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path resolved within the scans directory.
	if err != nil {
		return nil, err
	}

	var dto scanDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	return fromScanDTO(dto)
}

func toScanDTO(s *scan.Scan) scanDTO {
	return scanDTO{
		ID:        s.ID(),
		Kind:      string(s.Kind()),
		Target:    s.Target(),
		Host:      s.Host(),
		Ports:     s.Ports(),
		CreatedAt: s.CreatedAt().UTC().Format(time.RFC3339Nano),
		Passive:   s.Passive(),
		Active:    s.Active(),
	}
}

func fromScanDTO(dto scanDTO) (*scan.Scan, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, dto.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	kind := scan.Kind(dto.Kind)
	switch {
	case kind == scan.KindPassive && dto.Passive != nil:
	case kind == scan.KindActive && dto.Active != nil:
	default:
		return nil, fmt.Errorf("%w: scan %s has kind %q without a matching payload", sharedErrors.ErrDeserializationFailed, dto.ID, dto.Kind)
	}

	return scan.Reconstruct(dto.ID, kind, dto.Target, dto.Host, dto.Ports, createdAt, dto.Passive, dto.Active), nil
}
