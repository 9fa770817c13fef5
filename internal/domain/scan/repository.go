package scan

import "context"

// Repository defines the interface for scan history persistence
type Repository interface {
	// Save persists a scan, replacing any scan with the same ID
	Save(ctx context.Context, s *Scan) error

	// FindByID retrieves a scan by its ID
	FindByID(ctx context.Context, id string) (*Scan, error)

	// FindAll retrieves all scans, newest first
	FindAll(ctx context.Context) ([]*Scan, error)

	// Delete removes a scan by its ID
	Delete(ctx context.Context, id string) error
}
