package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

// validateScanID ensures a scan ID is a UUID before it reaches the store, where
// it becomes part of a file name.
func validateScanID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: scan ID is required", scanerrors.ErrInvalidScanID)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", scanerrors.ErrInvalidScanID, id)
	}
	return nil
}

// resolveOutputPath places a generated report. An explicit output path is used
// as given; otherwise the file name is confined to dir.
func resolveOutputPath(dir, output, defaultName string) (string, error) {
	if output != "" {
		return filepath.Clean(output), nil
	}
	if dir == "" {
		dir = "."
	}
	return security.ResolveWithin(dir, defaultName)
}

func writeOutputFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := security.WriteFileAtomic(path, data, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
