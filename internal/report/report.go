// Package report renders scan results as CSV, PDF and Markdown documents.
package report

import (
	"strings"
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/nmap"
)

// DefaultTarget labels exports that do not name a target.
const DefaultTarget = "unknown"

// Data is the content of one export.
type Data struct {
	Target      string
	Passive     []checker.Finding
	Active      *nmap.Result // nil when no active scan was run
	GeneratedAt time.Time
}

func (d Data) target() string {
	if d.Target == "" {
		return DefaultTarget
	}
	return d.Target
}

func (d Data) generatedAt() time.Time {
	if d.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return d.GeneratedAt.UTC()
}

func (d Data) ports() []nmap.PortRecord {
	if d.Active == nil {
		return nil
	}
	return d.Active.Ports
}

var filenameReplacer = strings.NewReplacer(":", "_", "/", "_")

// Filename builds the download name for an export, e.g. webscan_https___example.com.csv.
func Filename(target, ext string) string {
	if target == "" {
		target = DefaultTarget
	}
	return "webscan_" + filenameReplacer.Replace(target) + "." + strings.TrimPrefix(ext, ".")
}
