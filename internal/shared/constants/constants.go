package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultResultsDir holds scan history when no results_dir is configured.
	DefaultResultsDir = "webscan-results"
	// ScansDirName is the subdirectory of the results dir holding one JSON file per scan.
	ScansDirName = "scans"
	// ScanFileExt is appended to the scan ID to form its file name.
	ScanFileExt = ".json"
)

const (
	// DefaultPassiveTimeout bounds one page fetch.
	DefaultPassiveTimeout = 10 * time.Second
	// DefaultActiveTimeout bounds one nmap invocation.
	DefaultActiveTimeout = 180 * time.Second
)
