package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

// TestEnv holds test environment configuration and cleanup functions.
type TestEnv struct {
	TmpDir       string
	ResultsDir   string
	cleanupFuncs []func()
	t            *testing.T
}

// NewTestEnv creates a new test environment with automatic cleanup.
// Usage:
//
//	env := testutil.NewTestEnv(t)
//	defer env.Cleanup()
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir() // Automatically cleaned up by Go test framework

	env := &TestEnv{
		TmpDir:       tmpDir,
		ResultsDir:   filepath.Join(tmpDir, "results"),
		t:            t,
		cleanupFuncs: []func(){},
	}

	if err := os.MkdirAll(env.ResultsDir, consts.DefaultDirPerm); err != nil {
		t.Fatalf("Failed to create test results directory: %v", err)
	}

	return env
}

// AddCleanup adds a cleanup function to be called when Cleanup() is called.
// Cleanup functions are called in reverse order (LIFO).
func (e *TestEnv) AddCleanup(fn func()) {
	e.cleanupFuncs = append([]func(){fn}, e.cleanupFuncs...)
}

// Cleanup runs all registered cleanup functions.
// Typically called with defer: defer env.Cleanup()
func (e *TestEnv) Cleanup() {
	for _, fn := range e.cleanupFuncs {
		fn()
	}
}

// ScansDir returns the directory the scan repository writes to.
func (e *TestEnv) ScansDir() string {
	return filepath.Join(e.ResultsDir, consts.ScansDirName)
}

// CreateFile creates a file in the test environment with the given content.
// The file path is relative to the test's temporary directory.
func (e *TestEnv) CreateFile(relativePath string, content []byte) string {
	e.t.Helper()

	fullPath := resolveTmpPath(e.TmpDir, relativePath, e.t)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		e.t.Fatalf("Failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, consts.DefaultFilePerm); err != nil {
		e.t.Fatalf("Failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// ReadFile reads a file from the test environment.
// The file path is relative to the test's temporary directory.
func (e *TestEnv) ReadFile(relativePath string) []byte {
	e.t.Helper()

	fullPath := resolveTmpPath(e.TmpDir, relativePath, e.t)
	content, err := os.ReadFile(fullPath)
	if err != nil {
		e.t.Fatalf("Failed to read file %s: %v", fullPath, err)
	}

	return content
}

// FileExists checks if a file exists in the test environment.
func (e *TestEnv) FileExists(relativePath string) bool {
	fullPath := resolveTmpPath(e.TmpDir, relativePath, e.t)
	_, err := os.Stat(fullPath)
	return err == nil
}

// MustExist fails the test if the file does not exist.
func (e *TestEnv) MustExist(relativePath string) {
	e.t.Helper()
	if !e.FileExists(relativePath) {
		e.t.Fatalf("File %s should exist but does not", relativePath)
	}
}

// MustNotExist fails the test if the file exists.
func (e *TestEnv) MustNotExist(relativePath string) {
	e.t.Helper()
	if e.FileExists(relativePath) {
		e.t.Fatalf("File %s should not exist but does", relativePath)
	}
}

// FakeNmap writes an executable shell script named nmap into the environment
// and returns its path. The script body receives nmap's arguments in "$@".
func (e *TestEnv) FakeNmap(body string) string {
	e.t.Helper()
	if runtime.GOOS == "windows" {
		e.t.Skip("fake nmap scripts require a POSIX shell")
	}
	path := e.CreateFile(filepath.Join("bin", "nmap"), []byte("#!/bin/sh\n"+body+"\n"))
	if err := os.Chmod(path, 0o755); err != nil {
		e.t.Fatalf("Failed to make %s executable: %v", path, err)
	}
	return path
}

// NmapXML is a minimal scan document with one open https port.
const NmapXML = `<?xml version="1.0"?>
<nmaprun><host><ports><port protocol="tcp" portid="443"><state state="open"/><service name="https"/></port></ports></host></nmaprun>`

// NewSite starts a two-page site: the index links to /about and an external
// host, sets no security headers and announces a Server banner. The server is
// closed when the environment is cleaned up or the test ends.
func (e *TestEnv) NewSite() *httptest.Server {
	e.t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Server", "nginx/1.18.0")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><script src="/js/jquery-1.12.4.min.js"></script></head>
<body><a href="/about">About</a><a href="https://external.invalid/">Elsewhere</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Frame-Options", "DENY")
		fmt.Fprint(w, `<html><body>About us</body></html>`)
	})
	srv := httptest.NewServer(mux)
	e.t.Cleanup(srv.Close)
	return srv
}

func resolveTmpPath(baseDir, relativePath string, t *testing.T) string {
	t.Helper()
	path, err := security.ResolveWithin(baseDir, relativePath)
	if err != nil {
		t.Fatalf("invalid test path %s: %v", relativePath, err)
	}
	return path
}
