package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
)

func TestGetDataDir(t *testing.T) {
	t.Setenv(dataDirEnvVar, "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")

	dataDir, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir() failed: %v", err)
	}

	// Verify directory was created
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}
	if !strings.Contains(dataDir, appDirName) {
		t.Errorf("Expected data directory to contain %q, got: %s", appDirName, dataDir)
	}

	// Verify OS-specific path
	switch runtime.GOOS {
	case "windows":
	case "darwin":
		if !strings.Contains(dataDir, "Library") {
			t.Errorf("macOS: Expected path to contain Library, got: %s", dataDir)
		}
	default: // Linux/Unix
		expected := filepath.Join(home, ".local", "share", appDirName)
		if dataDir != expected {
			t.Errorf("Linux: Expected %s, got: %s", expected, dataDir)
		}
	}
}

func TestGetDataDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_DATA_HOME only applies on Linux/Unix")
	}
	t.Setenv(dataDirEnvVar, "")
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)

	dataDir, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir() failed: %v", err)
	}
	if want := filepath.Join(xdg, appDirName); dataDir != want {
		t.Errorf("expected %s, got %s", want, dataDir)
	}
}

func TestGetDataDir_Override(t *testing.T) {
	override := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv(dataDirEnvVar, override)

	dataDir, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir() failed: %v", err)
	}
	if dataDir != override {
		t.Errorf("expected override %s, got %s", override, dataDir)
	}
	if _, err := os.Stat(override); err != nil {
		t.Errorf("override directory was not created: %v", err)
	}
}

func TestGetResultsDir(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	resultsDir, err := getResultsDir()
	if err != nil {
		t.Fatalf("getResultsDir() failed: %v", err)
	}
	if want := filepath.Join(dataDir, consts.DefaultResultsDir); resultsDir != want {
		t.Errorf("expected %s, got %s", want, resultsDir)
	}
	if _, err := os.Stat(resultsDir); err != nil {
		t.Errorf("results directory was not created: %v", err)
	}
}

func TestGetConfigFilePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}

	path, err := getConfigFilePath()
	if err != nil {
		t.Fatalf("getConfigFilePath() failed: %v", err)
	}
	if want := filepath.Join(home, ".webscan.yaml"); path != want {
		t.Errorf("expected %s, got %s", want, path)
	}
}
