// Package testutil provides common test helpers for guestlab tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/javanstorm/guestlab/internal/config"
)

// StageTool creates a tool folder with the named executable under toolsRoot,
// mirroring the layout the stager and the guest agent expect. It returns the
// tool directory.
func StageTool(t *testing.T, toolsRoot, name, exe string) string {
	t.Helper()

	dir := filepath.Join(toolsRoot, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create tool dir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, exe), []byte("MZ"), 0755); err != nil {
		t.Fatalf("failed to write tool executable %s: %v", exe, err)
	}
	return dir
}

// WriteManifest saves cfg under dir with the canonical manifest name and
// returns the manifest path.
func WriteManifest(t *testing.T, dir string, cfg *config.AnalysisConfig) string {
	t.Helper()

	path := filepath.Join(dir, config.ManifestName)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

// WriteBinary creates a placeholder analysis target at path.
func WriteBinary(t *testing.T, path string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create binary dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("MZ..."), 0755); err != nil {
		t.Fatalf("failed to write binary %s: %v", path, err)
	}
	return path
}
