package collector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/javanstorm/guestlab/internal/logging"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func captured(t *testing.T, captureRoot string) []string {
	t.Helper()
	var names []string
	filepath.Walk(captureRoot, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			names = append(names, filepath.Base(p))
		}
		return nil
	})
	return names
}

func TestCapturesCreatedFile(t *testing.T) {
	watchDir := t.TempDir()
	captureRoot := t.TempDir()

	c := New(logging.Discard())
	stop, err := c.Watch([]string{watchDir}, captureRoot)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(filepath.Join(watchDir, "dropped.dll"), []byte("payload"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitFor(t, func() bool {
		for _, n := range captured(t, captureRoot) {
			if n == "dropped.dll" {
				return true
			}
		}
		return false
	})
}

func TestMissingDirsAreSkipped(t *testing.T) {
	watchDir := t.TempDir()
	captureRoot := t.TempDir()

	c := New(logging.Discard())
	stop, err := c.Watch([]string{filepath.Join(watchDir, "nope"), watchDir}, captureRoot)
	if err != nil {
		t.Fatalf("Watch with one valid dir must succeed: %v", err)
	}
	stop()

	if _, err := c.Watch([]string{filepath.Join(watchDir, "nope")}, captureRoot); err == nil {
		t.Fatal("Watch with no valid dirs must fail")
	}
}

func TestOwnOutputIsNotRecaptured(t *testing.T) {
	watchDir := t.TempDir()
	// Capture root nested inside the watched tree, as on the real desktop.
	captureRoot := filepath.Join(watchDir, "Analysis_Results", "Captured_Files")
	if err := os.MkdirAll(captureRoot, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	c := New(logging.Discard())
	stop, err := c.Watch([]string{watchDir}, captureRoot)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(filepath.Join(watchDir, "evidence.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	waitFor(t, func() bool { return len(captured(t, captureRoot)) > 0 })

	// Give the loop a moment; the copy it just made must not cascade.
	time.Sleep(100 * time.Millisecond)
	if got := captured(t, captureRoot); len(got) != 1 {
		t.Errorf("capture output re-ingested: %v", got)
	}
}

func TestRestartableWithFreshCaptureDir(t *testing.T) {
	watchDir := t.TempDir()
	captureRoot := t.TempDir()
	c := New(logging.Discard())

	stop, err := c.Watch([]string{watchDir}, captureRoot)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	stop2, err := c.Watch([]string{watchDir}, captureRoot)
	if err != nil {
		t.Fatalf("second Watch: %v", err)
	}
	defer stop2()

	if err := os.WriteFile(filepath.Join(watchDir, "later.bin"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	waitFor(t, func() bool {
		for _, n := range captured(t, captureRoot) {
			if n == "later.bin" {
				return true
			}
		}
		return false
	})
}
