package hypervisor

import (
	"runtime"
	"testing"
	"time"
)

func TestDetachImmediateFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := execRunner{}
	stderr, err := r.detach(2*time.Second, "sh", "-c", "echo boom >&2; exit 1")
	if err == nil {
		t.Fatal("expected error for immediate nonzero exit")
	}
	if stderr == "" {
		t.Error("stderr should be captured for immediate failures")
	}
}

func TestDetachGraceExpiryIsSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := execRunner{}
	start := time.Now()
	_, err := r.detach(100*time.Millisecond, "sh", "-c", "sleep 5")
	if err != nil {
		t.Fatalf("long-running process must count as success, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("detach should return right after the grace period")
	}
}

func TestDetachCleanExitWithinGrace(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := execRunner{}
	if _, err := r.detach(2*time.Second, "true"); err != nil {
		t.Fatalf("clean exit within grace must be success, got %v", err)
	}
}
