// Package collector watches guest directories during execution and copies
// every newly created file into a timestamped capture directory.
package collector

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Collector is an fsnotify-backed file watcher. Each Watch call opens its own
// capture directory, so the collector is restartable.
type Collector struct {
	log *logrus.Logger
}

// New returns a collector logging through log.
func New(log *logrus.Logger) *Collector {
	return &Collector{log: log}
}

// Watch begins watching dirs (and their existing subdirectories) for newly
// created files and copies each into a fresh timestamped directory under
// captureRoot. Directories that do not exist are skipped. The returned stop
// function closes the watcher; each file is captured at most once per Watch.
func (c *Collector) Watch(dirs []string, captureRoot string) (func() error, error) {
	runDir := filepath.Join(captureRoot, time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("open watcher: %w", err)
	}

	watched := 0
	for _, dir := range dirs {
		if err := addTree(w, dir, captureRoot); err != nil {
			c.log.WithError(err).WithField("dir", dir).Warn("watch dir skipped")
			continue
		}
		watched++
	}
	if watched == 0 {
		w.Close()
		return nil, fmt.Errorf("no watchable directories among %v", dirs)
	}

	go c.drain(w, runDir, captureRoot)
	return w.Close, nil
}

// drain owns the event loop; the seen map needs no locking because only this
// goroutine touches it.
func (c *Collector) drain(w *fsnotify.Watcher, runDir, captureRoot string) {
	seen := map[string]bool{}
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			c.created(w, ev.Name, runDir, captureRoot, seen)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.log.WithError(err).Warn("watcher error")
		}
	}
}

func (c *Collector) created(w *fsnotify.Watcher, path, runDir, captureRoot string, seen map[string]bool) {
	if inside(path, captureRoot) || seen[path] {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return // already gone, common for droppers
	}
	if info.IsDir() {
		if err := w.Add(path); err != nil {
			c.log.WithError(err).WithField("dir", path).Warn("new subdirectory not watched")
		}
		return
	}

	seen[path] = true
	dest := uniqueDest(runDir, filepath.Base(path))
	if err := copyFile(path, dest); err != nil {
		c.log.WithError(err).WithField("file", path).Warn("capture failed")
		return
	}
	c.log.WithFields(logrus.Fields{"file": path, "captured": dest}).Info("file captured")
}

// addTree registers dir and its existing subdirectories, excluding the
// capture root so the collector never ingests its own output.
func addTree(w *fsnotify.Watcher, dir, captureRoot string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if inside(p, captureRoot) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func inside(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// uniqueDest avoids clobbering when two watched dirs drop same-named files.
func uniqueDest(dir, base string) string {
	dest := filepath.Join(dir, base)
	for i := 1; ; i++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
		dest = filepath.Join(dir, fmt.Sprintf("%d_%s", i, base))
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
