// Package clicker dismisses interactive guest prompts during execution. The
// actual screen matching is delegated to an external matcher executable when
// one is staged; without it the clicker idles for its window so the phase
// timing stays identical either way.
package clicker

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the pause between matcher invocations.
const DefaultInterval = 2 * time.Second

// Clicker runs the click loop for a bounded window and records evidence of
// every matcher invocation.
type Clicker struct {
	MatcherDir   string // staged tool folder searched for a matcher executable
	EvidencePath string
	Interval     time.Duration

	log *logrus.Logger

	run   func(exe string) ([]byte, error)
	sleep func(time.Duration)
}

// New returns a clicker looking for its matcher under matcherDir and
// appending evidence lines to evidencePath.
func New(matcherDir, evidencePath string, log *logrus.Logger) *Clicker {
	return &Clicker{
		MatcherDir:   matcherDir,
		EvidencePath: evidencePath,
		Interval:     DefaultInterval,
		log:          log,
		run: func(exe string) ([]byte, error) {
			return exec.Command(exe).Output()
		},
		sleep: time.Sleep,
	}
}

// Click loops until d elapses, invoking the matcher each round when present
// and recording an evidence line per invocation. A zero or negative duration
// returns immediately. Matcher failures are recorded and do not stop the
// loop.
func (c *Clicker) Click(d time.Duration) error {
	if d <= 0 {
		return nil
	}

	matcher := c.findMatcher()
	if matcher == "" {
		c.log.WithField("dir", c.MatcherDir).Info("no matcher staged, idling through click window")
	}

	evidence, err := os.OpenFile(c.EvidencePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open click evidence: %w", err)
	}
	defer evidence.Close()

	deadline := time.Now().Add(d)
	for {
		if matcher != "" {
			out, err := c.run(matcher)
			line := fmt.Sprintf("%s clicked: %s\n", time.Now().Format(time.RFC3339), string(out))
			if err != nil {
				line = fmt.Sprintf("%s matcher failed: %v\n", time.Now().Format(time.RFC3339), err)
			}
			if _, werr := evidence.WriteString(line); werr != nil {
				return fmt.Errorf("record click evidence: %w", werr)
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if remaining < c.Interval {
			c.sleep(remaining)
		} else {
			c.sleep(c.Interval)
		}
	}
}

// findMatcher returns the first executable in MatcherDir, or "" when none is
// staged.
func (c *Clicker) findMatcher() string {
	entries, err := os.ReadDir(c.MatcherDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".exe" {
			return filepath.Join(c.MatcherDir, e.Name())
		}
	}
	return ""
}
