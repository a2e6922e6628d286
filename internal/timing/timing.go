// Package timing tracks durations of pipeline steps for run summaries.
package timing

import (
	"fmt"
	"strings"
	"time"
)

// Timer tracks durations of named steps.
type Timer struct {
	start time.Time
	steps []Step
}

// Step is a completed, named span of the pipeline.
type Step struct {
	Name     string
	Duration time.Duration
}

// New creates a Timer starting from now.
func New() *Timer {
	return &Timer{start: time.Now()}
}

// Mark records a named step ending now. The duration is the time since the
// previous mark, or since the timer started for the first mark.
func (t *Timer) Mark(name string) {
	elapsed := time.Since(t.start)
	var prior time.Duration
	for _, s := range t.steps {
		prior += s.Duration
	}
	t.steps = append(t.steps, Step{Name: name, Duration: elapsed - prior})
}

// Total returns the elapsed time since the timer was created.
func (t *Timer) Total() time.Duration {
	return time.Since(t.start)
}

// Steps returns all recorded steps.
func (t *Timer) Steps() []Step {
	return t.steps
}

// Summary renders a one-line report suitable for the run log.
func (t *Timer) Summary() string {
	var b strings.Builder
	b.WriteString("pipeline timing:")
	for _, s := range t.steps {
		fmt.Fprintf(&b, " %s=%s", s.Name, formatDuration(s.Duration))
	}
	fmt.Fprintf(&b, " total=%s", formatDuration(t.Total()))
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
