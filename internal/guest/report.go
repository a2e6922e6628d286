package guest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReportName is the run report file written into the results root.
const ReportName = "run_report.json"

// StepResult records the outcome of one tool or sub-step. Failures carry the
// diagnostic; they never abort the run.
type StepResult struct {
	Phase   string `json:"phase"`
	Step    string `json:"step"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// RunReport aggregates every step outcome of one in-guest run.
type RunReport struct {
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Steps    []StepResult `json:"steps"`
}

// NewReport starts an empty report stamped now.
func NewReport() *RunReport {
	return &RunReport{Started: time.Now()}
}

func (r *RunReport) ok(phase, step, detail string) {
	r.Steps = append(r.Steps, StepResult{Phase: phase, Step: step, OK: true, Detail: detail})
}

func (r *RunReport) fail(phase, step string, err error) {
	r.Steps = append(r.Steps, StepResult{Phase: phase, Step: step, Error: err.Error()})
}

func (r *RunReport) skip(phase, step, reason string) {
	r.Steps = append(r.Steps, StepResult{Phase: phase, Step: step, Skipped: true, Detail: reason})
}

// Failures returns the steps that errored.
func (r *RunReport) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if !s.OK && !s.Skipped {
			out = append(out, s)
		}
	}
	return out
}

// Write persists the report as indented JSON, atomically.
func (r *RunReport) Write(path string) error {
	r.Finished = time.Now()
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit run report: %w", err)
	}
	return nil
}

// resultsLayout names the fixed per-facet output directories under the
// results root.
type resultsLayout struct {
	root string
}

func (l resultsLayout) CapturedFiles() string   { return filepath.Join(l.root, "Captured_Files") }
func (l resultsLayout) NetworkAnalysis() string { return filepath.Join(l.root, "Network_Analysis") }
func (l resultsLayout) Autoclicker() string     { return filepath.Join(l.root, "Autoclicker") }
func (l resultsLayout) RandomizedNames() string { return filepath.Join(l.root, "Randomized_Names") }
func (l resultsLayout) StaticAnalysis() string  { return filepath.Join(l.root, "Static_Analysis") }

func (l resultsLayout) all() []string {
	return []string{
		l.CapturedFiles(),
		l.NetworkAnalysis(),
		l.Autoclicker(),
		l.RandomizedNames(),
		l.StaticAnalysis(),
	}
}
