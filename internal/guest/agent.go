// Package guest drives the in-guest analysis run: it loads the manifest the
// provisioner committed, prepares the results tree, and executes the four
// phases (static, dynamic setup, dynamic monitor, execution). Every tool and
// sub-step is isolated: its failure is recorded in the run report and never
// aborts later steps or phases. Only a broken manifest or an uncreatable
// results tree is fatal.
package guest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javanstorm/guestlab/internal/config"
	"github.com/javanstorm/guestlab/internal/guest/clicker"
	"github.com/javanstorm/guestlab/internal/guest/collector"
	"github.com/javanstorm/guestlab/internal/guest/netwatch"
	"github.com/javanstorm/guestlab/internal/guest/randomize"
)

// FileWatcher captures files created during execution. Watch returns once the
// watcher is running; it is not awaited by the orchestrator.
type FileWatcher interface {
	Watch(dirs []string, captureRoot string) (stop func() error, err error)
}

// NetworkObserver samples guest network activity for a fixed duration and
// writes its own report. A zero duration returns immediately.
type NetworkObserver interface {
	Observe(d time.Duration, reportPath string) error
}

// AutoClicker dismisses interactive prompts for a fixed duration. A zero
// duration returns immediately.
type AutoClicker interface {
	Click(d time.Duration) error
}

// NameRandomizer renames the files in a directory and records a restorable
// mapping.
type NameRandomizer interface {
	Randomize(dir, mapPath string) error
}

// Orchestrator runs the analysis phases described by one committed manifest.
type Orchestrator struct {
	ConfigPath string

	Watcher    FileWatcher
	Observer   NetworkObserver
	Clicker    AutoClicker
	Randomizer NameRandomizer

	log *logrus.Logger
	cfg *config.AnalysisConfig

	desktop   string
	toolsRoot string
	results   resultsLayout

	// stopWatcher closes the file collector; set in dynamic setup,
	// called once every phase has returned.
	stopWatcher func() error

	// seams for tests
	sleep         func(time.Duration)
	startDetached func(program string, args ...string) error
	runTool       func(exe string, args []string) ([]byte, error)
}

// New builds an orchestrator reading the manifest at configPath. Collaborator
// fields default to nil; callers wire the concrete implementations.
func New(configPath string, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		ConfigPath:    configPath,
		log:           log,
		sleep:         time.Sleep,
		startDetached: startDetached,
		runTool: func(exe string, args []string) ([]byte, error) {
			return exec.Command(exe, args...).Output()
		},
	}
}

func startDetached(program string, args ...string) error {
	cmd := exec.Command(program, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap in the background so the child never zombies; outcome is not
	// the orchestrator's concern once launched.
	go cmd.Wait()
	return nil
}

// Run loads the manifest, prepares the results tree, executes all four
// phases, and writes the run report. It returns an error only for the two
// fatal conditions: an unloadable manifest and an uncreatable results tree.
func (o *Orchestrator) Run() error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	o.desktop = filepath.Dir(o.ConfigPath)
	o.toolsRoot = filepath.Join(o.desktop, "Tools")
	root := cfg.ResultsPath
	if root == "" {
		root = filepath.Join(o.desktop, "Analysis_Results")
	}
	o.results = resultsLayout{root: root}

	for _, dir := range o.results.all() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create results dir %s: %w", dir, err)
		}
	}

	if o.Watcher == nil {
		o.Watcher = collector.New(o.log)
	}
	if o.Observer == nil {
		o.Observer = netwatch.New(o.log)
	}
	if o.Clicker == nil {
		o.Clicker = clicker.New(
			filepath.Join(o.toolsRoot, "Autoclicker"),
			filepath.Join(o.results.Autoclicker(), "clicks.log"),
			o.log,
		)
	}
	if o.Randomizer == nil {
		o.Randomizer = randomize.New(o.log)
	}

	report := NewReport()
	o.static(report)
	o.dynamicSetup(report)
	o.dynamicMonitor(report)
	o.execution(report)

	if o.stopWatcher != nil {
		if err := o.stopWatcher(); err != nil {
			o.log.WithError(err).Warn("file watcher teardown failed")
		}
	}

	reportPath := filepath.Join(root, ReportName)
	if err := report.Write(reportPath); err != nil {
		o.log.WithError(err).Error("run report not written")
	}
	o.log.WithFields(logrus.Fields{
		"steps":    len(report.Steps),
		"failures": len(report.Failures()),
		"report":   reportPath,
	}).Info("analysis run complete")
	return nil
}

// effectiveBinary resolves the path the phases act on. The manifest carries
// the provisioner's prediction; when an archive extracted under a different
// name, the prediction misses and the first file in its directory is used
// instead.
func (o *Orchestrator) effectiveBinary() (string, error) {
	target := o.cfg.Binary.VMPath
	if target == "" {
		return "", fmt.Errorf("manifest carries no in-guest binary path")
	}
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	dir := filepath.Dir(target)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("binary %s missing and %s unreadable: %w", target, dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			fallback := filepath.Join(dir, e.Name())
			o.log.WithFields(logrus.Fields{
				"predicted": target,
				"actual":    fallback,
			}).Warn("predicted binary missing, using first extracted file")
			return fallback, nil
		}
	}
	return "", fmt.Errorf("binary %s missing and %s holds no files", target, dir)
}

// toolExe locates a tool's executable under its staged folder: the preferred
// name first, then <tool>.exe, then the first .exe found.
func (o *Orchestrator) toolExe(tool, preferred string) (string, error) {
	dir := filepath.Join(o.toolsRoot, tool)
	candidates := []string{preferred, tool + ".exe"}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		p := filepath.Join(dir, c)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	var found string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !info.IsDir() && filepath.Ext(p) == ".exe" {
			found = p
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan tool dir %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("no executable under %s", dir)
	}
	return found, nil
}

func (o *Orchestrator) duration() time.Duration {
	return time.Duration(o.cfg.ProcmonSettings.Duration) * time.Second
}

func (o *Orchestrator) dynamicEnabled(name string) bool {
	return o.cfg.DynamicTools[name]
}
