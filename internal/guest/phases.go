package guest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// static runs every enabled static tool, blocking, against the effective
// binary. Standard output lands in one file per tool. A missing executable
// is a skip, not a failure; a failing tool never stops the remaining ones.
func (o *Orchestrator) static(report *RunReport) {
	target, err := o.effectiveBinary()
	if err != nil {
		report.fail("static", "resolve binary", err)
		return
	}

	var tools []string
	for name, enabled := range o.cfg.StaticTools {
		if enabled {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)

	for _, tool := range tools {
		exe, err := o.toolExe(tool, "")
		if err != nil {
			o.log.WithField("tool", tool).Warn("static tool executable not found, skipping")
			report.skip("static", tool, err.Error())
			continue
		}

		out, err := o.runTool(exe, []string{target})
		resultFile := filepath.Join(o.results.StaticAnalysis(), tool+"_results.txt")
		if writeErr := os.WriteFile(resultFile, out, 0644); writeErr != nil {
			report.fail("static", tool, fmt.Errorf("write results: %w", writeErr))
			continue
		}
		if err != nil {
			report.fail("static", tool, fmt.Errorf("run %s: %w", tool, err))
			continue
		}
		report.ok("static", tool, resultFile)
	}
}

// dynamicSetup starts the collaborators that must be active before the
// binary executes. The watcher runs until every phase has returned; the
// observer and the clicker block for their configured duration; the
// randomizer rewrites the binary directory's names before execution touches
// them.
func (o *Orchestrator) dynamicSetup(report *RunReport) {
	if o.dynamicEnabled("CaptureFiles") && o.Watcher != nil {
		dirs := []string{
			o.desktop,
			filepath.Join(filepath.Dir(o.desktop), "Downloads"),
			os.TempDir(),
		}
		stop, err := o.Watcher.Watch(dirs, o.results.CapturedFiles())
		if err != nil {
			report.fail("dynamic-setup", "file watcher", err)
		} else {
			o.stopWatcher = stop
			report.ok("dynamic-setup", "file watcher", "watching")
		}
	}

	if o.dynamicEnabled("Fakenet") && o.Observer != nil {
		out := filepath.Join(o.results.NetworkAnalysis(), "connections.json")
		if err := o.Observer.Observe(o.duration(), out); err != nil {
			report.fail("dynamic-setup", "network observer", err)
		} else {
			report.ok("dynamic-setup", "network observer", out)
		}
	}

	if o.dynamicEnabled("Autoclicker") && o.Clicker != nil {
		if err := o.Clicker.Click(o.duration()); err != nil {
			report.fail("dynamic-setup", "auto-clicker", err)
		} else {
			report.ok("dynamic-setup", "auto-clicker", "")
		}
	}

	if o.dynamicEnabled("RandomizeNames") && o.Randomizer != nil {
		target, err := o.effectiveBinary()
		if err != nil {
			report.fail("dynamic-setup", "name randomizer", err)
			return
		}
		mapPath := filepath.Join(o.results.RandomizedNames(), "name_map.json")
		if err := o.Randomizer.Randomize(filepath.Dir(target), mapPath); err != nil {
			report.fail("dynamic-setup", "name randomizer", err)
		} else {
			report.ok("dynamic-setup", "name randomizer", mapPath)
		}
	}
}

// dynamicMonitor launches the fire-and-forget background monitors. They must
// be running before execution; they are never awaited.
func (o *Orchestrator) dynamicMonitor(report *RunReport) {
	if o.dynamicEnabled("Procmon") && o.cfg.ProcmonSettings.Enabled {
		o.launchMonitor(report, "Procmon", "Procmon64.exe",
			"/AcceptEula", "/Quiet", "/Minimized",
			"/BackingFile", filepath.Join(o.results.root, "procmon.pml"))
	}

	if o.dynamicEnabled("Fakenet") {
		o.launchMonitor(report, "Fakenet", "fakenet.exe")
	}

	if o.dynamicEnabled("ProcDump") {
		target, err := o.effectiveBinary()
		if err != nil {
			report.fail("dynamic-monitor", "ProcDump", err)
		} else {
			base := filepath.Base(target)
			stem := base[:len(base)-len(filepath.Ext(base))]
			o.launchMonitor(report, "ProcDump", "procdump64.exe",
				"-ma", "-e", "-w", stem, filepath.Join(o.results.root, "dump.dmp"))
		}
	}
}

func (o *Orchestrator) launchMonitor(report *RunReport, tool, preferred string, args ...string) {
	exe, err := o.toolExe(tool, preferred)
	if err != nil {
		o.log.WithField("tool", tool).Warn("monitor executable not found, skipping")
		report.skip("dynamic-monitor", tool, err.Error())
		return
	}
	if err := o.startDetached(exe, args...); err != nil {
		report.fail("dynamic-monitor", tool, err)
		return
	}
	report.ok("dynamic-monitor", tool, exe)
}

// execution launches the effective binary detached, elevated when the
// manifest asks for it. When the process monitor runs on a timer, execution
// sleeps out the window and then tells the monitor to stop and flush.
func (o *Orchestrator) execution(report *RunReport) {
	if o.cfg.Binary.Run {
		target, err := o.effectiveBinary()
		if err != nil {
			report.fail("execution", "binary", err)
		} else {
			program, args := target, []string(nil)
			if o.cfg.Binary.AsAdmin {
				program, args = "runas", []string{"/user:Administrator", target}
			}
			if err := o.startDetached(program, args...); err != nil {
				report.fail("execution", "binary", err)
			} else {
				report.ok("execution", "binary", target)
			}
		}
	}

	timed := o.dynamicEnabled("Procmon") &&
		o.cfg.ProcmonSettings.Enabled &&
		!o.cfg.ProcmonSettings.DisableTimer
	if !timed {
		return
	}

	o.sleep(o.duration())
	exe, err := o.toolExe("Procmon", "Procmon64.exe")
	if err != nil {
		report.fail("execution", "procmon terminate", err)
		return
	}
	if _, err := o.runTool(exe, []string{"/Terminate"}); err != nil {
		report.fail("execution", "procmon terminate", fmt.Errorf("terminate: %w", err))
		return
	}
	report.ok("execution", "procmon terminate",
		fmt.Sprintf("after %s", time.Duration(o.cfg.ProcmonSettings.Duration)*time.Second))
}
