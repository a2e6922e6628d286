package hypervisor

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultGrace is how long detached launches are watched for immediate
// failure before being assumed healthy.
const DefaultGrace = 2 * time.Second

// vmwareDriver drives VMware Workstation/Player through vmrun. VMs are
// identified by the path of their .vmx file; guest credentials travel per
// call via -gu/-gp.
type vmwareDriver struct {
	cli    string   // resolved vmrun path
	probed []string // locations considered, for remediation text
	grace  time.Duration
	run    runner
}

func newVMware(loc Locator) *vmwareDriver {
	cli, probed := loc.Resolve()
	return &vmwareDriver{
		cli:    cli,
		probed: probed,
		grace:  DefaultGrace,
		run:    execRunner{},
	}
}

// check validates that vmrun and the VM file exist before shelling out.
func (d *vmwareDriver) check(vmPath string) error {
	if info, err := os.Stat(d.cli); err != nil || info.IsDir() {
		return &ToolMissingError{Tool: "vmrun.exe", Probed: d.probed}
	}
	if info, err := os.Stat(vmPath); err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrVMNotFound, vmPath)
	}
	return nil
}

func (d *vmwareDriver) Snapshots(vmPath string) ([]string, error) {
	if err := d.check(vmPath); err != nil {
		return nil, err
	}
	stdout, stderr, err := d.run.run(d.cli, "listSnapshots", vmPath)
	if err != nil {
		return nil, &RemoteCommandError{Op: "listSnapshots", Stderr: stderr}
	}

	// First line is the snapshot count; the names follow one per line.
	lines := strings.Split(stdout, "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("hypervisor: unparsable listSnapshots output: %q", strings.TrimSpace(stdout))
	}
	var names []string
	for _, line := range lines[1:] {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (d *vmwareDriver) Start(vmPath, snapshot string) error {
	if err := d.check(vmPath); err != nil {
		return err
	}
	if snapshot != "" {
		if _, stderr, err := d.run.run(d.cli, "revertToSnapshot", vmPath, snapshot); err != nil {
			return fmt.Errorf("revert to snapshot %q: %w", snapshot, &RemoteCommandError{Op: "revertToSnapshot", Stderr: stderr})
		}
	}
	if stderr, err := d.run.detach(d.grace, d.cli, "start", vmPath); err != nil {
		return fmt.Errorf("start VM: %w", &RemoteCommandError{Op: "start", Stderr: stderr})
	}
	return nil
}

func (d *vmwareDriver) Ready(vmPath string) (bool, error) {
	stdout, stderr, err := d.run.run(d.cli, "checkToolsState", vmPath)
	if err != nil {
		return false, &RemoteCommandError{Op: "checkToolsState", Stderr: stderr}
	}
	return strings.Contains(strings.ToLower(stdout), "running"), nil
}

func (d *vmwareDriver) CopyToGuest(vmPath, hostPath, guestPath string, creds Credentials) error {
	if err := d.check(vmPath); err != nil {
		return err
	}
	if _, err := os.Stat(hostPath); err != nil {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, hostPath)
	}
	_, stderr, err := d.run.run(d.cli,
		"-gu", creds.Username, "-gp", creds.Password,
		"copyFileFromHostToGuest", vmPath, hostPath, guestPath)
	if err != nil {
		return &RemoteCommandError{Op: "copyFileFromHostToGuest", Stderr: stderr}
	}
	return nil
}

func (d *vmwareDriver) RunInGuest(vmPath, program string, args []string, creds Credentials) error {
	if err := d.check(vmPath); err != nil {
		return err
	}
	cmdline := append([]string{
		"-gu", creds.Username, "-gp", creds.Password,
		"runProgramInGuest", vmPath, program,
	}, args...)
	if stderr, err := d.run.detach(d.grace, d.cli, cmdline...); err != nil {
		return &RemoteCommandError{Op: "runProgramInGuest", Stderr: stderr}
	}
	return nil
}
