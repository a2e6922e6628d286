package hypervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// virtualboxDriver drives VirtualBox through VBoxManage. Unlike VMware,
// VirtualBox addresses VMs by registered name, derived here from the base
// name of the VM file.
type virtualboxDriver struct {
	cli    string
	probed []string
	grace  time.Duration
	run    runner
}

func newVirtualBox(loc Locator) *virtualboxDriver {
	cli, probed := loc.Resolve()
	return &virtualboxDriver{
		cli:    cli,
		probed: probed,
		grace:  DefaultGrace,
		run:    execRunner{},
	}
}

// vmName derives the VirtualBox VM name from the VM file path.
func vmName(vmPath string) string {
	base := filepath.Base(vmPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (d *virtualboxDriver) check(vmPath string) error {
	if info, err := os.Stat(d.cli); err != nil || info.IsDir() {
		return &ToolMissingError{Tool: "VBoxManage.exe", Probed: d.probed}
	}
	if info, err := os.Stat(vmPath); err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrVMNotFound, vmPath)
	}
	return nil
}

func (d *virtualboxDriver) Snapshots(vmPath string) ([]string, error) {
	if err := d.check(vmPath); err != nil {
		return nil, err
	}
	stdout, stderr, err := d.run.run(d.cli, "snapshot", vmName(vmPath), "list")
	if err != nil {
		return nil, &RemoteCommandError{Op: "snapshot list", Stderr: stderr}
	}

	// Listing lines look like "   Name: clean (UUID: ...) *".
	var names []string
	for _, line := range strings.Split(stdout, "\n") {
		if !strings.Contains(line, "Name:") {
			continue
		}
		name := strings.TrimSpace(strings.SplitN(line, "Name:", 2)[1])
		if i := strings.Index(name, "(UUID:"); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("hypervisor: no snapshots in listing output: %q", strings.TrimSpace(stdout))
	}
	return names, nil
}

func (d *virtualboxDriver) Start(vmPath, snapshot string) error {
	if err := d.check(vmPath); err != nil {
		return err
	}
	name := vmName(vmPath)
	if snapshot != "" {
		if _, stderr, err := d.run.run(d.cli, "snapshot", name, "restore", snapshot); err != nil {
			return fmt.Errorf("restore snapshot %q: %w", snapshot, &RemoteCommandError{Op: "snapshot restore", Stderr: stderr})
		}
	}
	if stderr, err := d.run.detach(d.grace, d.cli, "startvm", name); err != nil {
		return fmt.Errorf("start VM: %w", &RemoteCommandError{Op: "startvm", Stderr: stderr})
	}
	return nil
}

func (d *virtualboxDriver) Ready(vmPath string) (bool, error) {
	stdout, stderr, err := d.run.run(d.cli,
		"guestproperty", "get", vmName(vmPath), "/VirtualBox/GuestAdd/Version")
	if err != nil {
		return false, &RemoteCommandError{Op: "guestproperty get", Stderr: stderr}
	}
	// The property is unset until Guest Additions are up.
	return !strings.Contains(stdout, "No value set!"), nil
}

func (d *virtualboxDriver) CopyToGuest(vmPath, hostPath, guestPath string, creds Credentials) error {
	if err := d.check(vmPath); err != nil {
		return err
	}
	if _, err := os.Stat(hostPath); err != nil {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, hostPath)
	}
	_, stderr, err := d.run.run(d.cli,
		"guestcontrol", vmName(vmPath), "copyto",
		"--username", creds.Username, "--password", creds.Password,
		hostPath, guestPath)
	if err != nil {
		return &RemoteCommandError{Op: "guestcontrol copyto", Stderr: stderr}
	}
	return nil
}

func (d *virtualboxDriver) RunInGuest(vmPath, program string, args []string, creds Credentials) error {
	if err := d.check(vmPath); err != nil {
		return err
	}
	cmdline := []string{
		"guestcontrol", vmName(vmPath), "start",
		"--username", creds.Username, "--password", creds.Password,
		program, "--",
	}
	cmdline = append(cmdline, args...)
	if stderr, err := d.run.detach(d.grace, d.cli, cmdline...); err != nil {
		return &RemoteCommandError{Op: "guestcontrol start", Stderr: stderr}
	}
	return nil
}
