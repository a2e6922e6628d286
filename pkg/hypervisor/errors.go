package hypervisor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedHypervisor is returned by New for unknown vendor types.
	ErrUnsupportedHypervisor = errors.New("hypervisor: unsupported hypervisor type")

	// ErrVMNotFound is returned when the VM file does not exist on the host.
	ErrVMNotFound = errors.New("hypervisor: VM file not found")

	// ErrSourceNotFound is returned when a host file to transfer is missing.
	ErrSourceNotFound = errors.New("hypervisor: source file not found")
)

// ToolMissingError reports an absent vendor automation CLI. It carries the
// locations that were probed so the message doubles as remediation guidance.
type ToolMissingError struct {
	Tool   string   // executable name, e.g. "vmrun.exe"
	Probed []string // install locations tried, in order
}

func (e *ToolMissingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hypervisor: %s not found; specify the correct path or install it in one of the common locations:", e.Tool)
	for _, p := range e.Probed {
		b.WriteString("\n  - ")
		b.WriteString(p)
	}
	return b.String()
}

// RemoteCommandError reports a guest-directed operation that exited nonzero.
// Stderr is the vendor tool's diagnostic output, verbatim.
type RemoteCommandError struct {
	Op     string // vendor subcommand, e.g. "copyFileFromHostToGuest"
	Stderr string
}

func (e *RemoteCommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("hypervisor: %s failed", e.Op)
	}
	return fmt.Sprintf("hypervisor: %s failed: %s", e.Op, strings.TrimSpace(e.Stderr))
}
