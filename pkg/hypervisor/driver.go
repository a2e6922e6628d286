// Package hypervisor provides a unified interface for driving analysis VMs
// through vendor automation CLIs (VMware vmrun, VirtualBox VBoxManage).
package hypervisor

// Credentials authenticate guest-directed operations. The hypervisor tools
// pass them per call; no session is kept open.
type Credentials struct {
	Username string
	Password string
}

// Driver is the vendor-neutral interface over one hypervisor's automation CLI.
// Implementations never retry internally; every operation returns an explicit
// outcome plus diagnostic and leaves retry policy to the caller.
type Driver interface {
	// Snapshots lists snapshot names for the VM in the vendor's reported
	// order. Empty or unparsable listing output yields an empty slice and
	// a non-nil error describing why.
	Snapshots(vmPath string) ([]string, error)

	// Start boots the VM as a detached process. If snapshot is non-empty the
	// VM is reverted to it first, and a revert failure is fatal: the VM is
	// never started on an unintended state. The launch itself is watched
	// only for a short grace period; surviving it counts as success even
	// though the guest is still booting.
	Start(vmPath, snapshot string) error

	// Ready reports whether the guest OS and its automation agent accept
	// commands. A probe failure is returned as (false, err); callers poll.
	Ready(vmPath string) (bool, error)

	// CopyToGuest transfers a single host file into the guest filesystem.
	CopyToGuest(vmPath, hostPath, guestPath string, creds Credentials) error

	// RunInGuest launches a program inside the guest, detached after the
	// grace-period check. No further supervision of the guest process
	// occurs; only an immediate nonzero exit is reported as an error.
	RunInGuest(vmPath, program string, args []string, creds Credentials) error
}
