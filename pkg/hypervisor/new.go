package hypervisor

import (
	"fmt"
	"strings"
)

// New creates a driver for the declared hypervisor type. overridePath, when
// non-empty, pins the vendor CLI executable instead of probing the common
// install locations. Callers never branch on vendor identity past this point.
func New(kind, overridePath string) (Driver, error) {
	switch strings.ToLower(kind) {
	case "vmware":
		return newVMware(VMwareLocator(overridePath)), nil
	case "virtualbox":
		return newVirtualBox(VirtualBoxLocator(overridePath)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHypervisor, kind)
	}
}
