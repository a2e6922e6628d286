package hypervisor

import "os"

// Locator resolves a vendor automation CLI executable. The probe list is a
// configuration value rather than a compiled-in constant so tests can
// substitute fixture paths.
type Locator struct {
	// Override is an explicit executable path. When set it wins outright.
	Override string

	// Probe is the ordered list of common install locations.
	Probe []string

	// Fallback is the bare executable name, relying on the default search
	// path. Used when nothing in Probe exists.
	Fallback string
}

// Resolve returns the executable path to use and the list of locations that
// were considered. The returned path is not guaranteed to exist; operations
// re-check and report a ToolMissingError carrying the probed list.
func (l Locator) Resolve() (path string, probed []string) {
	if l.Override != "" {
		return l.Override, []string{l.Override}
	}
	for _, p := range l.Probe {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, l.Probe
		}
	}
	return l.Fallback, l.Probe
}

// VMwareLocator probes the stock Workstation and Player install paths.
func VMwareLocator(override string) Locator {
	return Locator{
		Override: override,
		Probe: []string{
			`C:\Program Files (x86)\VMware\VMware Workstation\vmrun.exe`,
			`C:\Program Files\VMware\VMware Workstation\vmrun.exe`,
			`C:\Program Files (x86)\VMware\VMware Player\vmrun.exe`,
			`C:\Program Files\VMware\VMware Player\vmrun.exe`,
		},
		Fallback: "vmrun.exe",
	}
}

// VirtualBoxLocator probes the stock VirtualBox install paths.
func VirtualBoxLocator(override string) Locator {
	return Locator{
		Override: override,
		Probe: []string{
			`C:\Program Files\Oracle\VirtualBox\VBoxManage.exe`,
			`C:\Program Files (x86)\Oracle\VirtualBox\VBoxManage.exe`,
		},
		Fallback: "VBoxManage.exe",
	}
}
