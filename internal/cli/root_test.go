package cli

import "testing"

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"provision": false,
		"snapshots": false,
		"version":   false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestProvisionRequiresConfigFlag(t *testing.T) {
	if provisionCmd.Flags().Lookup("config") == nil {
		t.Fatal("provision must expose --config")
	}
	for _, name := range []string{"work-dir", "tools-root", "catalog"} {
		if provisionCmd.Flags().Lookup(name) == nil {
			t.Errorf("provision missing --%s", name)
		}
	}
}

func TestSnapshotsFlags(t *testing.T) {
	for _, name := range []string{"type", "vm", "hypervisor-path"} {
		if snapshotsCmd.Flags().Lookup(name) == nil {
			t.Errorf("snapshots missing --%s", name)
		}
	}
}
