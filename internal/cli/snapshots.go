package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanstorm/guestlab/pkg/hypervisor"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List a VM's snapshots",
	Long: `List the snapshots of a VMware or VirtualBox VM, as reported by the
vendor's command-line tool.`,
	RunE: runSnapshots,
}

var (
	snapshotsType   string
	snapshotsVM     string
	snapshotsHVPath string
)

func init() {
	snapshotsCmd.Flags().StringVarP(&snapshotsType, "type", "t", "", "Hypervisor type: vmware or virtualbox (required)")
	snapshotsCmd.Flags().StringVar(&snapshotsVM, "vm", "", "VM definition file, .vmx or .vbox (required)")
	snapshotsCmd.Flags().StringVar(&snapshotsHVPath, "hypervisor-path", "", "Explicit path to vmrun/VBoxManage")
	snapshotsCmd.MarkFlagRequired("type")
	snapshotsCmd.MarkFlagRequired("vm")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	drv, err := hypervisor.New(snapshotsType, snapshotsHVPath)
	if err != nil {
		return err
	}

	snapshots, err := drv.Snapshots(snapshotsVM)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found.")
		return nil
	}

	fmt.Println("Snapshots:")
	for _, name := range snapshots {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
