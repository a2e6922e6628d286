// Package cli provides the command-line interface for guestlab.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guestlab",
	Short: "guestlab - provision analysis VMs and stage malware samples",
	Long: `guestlab stages analysis tooling and a target binary on the host,
packages them into a payload, and provisions a VMware or VirtualBox guest:
snapshot revert, boot, readiness wait, transfer, in-guest extraction, and
manifest commit. The guest-side agent (guestagent) then drives the analysis
phases from the committed manifest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(versionCmd)
}
