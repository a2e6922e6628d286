package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanstorm/guestlab/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit hash, and build date of guestlab.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("guestlab %s\n", version.Version)
		fmt.Printf("  Commit:     %s\n", version.Commit)
		fmt.Printf("  Build Date: %s\n", version.BuildDate)
	},
}
