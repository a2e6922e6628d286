// Package main is the guest-side agent: run inside the provisioned VM, it
// reads the manifest committed to the desktop and drives the analysis phases.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/javanstorm/guestlab/internal/config"
	"github.com/javanstorm/guestlab/internal/guest"
	"github.com/javanstorm/guestlab/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "guestagent",
	Short:         "Run the in-guest analysis phases from the committed manifest",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("locate manifest: %w", err)
			}
			path = filepath.Join(home, "Desktop", config.ManifestName)
		}

		log, err := logging.New(filepath.Join(filepath.Dir(path), "guestagent.log"))
		if err != nil {
			return err
		}
		return guest.New(path, log).Run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Manifest path (default: committed desktop manifest)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
