package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/javanstorm/guestlab/internal/config"
	"github.com/javanstorm/guestlab/internal/logging"
	"github.com/javanstorm/guestlab/internal/provision"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Stage tools and a binary, then provision the target VM",
	Long: `Stage the enabled tools and the analysis binary locally, package them
into a payload, and - when the config declares a vm - revert it to its
snapshot, boot it, wait for readiness, transfer everything, extract archives,
and commit the manifest to the guest desktop.

Without a vm section the run stops after packaging (local-only).`,
	RunE: runProvision,
}

var (
	provisionConfig    string
	provisionWorkDir   string
	provisionToolsRoot string
	provisionCatalog   string
)

func init() {
	provisionCmd.Flags().StringVarP(&provisionConfig, "config", "c", "", "Analysis config file (required)")
	provisionCmd.Flags().StringVar(&provisionWorkDir, "work-dir", "", "Staging root (default from settings)")
	provisionCmd.Flags().StringVar(&provisionToolsRoot, "tools-root", "", "Tool source directory (default from settings)")
	provisionCmd.Flags().StringVar(&provisionCatalog, "catalog", "", "YAML tool catalog file (optional)")
	provisionCmd.MarkFlagRequired("config")
}

func runProvision(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if provisionWorkDir != "" {
		settings.WorkDir = provisionWorkDir
	}
	if provisionToolsRoot != "" {
		settings.ToolsRoot = provisionToolsRoot
	}
	if provisionCatalog != "" {
		settings.CatalogPath = provisionCatalog
	}

	if err := os.MkdirAll(settings.WorkDir, 0755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	log, err := logging.New(filepath.Join(settings.WorkDir, "guestlab.log"))
	if err != nil {
		return err
	}

	cfg, err := config.Load(provisionConfig)
	if err != nil {
		return err
	}

	catalog := config.NewCatalog(settings.ToolsRoot)
	if settings.CatalogPath != "" {
		catalog, err = config.LoadCatalog(settings.CatalogPath, settings.ToolsRoot)
		if err != nil {
			return err
		}
	}

	p := provision.New(settings.WorkDir, catalog, log)
	if err := p.Run(cfg); err != nil {
		return err
	}

	if cfg.VM == nil {
		fmt.Printf("Payload built: %s\n", filepath.Join(p.Stager.ToolDir, provision.PayloadName))
		fmt.Println("No vm declared; nothing was transferred.")
		return nil
	}

	fmt.Printf("VM provisioned: %s\n", cfg.VM.Path)
	fmt.Printf("  Target:  %s\n", cfg.Binary.VMPath)
	fmt.Printf("  Results: %s\n", cfg.ResultsPath)
	return nil
}
