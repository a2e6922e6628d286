package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds host-side operator configuration: where staging happens and
// where tools are sourced from. Distinct from AnalysisConfig, which describes
// one analysis run and travels to the guest.
type Settings struct {
	// WorkDir is the root for staging directories and the host log.
	WorkDir string `mapstructure:"work_dir"`

	// ToolsRoot holds one subdirectory per analysis tool.
	ToolsRoot string `mapstructure:"tools_root"`

	// CatalogPath is an optional YAML file mapping tool names to paths
	// outside the tools root.
	CatalogPath string `mapstructure:"catalog_path"`
}

// DefaultSettings returns settings rooted under the user's home directory.
func DefaultSettings() *Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	base := filepath.Join(home, ".guestlab")
	return &Settings{
		WorkDir:   base,
		ToolsRoot: filepath.Join(base, "tools"),
	}
}

// LoadSettings reads settings from file, environment, and defaults. The
// config file is optional: GUESTLAB_WORK_DIR style environment variables and
// defaults cover its absence.
func LoadSettings() (*Settings, error) {
	defaults := DefaultSettings()
	viper.SetDefault("work_dir", defaults.WorkDir)
	viper.SetDefault("tools_root", defaults.ToolsRoot)
	viper.SetDefault("catalog_path", defaults.CatalogPath)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaults.WorkDir)

	viper.SetEnvPrefix("GUESTLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	s := &Settings{}
	if err := viper.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}
