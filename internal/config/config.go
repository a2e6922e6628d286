// Package config defines the analysis configuration: authored once on the
// host, committed to the guest as the manifest, and consumed once by the
// guest-side orchestrator.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrConfigInvalid is returned when the manifest is unreadable or empty.
var ErrConfigInvalid = errors.New("config: invalid or empty configuration")

// ManifestName is the manifest file name, both in the staging directory and
// on the guest desktop.
const ManifestName = "analysis_config.json"

// ProcmonSettings controls the timed process monitor.
type ProcmonSettings struct {
	Enabled      bool `json:"enabled" mapstructure:"enabled"`
	Duration     int  `json:"duration" mapstructure:"duration"` // seconds
	DisableTimer bool `json:"disable_timer" mapstructure:"disable_timer"`
}

// Binary describes the analysis target.
type Binary struct {
	Path     string `json:"path" mapstructure:"path"`
	Run      bool   `json:"run" mapstructure:"run"`
	AsAdmin  bool   `json:"as_admin" mapstructure:"as_admin"`
	Password string `json:"password,omitempty" mapstructure:"password"`

	// VMPath is the effective guest-resident target path. Written by the
	// provisioning orchestrator, never author-supplied.
	VMPath string `json:"vm_path,omitempty" mapstructure:"vm_path"`
}

// VM declares the target virtual machine. Its absence means local-only
// provisioning: the payload is built but nothing is transferred.
type VM struct {
	Type           string `json:"type" mapstructure:"type"`
	Path           string `json:"path" mapstructure:"path"`
	Username       string `json:"username" mapstructure:"username"`
	Password       string `json:"password" mapstructure:"password"`
	BinaryPassword string `json:"binary_password,omitempty" mapstructure:"binary_password"`
	HypervisorPath string `json:"hypervisor_path,omitempty" mapstructure:"hypervisor_path"`
	Snapshot       string `json:"snapshot,omitempty" mapstructure:"snapshot"`
}

// AnalysisConfig is the single source of truth for one analysis run.
type AnalysisConfig struct {
	StaticTools     map[string]bool `json:"static_tools" mapstructure:"static_tools"`
	DynamicTools    map[string]bool `json:"dynamic_tools" mapstructure:"dynamic_tools"`
	ProcmonSettings ProcmonSettings `json:"procmon_settings" mapstructure:"procmon_settings"`
	Binary          Binary          `json:"binary" mapstructure:"binary"`
	VM              *VM             `json:"vm,omitempty" mapstructure:"vm"`

	// ResultsPath is the guest results root. Orchestrator-written.
	ResultsPath string `json:"results_path,omitempty" mapstructure:"results_path"`
}

// Load reads and parses a manifest. Unreadable or empty content is
// ErrConfigInvalid; the guest-side orchestrator treats that as fatal.
func Load(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrConfigInvalid, path)
	}
	var cfg AnalysisConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfigInvalid, path, err)
	}
	return &cfg, nil
}

// Save writes the manifest atomically via temp file + rename.
func (c *AnalysisConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// EnabledTools returns the tool names mapped true across both catalogs,
// deduplicated. Order is not specified.
func (c *AnalysisConfig) EnabledTools() []string {
	seen := make(map[string]bool)
	var names []string
	for _, tools := range []map[string]bool{c.StaticTools, c.DynamicTools} {
		for name, enabled := range tools {
			if enabled && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
