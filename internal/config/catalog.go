package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a tool or binary is absent from the catalog
// or the filesystem. Lookup failures are fatal before any guest mutation.
var ErrNotFound = errors.New("config: not found")

// ArchiveTool is the catalog name of the archive utility. It is staged on
// every run regardless of tool selection: the guest needs it to unpack
// password-protected targets.
const ArchiveTool = "7z"

// Catalog maps tool names to host-local source paths. Names resolve through
// an optional explicit catalog file first, then as subdirectories of the
// tools root.
type Catalog struct {
	toolsRoot string
	entries   map[string]string
}

// NewCatalog creates a catalog backed only by the tools root directory.
func NewCatalog(toolsRoot string) *Catalog {
	return &Catalog{toolsRoot: toolsRoot, entries: map[string]string{}}
}

// LoadCatalog reads a YAML catalog file mapping tool names to paths and
// falls back to the tools root for names the file does not cover.
func LoadCatalog(path, toolsRoot string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	entries := map[string]string{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &Catalog{toolsRoot: toolsRoot, entries: entries}, nil
}

// Resolve returns the host-local source path for a tool name.
func (c *Catalog) Resolve(name string) (string, error) {
	if p, ok := c.entries[name]; ok {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: tool %q at %s", ErrNotFound, name, p)
		}
		return p, nil
	}
	p := filepath.Join(c.toolsRoot, name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%w: tool %q", ErrNotFound, name)
	}
	return p, nil
}
