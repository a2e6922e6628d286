package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCatalogResolvesFromToolsRoot(t *testing.T) {
	root := t.TempDir()
	capaDir := filepath.Join(root, "Capa")
	if err := os.MkdirAll(capaDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	c := NewCatalog(root)
	got, err := c.Resolve("Capa")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != capaDir {
		t.Errorf("Resolve = %q, want %q", got, capaDir)
	}
}

func TestCatalogMissingToolIsNotFound(t *testing.T) {
	c := NewCatalog(t.TempDir())
	_, err := c.Resolve("Ghidra")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogFileOverridesToolsRoot(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	yaraDir := filepath.Join(elsewhere, "yara-4.5")
	os.MkdirAll(yaraDir, 0755)

	catalogFile := filepath.Join(t.TempDir(), "catalog.yaml")
	os.WriteFile(catalogFile, []byte("Yara: "+yaraDir+"\n"), 0644)

	c, err := LoadCatalog(catalogFile, root)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	got, err := c.Resolve("Yara")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != yaraDir {
		t.Errorf("Resolve = %q, want %q", got, yaraDir)
	}
}

func TestCatalogFileEntryWithMissingPath(t *testing.T) {
	catalogFile := filepath.Join(t.TempDir(), "catalog.yaml")
	os.WriteFile(catalogFile, []byte("Yara: /does/not/exist\n"), 0644)

	c, err := LoadCatalog(catalogFile, t.TempDir())
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if _, err := c.Resolve("Yara"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for dangling catalog entry, got %v", err)
	}
}
