package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func sampleConfig() *AnalysisConfig {
	return &AnalysisConfig{
		StaticTools:  map[string]bool{"Capa": true, "Yara": false},
		DynamicTools: map[string]bool{"Procmon": true, "Fakenet": true},
		ProcmonSettings: ProcmonSettings{
			Enabled:  true,
			Duration: 60,
		},
		Binary: Binary{
			Path: `C:\samples\dropper.exe`,
			Run:  true,
		},
		VM: &VM{
			Type:     "vmware",
			Path:     `C:\vms\win10\win10.vmx`,
			Username: "victim",
			Password: "hunter2",
			Snapshot: "clean",
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)

	want := sampleConfig()
	if err := want.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestRoundTripPreservesOrchestratorFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)

	cfg := sampleConfig()
	cfg.Binary.VMPath = `C:\Users\victim\Desktop\Binaries\dropper`
	cfg.ResultsPath = `C:\Users\victim\Desktop\Analysis_Results`
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Binary.VMPath != cfg.Binary.VMPath {
		t.Errorf("vm_path lost: %q", got.Binary.VMPath)
	}
	if got.ResultsPath != cfg.ResultsPath {
		t.Errorf("results_path lost: %q", got.ResultsPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "ghost.json"))
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	os.WriteFile(path, nil, 0644)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestLoadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	os.WriteFile(path, []byte("{not json"), 0644)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestEnabledTools(t *testing.T) {
	cfg := &AnalysisConfig{
		StaticTools:  map[string]bool{"Capa": true, "Yara": false, "Procmon": true},
		DynamicTools: map[string]bool{"Procmon": true, "Fakenet": true},
	}
	got := cfg.EnabledTools()
	sort.Strings(got)
	want := []string{"Capa", "Fakenet", "Procmon"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledTools = %v, want %v", got, want)
	}
}

func TestNoVMSectionStaysAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)

	cfg := sampleConfig()
	cfg.VM = nil
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.VM != nil {
		t.Errorf("vm section should stay absent, got %+v", got.VM)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), `"vm"`) {
		t.Errorf("serialized manifest should omit the vm key entirely")
	}
}
