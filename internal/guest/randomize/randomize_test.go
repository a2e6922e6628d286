package randomize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/javanstorm/guestlab/internal/logging"
)

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func TestRandomizeKeepsExtensionsAndContent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sample.exe"), []byte("MZ"), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := New(logging.Discard())
	seq := 0
	r.newName = func() string { seq++; return fmt.Sprintf("rand%d", seq) }

	mapPath := filepath.Join(t.TempDir(), "name_map.json")
	if err := r.Randomize(dir, mapPath); err != nil {
		t.Fatalf("Randomize: %v", err)
	}

	got := listFiles(t, dir)
	for _, n := range got {
		if n == "sample.exe" || n == "notes.txt" {
			t.Errorf("original name survived: %s", n)
		}
	}
	exts := map[string]bool{}
	for _, n := range got {
		exts[filepath.Ext(n)] = true
	}
	if !exts[".exe"] || !exts[".txt"] {
		t.Errorf("extensions must be preserved, got %v", got)
	}
}

func TestRandomizeSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "keepme"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	r := New(logging.Discard())
	if err := r.Randomize(dir, filepath.Join(t.TempDir(), "name_map.json")); err != nil {
		t.Fatalf("Randomize: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "keepme")); err != nil {
		t.Error("subdirectory must not be renamed")
	}
}

func TestRestoreReversesRandomize(t *testing.T) {
	dir := t.TempDir()
	want := []string{"a.exe", "b.dll"}
	for _, n := range want {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	mapPath := filepath.Join(t.TempDir(), "name_map.json")
	r := New(logging.Discard())
	if err := r.Randomize(dir, mapPath); err != nil {
		t.Fatalf("Randomize: %v", err)
	}
	if err := Restore(mapPath); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got := listFiles(t, dir)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.exe"))
	if err != nil || string(data) != "a.exe" {
		t.Errorf("content lost in round trip: %q, %v", data, err)
	}
}
