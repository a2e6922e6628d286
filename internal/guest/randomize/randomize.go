// Package randomize renames files to random names so samples keyed on their
// own file name do not recognize themselves. The original names are recorded
// in a JSON map so the rename is reversible.
package randomize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Randomizer renames the files in a directory to uuid-derived names.
type Randomizer struct {
	log *logrus.Logger

	// newName is the name generator; replaced by tests.
	newName func() string
}

// New returns a randomizer logging through log.
func New(log *logrus.Logger) *Randomizer {
	return &Randomizer{log: log, newName: uuid.NewString}
}

// Randomize renames every regular file directly under dir to a uuid-derived
// name keeping its extension, then writes the original-to-new mapping to
// mapPath. Subdirectories are left alone. An empty directory produces an
// empty map.
func (r *Randomizer) Randomize(dir, mapPath string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		renamed := r.newName() + filepath.Ext(e.Name())
		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(dir, renamed)); err != nil {
			return fmt.Errorf("rename %s: %w", e.Name(), err)
		}
		names[e.Name()] = renamed
		r.log.WithFields(logrus.Fields{"from": e.Name(), "to": renamed}).Debug("file renamed")
	}

	return writeMap(mapPath, nameMap{Dir: dir, Names: names})
}

// Restore reverses a previous Randomize using its recorded map.
func Restore(mapPath string) error {
	data, err := os.ReadFile(mapPath)
	if err != nil {
		return fmt.Errorf("read name map: %w", err)
	}
	var m nameMap
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse name map: %w", err)
	}

	for original, renamed := range m.Names {
		if err := os.Rename(filepath.Join(m.Dir, renamed), filepath.Join(m.Dir, original)); err != nil {
			return fmt.Errorf("restore %s: %w", original, err)
		}
	}
	return nil
}

type nameMap struct {
	Dir   string            `json:"dir"`
	Names map[string]string `json:"names"` // original -> randomized
}

func writeMap(path string, m nameMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode name map: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write name map: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit name map: %w", err)
	}
	return nil
}
