package provision

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/javanstorm/guestlab/internal/config"
)

// Stager assembles the two host-local scratch roots: the tool staging
// directory (manifest + selected tools, later packaged into the payload) and
// the binary staging directory. Both are recreated empty at the start of
// every run and destroyed on any failure.
type Stager struct {
	ToolDir   string
	BinaryDir string
	Catalog   *config.Catalog

	log *logrus.Logger
}

// NewStager creates a stager rooted under workDir.
func NewStager(workDir string, catalog *config.Catalog, log *logrus.Logger) *Stager {
	return &Stager{
		ToolDir:   filepath.Join(workDir, "tool_staging"),
		BinaryDir: filepath.Join(workDir, "binary_staging"),
		Catalog:   catalog,
		log:       log,
	}
}

// Reset recreates both staging directories empty.
func (s *Stager) Reset() error {
	for _, dir := range []string{s.ToolDir, s.BinaryDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear staging dir %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create staging dir %s: %w", dir, err)
		}
	}
	return nil
}

// Cleanup removes both staging directories, best effort. Called on any
// pipeline failure before the original error is surfaced.
func (s *Stager) Cleanup() {
	for _, dir := range []string{s.ToolDir, s.BinaryDir} {
		if err := os.RemoveAll(dir); err != nil {
			s.log.WithError(err).WithField("dir", dir).Warn("staging cleanup failed")
		}
	}
}

// WriteManifest persists the config as the tool staging directory's
// manifest file and returns its path.
func (s *Stager) WriteManifest(cfg *config.AnalysisConfig) (string, error) {
	path := filepath.Join(s.ToolDir, config.ManifestName)
	if err := cfg.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// StageTools copies every enabled tool plus the archive utility into the
// tool staging directory. A catalog miss aborts before any guest mutation.
func (s *Stager) StageTools(cfg *config.AnalysisConfig) error {
	names := cfg.EnabledTools()
	sort.Strings(names)

	staged := map[string]bool{}
	for _, name := range append(names, config.ArchiveTool) {
		if staged[name] {
			continue
		}
		staged[name] = true

		src, err := s.Catalog.Resolve(name)
		if err != nil {
			return err
		}
		dest := filepath.Join(s.ToolDir, name)
		if err := copyTree(src, dest); err != nil {
			return fmt.Errorf("stage tool %q: %w", name, err)
		}
		s.log.WithField("tool", name).Info("staged tool")
	}
	return nil
}

// StageBinary copies the analysis target into the binary staging directory,
// preserving mode and timestamps, and returns the staged path.
func (s *Stager) StageBinary(srcPath string) (string, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("%w: binary %s", config.ErrNotFound, srcPath)
	}
	dest := filepath.Join(s.BinaryDir, filepath.Base(srcPath))
	if err := copyFile(srcPath, dest, info); err != nil {
		return "", fmt.Errorf("stage binary: %w", err)
	}
	return dest, nil
}

// copyTree copies a file or directory tree preserving file modes and
// modification times.
func copyTree(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dest, info)
	}

	return filepath.Walk(src, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if fi.IsDir() {
			return os.MkdirAll(target, fi.Mode().Perm())
		}
		return copyFile(p, target, fi)
	})
}

func copyFile(src, dest string, info os.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
