// Package archive wraps the 7-Zip command line tool for extraction and
// encryption probing, mapping its diagnostics onto a small error taxonomy.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrArchivePassword reports extraction that failed on a wrong or
	// missing password.
	ErrArchivePassword = errors.New("archive: wrong password")

	// ErrArchiveFormat reports a file that is not a valid archive.
	ErrArchiveFormat = errors.New("archive: not a valid archive")
)

// SevenZip drives a 7z.exe (or 7z) executable.
type SevenZip struct {
	Path string

	// run is the process seam for tests.
	run func(args ...string) (stdout, stderr string, err error)
}

// New creates a wrapper for the 7-Zip executable at path.
func New(path string) (*SevenZip, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("7-Zip executable not found at %s: %w", path, err)
	}
	z := &SevenZip{Path: path}
	z.run = z.execute
	return z, nil
}

func (z *SevenZip) execute(args ...string) (string, string, error) {
	cmd := exec.Command(z.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Extract unpacks an archive into dest, honoring an optional password.
// Wrong-password and not-an-archive failures are returned as their
// distinguishable taxonomy errors.
func (z *SevenZip) Extract(archivePath, dest, password string) error {
	args := []string{"x", archivePath, "-o" + dest, "-y"}
	if password != "" {
		args = append(args, "-p"+password)
	}

	stdout, stderr, err := z.run(args...)
	if err != nil {
		if kind := Classify(stderr + stdout); kind != nil {
			return kind
		}
		return fmt.Errorf("extract %s: %w: %s", archivePath, err, strings.TrimSpace(stderr))
	}
	return nil
}

// IsEncrypted reports whether the archive is password protected, using the
// technical listing output.
func (z *SevenZip) IsEncrypted(archivePath string) (bool, error) {
	stdout, stderr, err := z.run("l", "-slt", archivePath)
	if err != nil {
		return false, fmt.Errorf("list %s: %w: %s", archivePath, err, strings.TrimSpace(stderr))
	}
	return strings.Contains(stdout, "Encrypted = +"), nil
}

// Classify maps 7-Zip diagnostic output onto the taxonomy. Returns nil when
// the output matches no known failure kind.
func Classify(output string) error {
	switch {
	case strings.Contains(output, "Wrong password"):
		return ErrArchivePassword
	case strings.Contains(output, "Cannot open the file as archive"):
		return ErrArchiveFormat
	default:
		return nil
	}
}
