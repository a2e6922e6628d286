package provision

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PayloadName is the fixed payload archive name, on the host and the guest.
const PayloadName = "tools.zip"

// BuildPayload packages the entire staging directory into one zip archive
// inside that same directory. Relative paths are preserved and the payload
// excludes itself from its own contents. The structure is deterministic:
// filepath.Walk visits entries in lexical order.
func BuildPayload(stagingDir string) (string, error) {
	zipPath := filepath.Join(stagingDir, PayloadName)

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create payload: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.Walk(stagingDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || p == zipPath {
			return nil
		}
		rel, err := filepath.Rel(stagingDir, p)
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return "", fmt.Errorf("package staging dir: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize payload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close payload: %w", err)
	}
	return zipPath, nil
}
