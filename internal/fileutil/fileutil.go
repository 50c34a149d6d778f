// Package fileutil writes output files so that a crash or full disk never
// leaves a truncated capture behind.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileVerified writes data to a temporary file beside path, reads it
// back, checks size and SHA256, and renames it over path. The temporary file
// is removed on any failure.
func WriteFileVerified(path string, data []byte, mode os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("read back %s: %w", tmpPath, err)
	}
	if len(written) != len(data) {
		return fmt.Errorf("write size mismatch: expected %d bytes, found %d bytes", len(data), len(written))
	}
	want, got := sha256.Sum256(data), sha256.Sum256(written)
	if !bytes.Equal(want[:], got[:]) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
