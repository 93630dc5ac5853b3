// Package atomicfile replaces files without leaving partial writes behind.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes data to a temp file next to path, syncs it and renames
// it over path. A zero perm keeps the mode of an existing file, else 0644.
func WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	if perm == 0 {
		perm = 0o644
		if st, statErr := os.Stat(path); statErr == nil {
			perm = st.Mode().Perm()
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	_ = tmp.Chmod(perm)
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		// Windows refuses to rename over an existing file.
		_ = os.Remove(path)
		if retry := os.Rename(tmp.Name(), path); retry != nil {
			return fmt.Errorf("rename temp file: %w", err)
		}
		err = nil
	}
	return nil
}
