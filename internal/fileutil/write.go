package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SecureWriteFile replaces path with data. The data is written to a new
// owner-only file next to path, synced, then renamed over path, so readers
// see either the old content or the new one and never a wider-permissioned
// copy. The parent directory must exist.
func SecureWriteFile(path string, data []byte) error {
	s, err := DefaultStrategy()
	if err != nil {
		return err
	}
	return NewFileCreator(s).WriteAtomic(path, data)
}

// WriteAtomic is SecureWriteFile using c's strategy.
func (c *FileCreator) WriteAtomic(path string, data []byte) error {
	tmp := tempPath(path)

	err := c.WithNew(tmp, func(f *os.File) error {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", tmp, err)
		}
		if err := f.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", tmp, err)
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// IsTempFile reports whether name looks like a WriteAtomic staging file.
func IsTempFile(name string) bool {
	return len(name) > len(".x.tmp") && name[0] == '.' && filepath.Ext(name) == ".tmp"
}

func tempPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
}
