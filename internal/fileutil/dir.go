package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DirectoryCreator produces owner-only directories.
type DirectoryCreator struct {
	strategy PermissionStrategy
}

// NewDirectoryCreator returns a DirectoryCreator backed by s.
func NewDirectoryCreator(s PermissionStrategy) *DirectoryCreator {
	return &DirectoryCreator{strategy: s}
}

// Create ensures path is a directory that only its owner can access.
//
//   - path is absent: it is created with the owner-only policy applied by the
//     creation call itself. A missing parent is a CreationFailure.
//   - path is a directory: its permissions are replaced in place. Anyone
//     who opened it before that keeps their handle.
//   - path is anything else, including a symlink: PathConflict, and the
//     existing object is left alone.
//
// Every failure is a *FailedDirectoryCreationError.
func (c *DirectoryCreator) Create(path string) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil:
		return c.secureExisting(path, info)
	case errors.Is(err, fs.ErrNotExist):
		return c.createNew(path)
	default:
		return c.fail(path, CreationFailure, err)
	}
}

// CreateAll is like Create but first creates any missing parent directories,
// each owner-only. Existing parents are not touched.
func (c *DirectoryCreator) CreateAll(path string) error {
	if path == "" {
		return c.Create(path)
	}
	path = filepath.Clean(path)
	if _, err := os.Lstat(path); err == nil {
		return c.Create(path)
	}

	parent := filepath.Dir(path)
	if parent != path {
		if _, err := os.Stat(parent); errors.Is(err, fs.ErrNotExist) {
			if err := c.CreateAll(parent); err != nil {
				return err
			}
		}
	}
	return c.Create(path)
}

func (c *DirectoryCreator) createNew(path string) error {
	err := c.strategy.Mkdir(path)
	if err == nil {
		log.Debug("created directory %q (%s)", path, c.strategy.Name())
		return nil
	}

	// Another caller created it between our Lstat and Mkdir. Treat it like
	// any pre-existing object so both callers end up with the same result.
	if errors.Is(err, fs.ErrExist) {
		if info, lerr := os.Lstat(path); lerr == nil {
			return c.secureExisting(path, info)
		}
	}
	return c.fail(path, CreationFailure, err)
}

func (c *DirectoryCreator) secureExisting(path string, info fs.FileInfo) error {
	if !info.IsDir() {
		return c.fail(path, PathConflict, ErrNotDirectory)
	}

	log.Info("directory %q already exists, restricting it to the owner", path)
	if err := c.strategy.Restrict(path); err != nil {
		// Restrict refuses to follow a path that was swapped for a
		// non-directory after the Lstat above.
		if errors.Is(err, ErrNotDirectory) {
			return c.fail(path, PathConflict, err)
		}
		return c.fail(path, PermissionApplicationFailure, err)
	}
	return nil
}

func (c *DirectoryCreator) fail(path string, kind FailureKind, err error) error {
	fe := &FailedDirectoryCreationError{Path: path, Kind: kind, Err: err}
	log.Error("%v", fe)
	return fe
}
