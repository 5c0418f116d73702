package fileutil

import (
	"errors"
	"fmt"
	"os"
)

// FileCreator produces new owner-only files.
type FileCreator struct {
	strategy PermissionStrategy
}

// NewFileCreator returns a FileCreator backed by s.
func NewFileCreator(s PermissionStrategy) *FileCreator {
	return &FileCreator{strategy: s}
}

// OpenNew creates path exclusively with owner-only permissions and returns it
// open for reading and writing. The caller owns the file and must close it.
//
// Errors come straight from the OS (*fs.PathError) and are not wrapped:
// errors.Is(err, fs.ErrExist) when path already exists and
// errors.Is(err, fs.ErrNotExist) when its parent is missing. Parents are
// never created.
func (c *FileCreator) OpenNew(path string) (*os.File, error) {
	f, err := c.strategy.CreateExclusive(path)
	if err != nil {
		log.Error("could not create a file at %q: %v", path, err)
		return nil, err
	}
	return f, nil
}

// WithNew creates path like OpenNew, passes the open file to fn and closes it
// when fn returns or panics. Closing it inside fn is allowed. The file stays
// on disk with its permissions unchanged.
func (c *FileCreator) WithNew(path string, fn func(f *os.File) error) (err error) {
	f, err := c.OpenNew(path)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if cerr == nil || errors.Is(cerr, os.ErrClosed) {
			return
		}
		if err == nil {
			err = cerr
			return
		}
		err = errors.Join(err, cerr)
	}()

	return fn(f)
}

// OpenVerified opens an existing regular file read-only without following a
// final symlink, then checks on the open handle that it is owner-only. The
// check and every later read see the same object. A file that fails the check
// yields ErrInsecurePermissions; a symlink or other non-regular file yields
// ErrNotRegular.
func (c *FileCreator) OpenVerified(path string) (*os.File, error) {
	f, err := openNoFollow(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	ok, err := c.strategy.IsOwnerOnlyFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrInsecurePermissions)
	}
	return f, nil
}
