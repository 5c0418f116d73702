// Package fileutil creates directories and files that only their owner can
// access, on both Unix and Windows.
//
// Permissions are part of the creation call itself: mkdir/open with a
// restrictive mode on Unix, CreateDirectory/CreateFile with an owner-only
// security descriptor on Windows. A new object never exists, even briefly,
// with the default (wider) permissions. Unix permission bits are silently
// ignored by the Windows kernel, so the Windows variant uses a protected DACL
// holding a single ACE for the current user.
//
// The OS-specific behavior lives behind PermissionStrategy. NewStrategy picks
// the variant once; DirectoryCreator and FileCreator receive it and never
// branch on the OS themselves.
package fileutil

import (
	"fmt"
	"os"
	"sync"

	"github.com/BakeLens/securefs/internal/logger"
)

var log = logger.New("fileutil")

// Owner-only POSIX modes.
const (
	DirMode  = 0o700
	FileMode = 0o600
)

var defaultStrategy = sync.OnceValues(NewStrategy)

// DefaultStrategy returns the strategy for the running OS, resolved on first use.
func DefaultStrategy() (PermissionStrategy, error) {
	return defaultStrategy()
}

// CreateSecureDirectory ensures path is a directory only its owner can access.
// See DirectoryCreator.Create.
func CreateSecureDirectory(path string) error {
	s, err := DefaultStrategy()
	if err != nil {
		return err
	}
	return NewDirectoryCreator(s).Create(path)
}

// SecureMkdirAll is CreateSecureDirectory that also creates missing parents,
// each of them owner-only. Parents that already exist are not modified.
func SecureMkdirAll(path string) error {
	s, err := DefaultStrategy()
	if err != nil {
		return err
	}
	return NewDirectoryCreator(s).CreateAll(path)
}

// OpenNewSecureFile creates a new owner-only file and opens it read/write.
// See FileCreator.OpenNew.
func OpenNewSecureFile(path string) (*os.File, error) {
	s, err := DefaultStrategy()
	if err != nil {
		return nil, err
	}
	return NewFileCreator(s).OpenNew(path)
}

// WithNewSecureFile creates a new owner-only file, hands it to fn and closes
// it afterwards. See FileCreator.WithNew.
func WithNewSecureFile(path string, fn func(f *os.File) error) error {
	s, err := DefaultStrategy()
	if err != nil {
		return err
	}
	return NewFileCreator(s).WithNew(path, fn)
}

// CheckOwnerOnly returns ErrInsecurePermissions if path is accessible to
// anyone but its owner.
func CheckOwnerOnly(path string) error {
	s, err := DefaultStrategy()
	if err != nil {
		return err
	}
	return checkOwnerOnly(s, path)
}

func checkOwnerOnly(s PermissionStrategy, path string) error {
	ok, err := s.IsOwnerOnly(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrInsecurePermissions)
	}
	return nil
}
