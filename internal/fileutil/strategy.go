package fileutil

import (
	"os"

	"github.com/BakeLens/securefs/internal/platform"
)

// PermissionStrategy applies the owner-only policy using one OS's primitives.
// Implementations hold no mutable state and are safe for concurrent use.
type PermissionStrategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Mkdir creates a single directory that is owner-only from the moment
	// it exists. The parent must already exist. An existing path yields an
	// error matching fs.ErrExist.
	Mkdir(path string) error

	// Restrict replaces the permissions of an existing directory with the
	// owner-only policy. Handles opened before the change keep their
	// access; re-securing cannot revoke them.
	Restrict(path string) error

	// CreateExclusive creates a new owner-only file and opens it
	// read/write. It fails with an error matching fs.ErrExist if anything
	// already exists at path.
	CreateExclusive(path string) (*os.File, error)

	// IsOwnerOnly reports whether path grants access to its owner only.
	IsOwnerOnly(path string) (bool, error)

	// IsOwnerOnlyFile is IsOwnerOnly for an open file.
	IsOwnerOnlyFile(f *os.File) (bool, error)
}

// NewStrategy returns the strategy for the running OS. It fails with
// platform.ErrUnsupportedPlatform on anything but Linux and Windows.
func NewStrategy() (PermissionStrategy, error) {
	goos, err := platform.Current()
	if err != nil {
		return nil, err
	}
	return strategyFor(goos)
}
