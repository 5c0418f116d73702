//go:build !windows

package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BakeLens/securefs/internal/platform"
	"golang.org/x/sys/unix"
)

// strategyFor only knows the POSIX variant on non-Windows builds.
func strategyFor(goos platform.OS) (PermissionStrategy, error) {
	if goos == platform.Linux {
		return posixStrategy{}, nil
	}
	return nil, fmt.Errorf("%w: no permission strategy for %s in this build", platform.ErrUnsupportedPlatform, goos)
}

// posixStrategy maps the owner-only policy to mode bits: rwx------ for
// directories and rw------- for files. The mode is passed to mkdir(2) and
// open(2) directly, so the kernel applies it atomically. The umask can only
// remove bits from it.
type posixStrategy struct{}

func (posixStrategy) Name() string { return "posix" }

func (posixStrategy) Mkdir(path string) error {
	return os.Mkdir(path, DirMode)
}

// Restrict changes the directory's mode without following a final symlink,
// so the chmod lands on the directory itself even if the path is swapped
// concurrently.
func (posixStrategy) Restrict(path string) error {
	if err := chmodDir(path, DirMode); err != nil {
		if errors.Is(err, unix.ENOTDIR) || errors.Is(err, unix.ELOOP) {
			return fmt.Errorf("%s: %w", path, ErrNotDirectory)
		}
		return &fs.PathError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}

// CreateExclusive uses O_CREAT|O_EXCL: the call fails if anything, including
// a dangling symlink, already exists at path.
func (posixStrategy) CreateExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, FileMode)
}

// IsOwnerOnly requires no group/other bits and ownership by the effective uid.
func (posixStrategy) IsOwnerOnly(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	return ownerOnlyStat(&st), nil
}

func (posixStrategy) IsOwnerOnlyFile(f *os.File) (bool, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return false, &fs.PathError{Op: "fstat", Path: f.Name(), Err: err}
	}
	return ownerOnlyStat(&st), nil
}

func ownerOnlyStat(st *unix.Stat_t) bool {
	if uint32(st.Mode)&0o077 != 0 {
		return false
	}
	return int(st.Uid) == unix.Geteuid()
}

// openNoFollow opens an existing file for reading. A final symlink fails
// instead of being followed. O_NONBLOCK keeps a FIFO planted at path from
// blocking the open.
func openNoFollow(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ELOOP) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
		}
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
