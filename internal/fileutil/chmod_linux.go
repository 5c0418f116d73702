package fileutil

import (
	"errors"
	"strconv"

	"golang.org/x/sys/unix"
)

// chmodDir sets the mode of the directory at path. The directory is pinned
// with an O_PATH descriptor, which needs no permission on the directory
// itself, so an owner can repair modes like 0000 or 0333. fchmod(2) rejects
// O_PATH descriptors; the chmod goes through /proc/self/fd instead, which
// still resolves to the pinned directory.
func chmodDir(path string, mode uint32) error {
	fd, err := unix.Open(path, unix.O_PATH|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	err = unix.Chmod("/proc/self/fd/"+strconv.Itoa(fd), mode)
	if errors.Is(err, unix.ENOENT) {
		// No procfs. The path was a real directory a moment ago.
		return unix.Fchmodat(unix.AT_FDCWD, path, mode, 0)
	}
	return err
}
