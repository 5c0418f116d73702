//go:build !windows

package platform

import "golang.org/x/sys/unix"

// osVersion returns "<sysname> <release>" from uname(2), e.g. "Linux 6.8.0".
func osVersion() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(u.Sysname[:]) + " " + unix.ByteSliceToString(u.Release[:]), nil
}
