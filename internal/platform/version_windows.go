//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// osVersion returns the kernel version reported by RtlGetVersion, which,
// unlike GetVersionEx, is not subject to manifest-based version lying.
func osVersion() (string, error) {
	v := windows.RtlGetVersion()
	return fmt.Sprintf("Windows %d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber), nil
}
