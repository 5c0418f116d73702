// Package platform identifies the host operating system.
//
// Only Linux and Windows have an owner-only permission strategy. Every other
// GOOS is rejected with ErrUnsupportedPlatform so callers fail fast instead of
// running with a partially working permission model.
package platform

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// OS is a supported operating system.
type OS string

const (
	// Linux uses POSIX mode bits.
	Linux OS = "linux"
	// Windows uses discretionary access-control lists.
	Windows OS = "windows"
)

// ErrUnsupportedPlatform is returned when the host is neither Linux nor Windows.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Valid returns true if the OS is a known valid value.
func (o OS) Valid() bool {
	return o == Linux || o == Windows
}

// String implements fmt.Stringer.
func (o OS) String() string {
	return string(o)
}

// Detect maps a runtime.GOOS value to a supported OS.
func Detect(goos string) (OS, error) {
	switch goos {
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	}
	return "", fmt.Errorf("%w: %q is not a supported operating system", ErrUnsupportedPlatform, goos)
}

// Current returns the OS this binary is running on.
func Current() (OS, error) {
	return Detect(runtime.GOOS)
}

// Info describes the host.
type Info struct {
	OS        OS
	Arch      string
	Hostname  string
	OSVersion string
}

// Describe collects host information. It fails only when the OS itself is
// unsupported; a missing hostname or version is reported as "unknown".
func Describe() (Info, error) {
	goos, err := Current()
	if err != nil {
		return Info{}, err
	}

	info := Info{
		OS:        goos,
		Arch:      runtime.GOARCH,
		Hostname:  "unknown",
		OSVersion: "unknown",
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		info.Hostname = h
	}
	if v, err := osVersion(); err == nil && v != "" {
		info.OSVersion = v
	}
	return info, nil
}
