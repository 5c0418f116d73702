//go:build !windows

package fileutil

import (
	"os"
	"testing"
)

// assertOwnerOnly checks the exact owner-only mode: 0700 for directories,
// 0600 for files, no group/other bits.
func assertOwnerOnly(t *testing.T, path string, dir bool) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat %s: %v", path, err)
	}
	want := os.FileMode(FileMode)
	if dir {
		want = DirMode
	}
	if got := info.Mode().Perm(); got != want {
		t.Errorf("%s has mode %04o, want %04o", path, got, want)
	}
}

// makeInsecureDir creates a world-writable directory. Chmod is needed
// because the umask strips bits from Mkdir's mode.
func makeInsecureDir(t *testing.T, path string) {
	t.Helper()

	if err := os.Mkdir(path, 0o777); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.Chmod(path, 0o777); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
}
