//go:build windows

package fileutil

import (
	"os"
	"testing"
	"unsafe"

	"golang.org/x/sys/windows"
)

// assertOwnerOnly verifies the DACL has exactly one ACE granting access to
// the current user, with no other principals allowed.
func assertOwnerOnly(t *testing.T, path string, dir bool) {
	t.Helper()

	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		t.Fatalf("OpenCurrentProcessToken: %v", err)
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		t.Fatalf("GetTokenUser: %v", err)
	}
	ownerSID := user.User.Sid

	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
	)
	if err != nil {
		t.Fatalf("GetNamedSecurityInfo(%s): %v", path, err)
	}

	dacl, _, err := sd.DACL()
	if err != nil {
		t.Fatalf("DACL(): %v", err)
	}
	if dacl == nil {
		t.Fatalf("DACL is nil (NULL DACL = full access to everyone)")
	}
	if dacl.AceCount != 1 {
		t.Fatalf("%s: DACL has %d ACEs, want exactly 1", path, dacl.AceCount)
	}

	var ace *windows.ACCESS_ALLOWED_ACE
	if err := windows.GetAce(dacl, 0, &ace); err != nil {
		t.Fatalf("GetAce(0): %v", err)
	}
	if ace.Header.AceType != windows.ACCESS_ALLOWED_ACE_TYPE {
		t.Errorf("%s: ACE type %d, want ACCESS_ALLOWED", path, ace.Header.AceType)
	}

	if ace.Mask != fileAllAccess {
		t.Errorf("%s: ACE mask %#x, want FILE_ALL_ACCESS %#x", path, ace.Mask, fileAllAccess)
	}

	aceSID := (*windows.SID)(unsafe.Pointer(&ace.SidStart))
	if !aceSID.Equals(ownerSID) {
		t.Errorf("%s: ACE is for SID %s, want the current user %s", path, aceSID, ownerSID)
	}

	const inheritFlags = windows.OBJECT_INHERIT_ACE | windows.CONTAINER_INHERIT_ACE
	gotInherit := ace.Header.AceFlags&inheritFlags == inheritFlags
	if dir && !gotInherit {
		t.Errorf("%s: directory ACE flags %#x lack object+container inheritance", path, ace.Header.AceFlags)
	}
}

// makeInsecureDir creates a directory with the DACL inherited from its
// parent, which grants access to more than the current user.
func makeInsecureDir(t *testing.T, path string) {
	t.Helper()

	if err := os.Mkdir(path, 0o777); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
}
