//go:build windows

package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"unsafe"

	"github.com/BakeLens/securefs/internal/platform"
	"golang.org/x/sys/windows"
)

// strategyFor only knows the Windows variant on Windows builds.
func strategyFor(goos platform.OS) (PermissionStrategy, error) {
	if goos == platform.Windows {
		return windowsStrategy{}, nil
	}
	return nil, fmt.Errorf("%w: no permission strategy for %s in this build", platform.ErrUnsupportedPlatform, goos)
}

// windowsStrategy maps the owner-only policy to a protected DACL holding a
// single ACE that grants the process user full control. The descriptor is
// handed to CreateDirectory/CreateFile, so the object is born restricted;
// nothing is inherited from the parent.
type windowsStrategy struct{}

func (windowsStrategy) Name() string { return "windows-dacl" }

func (windowsStrategy) Mkdir(path string) error {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}
	sa, err := ownerOnlyAttributes(true)
	if err != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}
	if err := windows.CreateDirectory(name, sa); err != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Restrict replaces the DACL of an existing directory. Inherited ACEs are
// dropped and further inheritance from the parent is blocked.
func (windowsStrategy) Restrict(path string) error {
	acl, err := ownerOnlyACL(true)
	if err != nil {
		return err
	}
	err = windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
		nil, // owner (unchanged)
		nil, // group (unchanged)
		acl,
		nil, // sacl (unchanged)
	)
	if err != nil {
		return &fs.PathError{Op: "SetNamedSecurityInfo", Path: path, Err: err}
	}
	return nil
}

// CreateExclusive opens with CREATE_NEW so an existing file is never reused.
// Other processes may open the file for reading only while this handle is
// open; the OS rejects writers.
func (windowsStrategy) CreateExclusive(path string) (*os.File, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	sa, err := ownerOnlyAttributes(false)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}

	h, err := windows.CreateFile(
		name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ,
		sa,
		windows.CREATE_NEW,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(h), path), nil
}

// IsOwnerOnly requires a DACL with exactly one access-allowed ACE whose SID
// is the process user. A NULL DACL grants everyone access and fails.
func (windowsStrategy) IsOwnerOnly(path string) (bool, error) {
	sd, err := windows.GetNamedSecurityInfo(path, windows.SE_FILE_OBJECT, windows.DACL_SECURITY_INFORMATION)
	if err != nil {
		return false, &fs.PathError{Op: "GetNamedSecurityInfo", Path: path, Err: err}
	}
	return ownerOnlyDACL(path, sd)
}

func (windowsStrategy) IsOwnerOnlyFile(f *os.File) (bool, error) {
	sd, err := windows.GetSecurityInfo(windows.Handle(f.Fd()), windows.SE_FILE_OBJECT, windows.DACL_SECURITY_INFORMATION)
	if err != nil {
		return false, &fs.PathError{Op: "GetSecurityInfo", Path: f.Name(), Err: err}
	}
	return ownerOnlyDACL(f.Name(), sd)
}

func ownerOnlyDACL(path string, sd *windows.SECURITY_DESCRIPTOR) (bool, error) {
	owner, err := currentUserSID()
	if err != nil {
		return false, err
	}
	dacl, _, err := sd.DACL()
	if err != nil {
		return false, fmt.Errorf("read DACL of %s: %w", path, err)
	}
	if dacl == nil || dacl.AceCount != 1 {
		return false, nil
	}

	var ace *windows.ACCESS_ALLOWED_ACE
	if err := windows.GetAce(dacl, 0, &ace); err != nil {
		return false, fmt.Errorf("read ACE of %s: %w", path, err)
	}
	if ace.Header.AceType != windows.ACCESS_ALLOWED_ACE_TYPE {
		return false, nil
	}
	sid := (*windows.SID)(unsafe.Pointer(&ace.SidStart))
	return sid.Equals(owner), nil
}

// openNoFollow opens an existing file for reading. A reparse point (symlink
// or junction) is opened as itself and rejected. Replacing the file by
// rename stays possible while it is open.
func openNoFollow(path string) (*os.File, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	h, err := windows.CreateFile(
		name,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OPEN_REPARSE_POINT,
		0,
	)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &info); err != nil {
		windows.CloseHandle(h)
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	if info.FileAttributes&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0 {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	return os.NewFile(uintptr(h), path), nil
}
