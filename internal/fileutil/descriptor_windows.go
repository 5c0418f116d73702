//go:build windows

package fileutil

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// fileAllAccess is FILE_ALL_ACCESS from winnt.h. The ACE carries specific
// rights rather than GENERIC_ALL: an inheritable ACE with generic rights is
// split into two ACEs when it is applied to a child.
const fileAllAccess = windows.STANDARD_RIGHTS_REQUIRED | windows.SYNCHRONIZE | 0x1FF

// currentUserSID returns the SID of the user the process token belongs to.
func currentUserSID() (*windows.SID, error) {
	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		return nil, fmt.Errorf("open process token: %w", err)
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("get token user: %w", err)
	}
	// The SID points into the token-user buffer; copy it so it outlives it.
	return user.User.Sid.Copy()
}

// ownerOnlyACL builds a DACL with exactly one ACE: grant full file access to
// the current user. Containers also pass the ACE on to their children.
func ownerOnlyACL(container bool) (*windows.ACL, error) {
	sid, err := currentUserSID()
	if err != nil {
		return nil, err
	}

	inheritance := uint32(windows.NO_INHERITANCE)
	if container {
		inheritance = windows.SUB_CONTAINERS_AND_OBJECTS_INHERIT
	}

	ea := windows.EXPLICIT_ACCESS{
		AccessPermissions: fileAllAccess,
		AccessMode:        windows.GRANT_ACCESS,
		Inheritance:       inheritance,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(sid),
		},
	}

	// A nil merge ACL means nothing from the parent is carried over.
	acl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{ea}, nil)
	if err != nil {
		return nil, fmt.Errorf("build ACL: %w", err)
	}
	return acl, nil
}

// ownerOnlyDescriptor wraps ownerOnlyACL in a security descriptor whose DACL
// is protected, so the parent's inheritable ACEs are not merged in when the
// object is created.
func ownerOnlyDescriptor(container bool) (*windows.SECURITY_DESCRIPTOR, error) {
	acl, err := ownerOnlyACL(container)
	if err != nil {
		return nil, err
	}

	sd, err := windows.NewSecurityDescriptor()
	if err != nil {
		return nil, fmt.Errorf("new security descriptor: %w", err)
	}
	if err := sd.SetDACL(acl, true, false); err != nil {
		return nil, fmt.Errorf("set DACL: %w", err)
	}
	if err := sd.SetControl(windows.SE_DACL_PROTECTED, windows.SE_DACL_PROTECTED); err != nil {
		return nil, fmt.Errorf("protect DACL: %w", err)
	}
	return sd, nil
}

// ownerOnlyAttributes returns SECURITY_ATTRIBUTES for CreateDirectory and
// CreateFile. The handle is not inheritable by child processes.
func ownerOnlyAttributes(container bool) (*windows.SecurityAttributes, error) {
	sd, err := ownerOnlyDescriptor(container)
	if err != nil {
		return nil, err
	}
	return &windows.SecurityAttributes{
		Length:             uint32(unsafe.Sizeof(windows.SecurityAttributes{})),
		SecurityDescriptor: sd,
		InheritHandle:      0,
	}, nil
}
