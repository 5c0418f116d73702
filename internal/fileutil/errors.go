package fileutil

import (
	"errors"
	"fmt"
)

var (
	// ErrFailedDirectoryCreation matches every *FailedDirectoryCreationError
	// with errors.Is.
	ErrFailedDirectoryCreation = errors.New("failed to create secure directory")

	// ErrNotDirectory is the cause of a PathConflict failure.
	ErrNotDirectory = errors.New("path already exists and is not a directory")

	// ErrInsecurePermissions is returned by CheckOwnerOnly and OpenVerified.
	ErrInsecurePermissions = errors.New("permissions are not restricted to the owner")

	// ErrNotRegular is returned by OpenVerified for symlinks, directories
	// and other non-regular files.
	ErrNotRegular = errors.New("not a regular file")
)

// FailureKind classifies a FailedDirectoryCreationError.
type FailureKind int

const (
	// PathConflict: something other than a directory already sits at the path.
	// Nothing was modified.
	PathConflict FailureKind = iota + 1
	// PermissionApplicationFailure: the directory exists but the OS refused to
	// replace its permissions. No rollback is attempted.
	PermissionApplicationFailure
	// CreationFailure: the OS refused to create the directory (missing
	// parent, access denied, disk full, ...).
	CreationFailure
)

func (k FailureKind) String() string {
	switch k {
	case PathConflict:
		return "path conflict"
	case PermissionApplicationFailure:
		return "permission application failure"
	case CreationFailure:
		return "creation failure"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// FailedDirectoryCreationError reports that no owner-only directory could be
// produced at Path.
type FailedDirectoryCreationError struct {
	Path string
	Kind FailureKind
	Err  error
}

func (e *FailedDirectoryCreationError) Error() string {
	return fmt.Sprintf("could not create secure directory %q (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *FailedDirectoryCreationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFailedDirectoryCreation) true for any kind.
func (e *FailedDirectoryCreationError) Is(target error) bool {
	return target == ErrFailedDirectoryCreation
}

// DirectoryFailureKind returns the kind of the first FailedDirectoryCreationError
// in err's chain, or 0 if there is none.
func DirectoryFailureKind(err error) FailureKind {
	var fe *FailedDirectoryCreationError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
