//go:build unix

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// OpenFile opens name, resolved relative to dir when dir is non-nil
// (openat), or relative to the process's working directory otherwise.
func OpenFile(dir *Dir, name string, flag int, perm os.FileMode) (*os.File, error) {
	if dir == nil || dir.file == nil {
		return os.OpenFile(name, flag, perm)
	}
	fd, err := unix.Openat(int(dir.file.Fd()), name, flag, uint32(perm))
	if err != nil {
		return nil, &os.PathError{Op: "openat", Path: name, Err: err}
	}
	return os.NewFile(uintptr(fd), name), nil
}

// Remove removes name, resolved relative to dir when dir is non-nil.
func Remove(dir *Dir, name string) error {
	if dir == nil || dir.file == nil {
		return os.Remove(name)
	}
	if err := unix.Unlinkat(int(dir.file.Fd()), name, 0); err != nil {
		return &os.PathError{Op: "unlinkat", Path: name, Err: err}
	}
	return nil
}

// Rename renames oldName to newName, both resolved relative to dir when
// dir is non-nil (renameat), used for the spill writer's write-temp-
// then-rename durability pattern.
func Rename(dir *Dir, oldName, newName string) error {
	if dir == nil || dir.file == nil {
		return os.Rename(oldName, newName)
	}
	fd := int(dir.file.Fd())
	if err := unix.Renameat(fd, oldName, fd, newName); err != nil {
		return &os.LinkError{Op: "renameat", Old: oldName, New: newName, Err: err}
	}
	return nil
}

// Stat stats name, resolved relative to dir when dir is non-nil.
func Stat(dir *Dir, name string) (os.FileInfo, error) {
	if dir == nil || dir.file == nil {
		return os.Stat(name)
	}
	var st unix.Stat_t
	if err := unix.Fstatat(int(dir.file.Fd()), name, &st, 0); err != nil {
		return nil, &os.PathError{Op: "fstatat", Path: name, Err: err}
	}
	f, err := OpenFile(dir, name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}
