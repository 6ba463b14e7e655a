//go:build windows

package platform

import (
	"os"
	"path/filepath"
)

// OpenFile opens name, resolved relative to dir's path when dir is
// non-nil. Windows has no practical equivalent of Linux's openat(2) in
// golang.org/x/sys/windows that composes cleanly with *os.File, so the
// fallback here is a plain path join, matching the precision the
// teacher's own pkg/files/disk_windows.go settles for on this platform.
func OpenFile(dir *Dir, name string, flag int, perm os.FileMode) (*os.File, error) {
	path := name
	if dir != nil {
		path = filepath.Join(dir.Path(), name)
	}
	return os.OpenFile(path, flag, perm)
}

// Remove removes name, resolved relative to dir's path when dir is non-nil.
func Remove(dir *Dir, name string) error {
	path := name
	if dir != nil {
		path = filepath.Join(dir.Path(), name)
	}
	return os.Remove(path)
}

// Rename renames oldName to newName, both resolved relative to dir's path
// when dir is non-nil.
func Rename(dir *Dir, oldName, newName string) error {
	from, to := oldName, newName
	if dir != nil {
		from = filepath.Join(dir.Path(), oldName)
		to = filepath.Join(dir.Path(), newName)
	}
	return os.Rename(from, to)
}

// Stat stats name, resolved relative to dir's path when dir is non-nil.
func Stat(dir *Dir, name string) (os.FileInfo, error) {
	path := name
	if dir != nil {
		path = filepath.Join(dir.Path(), name)
	}
	return os.Stat(path)
}
