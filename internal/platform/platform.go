// Package platform collects the OS-facing primitives the region store
// depends on: directory/file opening relative to a base directory,
// memory mapping with in-place remap on truncation, directory iteration,
// a monotonic clock the file cache's eviction logic can have injected for
// tests, and CPU count (spec §2 row D, §4.4, Design Notes). Grounded on
// the teacher's own unix/windows build-tag split (pkg/files/disk_unix.go,
// disk_windows.go) and the mmap usage pattern in
// other_examples/d6c8e96d_marmos91-dittofs__pkg-cache-mmap.go.go.
package platform

import (
	"os"
	"runtime"
	"time"
)

// NumCPU reports the number of logical CPUs, used to size the file
// cache (spec §3.3, §4.4).
func NumCPU() int {
	return runtime.NumCPU()
}

// Clock abstracts the monotonic time source so the file cache's
// evictable-duration logic can be driven by a fake clock in tests
// (spec Design Notes §9: "the time source is abstracted behind a
// monotonic_now function").
type Clock interface {
	// Now returns a monotonically increasing reading in nanoseconds.
	// Only differences between two Now() calls are meaningful.
	Now() int64
}

// SystemClock is the production Clock, backed by time.Now()'s
// monotonic reading.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 {
	return monotonicNow()
}

var processStart = time.Now()

func monotonicNow() int64 {
	return int64(time.Since(processStart))
}

// Dir is a handle to an open directory, used as the base for openat-style
// relative file opens (spec §3.2: "optional base directory handle").
// A nil *Dir means "resolve relative to the process's current directory".
type Dir struct {
	path string
	file *os.File
}

// OpenDir opens path as a directory handle.
func OpenDir(path string) (*Dir, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		f.Close()
		return nil, &os.PathError{Op: "opendir", Path: path, Err: os.ErrInvalid}
	}
	return &Dir{path: path, file: f}, nil
}

// Path returns the directory's filesystem path.
func (d *Dir) Path() string {
	if d == nil {
		return "."
	}
	return d.path
}

// Close releases the directory handle.
func (d *Dir) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	return d.file.Close()
}

// ReadDirNames lists the regular files directly inside the directory, in the
// order returned by the OS (unsorted), for the region store's filename-
// matching iteration (spec §4.3 "Iteration").
func ReadDirNames(d *Dir) ([]string, error) {
	path := "."
	if d != nil {
		path = d.path
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
