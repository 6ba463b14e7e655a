//go:build unix

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mmap maps the first size bytes of f. Per spec §3.4, size == 0 is
// represented by a nil mapping rather than calling into mmap(2), which
// rejects zero-length mappings.
func Mmap(f *os.File, size int, writable bool) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return data, nil
}

// Munmap unmaps a mapping previously returned by Mmap or Remap. A nil
// slice (the size-0 case) is a no-op.
func Munmap(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}

// Remap resizes an existing mapping to newSize, growing or shrinking the
// backing file first if necessary. It uses mremap(2) in place where the
// platform supports it (Linux); elsewhere it falls back to unmap-then-
// remap. Per spec §5.7, callers must hold the RegionFile's write lock
// across this call so readers never observe a moved base pointer mid-flight.
func Remap(f *os.File, old []byte, newSize int, writable bool) ([]byte, error) {
	if err := f.Truncate(int64(newSize)); err != nil {
		return nil, fmt.Errorf("truncate: %w", err)
	}
	if newSize == 0 {
		if err := Munmap(old); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return remapPlatform(f, old, newSize, writable)
}
