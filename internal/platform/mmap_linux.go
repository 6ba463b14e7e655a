//go:build linux

package platform

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// remapPlatform uses mremap(2) to resize a mapping in place when
// possible, falling back to unmap+remap when the kernel has to move it
// (MREMAP_MAYMOVE). This is the happy path spec §5.7 calls out: "Memory-
// map resizing uses in-place remap where available".
func remapPlatform(f *os.File, old []byte, newSize int, writable bool) ([]byte, error) {
	if old == nil {
		return Mmap(f, newSize, writable)
	}
	addr := uintptr(unsafe.Pointer(&old[0]))
	newAddr, err := unix.Mremap(old, newSize, unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, fmt.Errorf("mremap: %w", err)
	}
	_ = addr // retained only to document the pre-remap base pointer for debugging
	return newAddr, nil
}
