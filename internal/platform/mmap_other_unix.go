//go:build unix && !linux

package platform

import "os"

// remapPlatform falls back to unmap-then-remap on unix platforms without
// mremap(2) (e.g. Darwin, the BSDs). Per spec §5.7 this is acceptable as
// long as the caller holds the RegionFile's write lock across the call.
func remapPlatform(f *os.File, old []byte, newSize int, writable bool) ([]byte, error) {
	if err := Munmap(old); err != nil {
		return nil, err
	}
	return Mmap(f, newSize, writable)
}
