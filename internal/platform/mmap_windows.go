//go:build windows

package platform

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsMappings tracks the extra handle Windows requires alongside the
// mapped view, since Munmap only receives the []byte.
var windowsMappings = map[uintptr]windows.Handle{}

// Mmap maps the first size bytes of f using CreateFileMapping/MapViewOfFile.
func Mmap(f *os.File, size int, writable bool) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	prot := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)
	if writable {
		prot = windows.PAGE_READWRITE
		access = windows.FILE_MAP_WRITE
	}
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, prot, uint32(uint64(size)>>32), uint32(size), nil)
	if err != nil {
		return nil, fmt.Errorf("CreateFileMapping: %w", err)
	}
	addr, err := windows.MapViewOfFile(h, access, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("MapViewOfFile: %w", err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	windowsMappings[addr] = h
	return data, nil
}

// Munmap unmaps a view previously returned by Mmap or Remap.
func Munmap(data []byte) error {
	if data == nil {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return fmt.Errorf("UnmapViewOfFile: %w", err)
	}
	if h, ok := windowsMappings[addr]; ok {
		windows.CloseHandle(h)
		delete(windowsMappings, addr)
	}
	return nil
}

// Remap resizes the backing file and remaps it. Windows offers no
// in-place remap, so this is always unmap-then-remap, gated on the
// RegionFile write lock by the caller exactly as on other platforms.
func Remap(f *os.File, old []byte, newSize int, writable bool) ([]byte, error) {
	if err := Munmap(old); err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(newSize)); err != nil {
		return nil, fmt.Errorf("truncate: %w", err)
	}
	return Mmap(f, newSize, writable)
}
