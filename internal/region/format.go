// Package region implements the on-disk region file: header detection
// and encoding (vanilla, extended, compound), the sector allocator, and
// the mmap-backed read/write/delete/mtime operations (spec.md §3.4,
// §3.5, §4.3). It is grounded on the teacher's
// internal/minecraft/world.Region/RegionManager (internal/region/file.go
// keeps that struct shape — rwlock, mmap-equivalent, sector-based
// locations table) generalized from a fixed 32x32 vanilla
// grid to clod's variable-dimension, variable-header-kind layout.
package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clodstore/clod/internal/errs"
)

// HeaderKind selects which of the three header shapes a region file
// uses (spec.md §3.5).
type HeaderKind int

const (
	// Vanilla is the bare Minecraft 8192-byte two-table header.
	Vanilla HeaderKind = iota
	// Extended is libclod's own magic+checksum+NBT-directory header.
	Extended
	// Compound concatenates Vanilla then Extended, for readers that
	// only understand one or the other.
	Compound
)

func (k HeaderKind) String() string {
	switch k {
	case Vanilla:
		return "vanilla"
	case Extended:
		return "extended"
	case Compound:
		return "compound"
	default:
		return "unknown"
	}
}

const (
	SectorSize          = 4096
	VanillaHeaderSize    = 8192 // two 1024-entry, 4-byte tables
	vanillaLocationBytes = 4096
	vanillaMtimeBytes    = 4096
)

// ExtendedMagic identifies a libclod extended header (spec.md §3.5,
// §9 open question: "preserve the magic, treat unknown layouts as
// malformed"). It is padded to ExtendedMagicSize with zero bytes.
const ExtendedMagic = "\n\nlibclod extended region file format version 1.\nSee github.com/stewi1014/clod for format details.\n\n"

const ExtendedMagicSize = 128

// FormatFilename builds a filename of the form
// prefix + '.' + coord + '.' + coord ... + '.' + ext (spec.md §4.3 "Open").
func FormatFilename(prefix string, coords []int64, ext string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, c := range coords {
		b.WriteByte('.')
		b.WriteString(strconv.FormatInt(c, 10))
	}
	b.WriteByte('.')
	b.WriteString(ext)
	return b.String()
}

// ParseFilename extracts the coordinate tuple from a filename built by
// FormatFilename, validating prefix and extension. dims is the expected
// dimensionality (len(coords)).
func ParseFilename(name, prefix, ext string, dims int) ([]int64, bool) {
	if !strings.HasPrefix(name, prefix+".") {
		return nil, false
	}
	if !strings.HasSuffix(name, "."+ext) {
		return nil, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"."), "."+ext)
	if middle == "" {
		return nil, false
	}
	parts := strings.Split(middle, ".")
	if len(parts) != dims {
		return nil, false
	}
	coords := make([]int64, dims)
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		coords[i] = v
	}
	return coords, true
}

// ValidatePrefix rejects a prefix containing '.', per spec.md §4.5.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("%w: empty filename prefix", errs.ErrInvalidUsage)
	}
	if strings.Contains(prefix, ".") {
		return fmt.Errorf("%w: filename prefix %q must not contain '.'", errs.ErrInvalidUsage, prefix)
	}
	return nil
}

// IsVanillaCompatible reports whether (dims, prefix, ext) matches the
// layout a vanilla Minecraft reader expects (spec.md §3.5, §4.5).
func IsVanillaCompatible(dims int, prefix, ext string) bool {
	if dims != 2 || prefix != "region" {
		return false
	}
	return ext == "mca" || ext == "mcr"
}
