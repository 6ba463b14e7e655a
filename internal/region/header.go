package region

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/clodstore/clod/internal/errs"
)

// headerLayout describes where each header component lives within a
// region file, in bytes from the start of the file (spec.md §3.5).
type headerLayout struct {
	kind            HeaderKind
	vanillaOffset   int // -1 if this header kind has no vanilla tables
	extendedOffset  int // -1 if this header kind has no extended block
	totalSize       int // bytes consumed by the header before sector 0 of chunk data
}

func layoutFor(kind HeaderKind, directoryCap int) headerLayout {
	switch kind {
	case Vanilla:
		return headerLayout{kind: kind, vanillaOffset: 0, extendedOffset: -1, totalSize: VanillaHeaderSize}
	case Extended:
		size := ExtendedMagicSize + 4 + 4 + directoryCap
		return headerLayout{kind: kind, vanillaOffset: -1, extendedOffset: 0, totalSize: size}
	case Compound:
		size := VanillaHeaderSize + ExtendedMagicSize + 4 + 4 + directoryCap
		return headerLayout{kind: kind, vanillaOffset: 0, extendedOffset: VanillaHeaderSize, totalSize: size}
	default:
		return headerLayout{kind: kind, vanillaOffset: -1, extendedOffset: -1}
	}
}

// headerSectorCount returns how many whole sectors a header of size
// bytes occupies, rounding up (spec.md §3.4: header sectors are always
// reserved whole).
func headerSectorCount(size int) uint32 {
	return uint32((size + SectorSize - 1) / SectorSize)
}

func writeVanillaTables(buf []byte, off int, locations, timestamps [SlotCount]uint32) {
	writeTable(buf, off, locations)
	writeTable(buf, off+vanillaLocationBytes, timestamps)
}

func readVanillaTables(buf []byte, off int) (locations, timestamps [SlotCount]uint32, ok bool) {
	if off+VanillaHeaderSize > len(buf) {
		return locations, timestamps, false
	}
	return readTable(buf, off), readTable(buf, off+vanillaLocationBytes), true
}

// paddedMagic returns ExtendedMagic, truncated or zero-padded to exactly
// ExtendedMagicSize bytes.
func paddedMagic() [ExtendedMagicSize]byte {
	var m [ExtendedMagicSize]byte
	n := copy(m[:], ExtendedMagic)
	_ = n
	return m
}

// writeExtendedBlock encodes the magic, a CRC32 of the directory bytes,
// the directory's length, and the directory bytes themselves at
// buf[off:], per spec.md §3.5's literal extended-header layout (magic +
// checksum + NBT length + NBT blob) — the layout spec.md itself
// specifies, not the unfinished struct in the original header.h (spec.md
// §9 notes that header/write path as skeletal and not authoritative).
func writeExtendedBlock(buf []byte, off int, dir *Directory) {
	magic := paddedMagic()
	copy(buf[off:off+ExtendedMagicSize], magic[:])
	encoded := dir.Encoded()
	checksum := crc32.ChecksumIEEE(encoded)
	binary.BigEndian.PutUint32(buf[off+ExtendedMagicSize:off+ExtendedMagicSize+4], checksum)
	binary.BigEndian.PutUint32(buf[off+ExtendedMagicSize+4:off+ExtendedMagicSize+8], uint32(len(encoded)))
	copy(buf[off+ExtendedMagicSize+8:], encoded)
}

// readExtendedBlock decodes and validates the magic and checksum of an
// extended header block at buf[off:], returning the directory bytes
// (still embedded in buf, not copied) and its declared length.
func readExtendedBlock(buf []byte, off int) (dirBytes []byte, dirLen int, err error) {
	if off+ExtendedMagicSize+8 > len(buf) {
		return nil, 0, fmt.Errorf("%w: extended header truncated", errs.ErrMalformed)
	}
	magic := paddedMagic()
	if string(buf[off:off+ExtendedMagicSize]) != string(magic[:]) {
		return nil, 0, fmt.Errorf("%w: extended header magic mismatch", errs.ErrMalformed)
	}
	wantChecksum := binary.BigEndian.Uint32(buf[off+ExtendedMagicSize : off+ExtendedMagicSize+4])
	dirLen = int(binary.BigEndian.Uint32(buf[off+ExtendedMagicSize+4 : off+ExtendedMagicSize+8]))
	start := off + ExtendedMagicSize + 8
	if dirLen < 0 || start+dirLen > len(buf) {
		return nil, 0, fmt.Errorf("%w: extended header NBT length out of bounds", errs.ErrMalformed)
	}
	dirBytes = buf[start : start+dirLen]
	if crc32.ChecksumIEEE(dirBytes) != wantChecksum {
		return nil, 0, fmt.Errorf("%w: extended header checksum mismatch", errs.ErrMalformed)
	}
	return dirBytes, dirLen, nil
}

// detectHeaderKind inspects the first bytes of an existing region file
// to determine which header shape it uses (spec.md §4.3 "Open": "detect
// vanilla, extended, or compound by probing for the extended magic at
// both of its two possible offsets").
func detectHeaderKind(buf []byte) (HeaderKind, error) {
	if len(buf) >= VanillaHeaderSize+ExtendedMagicSize {
		magic := paddedMagic()
		if string(buf[VanillaHeaderSize:VanillaHeaderSize+ExtendedMagicSize]) == string(magic[:]) {
			return Compound, nil
		}
	}
	if len(buf) >= ExtendedMagicSize {
		magic := paddedMagic()
		if string(buf[0:ExtendedMagicSize]) == string(magic[:]) {
			return Extended, nil
		}
	}
	if len(buf) >= VanillaHeaderSize {
		return Vanilla, nil
	}
	return Vanilla, fmt.Errorf("%w: file too small to hold any header", errs.ErrMalformed)
}
