package region

import (
	"fmt"

	"github.com/clodstore/clod/internal/errs"
	"github.com/clodstore/clod/internal/nbt"
)

// directoryCapacityFor sizes the extended header's NBT blob: enough for
// a full per-slot checksum table plus headroom for a handful of spill
// entries before a caller-triggered grow is needed (spec.md §3.5
// "extended header").
func directoryCapacityFor(slotCount int) int {
	return 64 + slotCount*16 + 32*32
}

// Directory is the extended header's NBT metadata tree: fixed per-slot
// checksum, location and timestamp tables plus a growable list of
// spill-slot descriptors (spec.md §3.5, §3.4 "Spill files"). It is
// itself just an NBT compound spanning the whole of buf (buf.End is
// always the root compound's current encoded length), built and edited
// entirely through internal/nbt's own
// CompoundAdd/CompoundGet/ListResize machinery — the directory never
// reaches past that package's exported surface.
//
// A region file opened in Extended mode (no vanilla tables on disk, see
// header.go's layoutFor) keeps its location and timestamp tables here
// instead; Vanilla and Compound regions keep those in the classic
// 8192-byte table and only use this directory for checksums and spills.
//
// Spill entries record only the slot index and encoded payload length;
// a spill file's name is derived deterministically from the region's
// prefix and coordinate plus the slot (see spillName in file.go), so the
// directory never needs to hold a variable-length string.
type Directory struct {
	buf       *nbt.Buffer
	slotCount int
}

// NewDirectory creates an empty directory sized for slotCount checksums
// plus spill headroom.
func NewDirectory(slotCount int) (*Directory, error) {
	bytes := make([]byte, directoryCapacityFor(slotCount))
	bytes[0] = nbt.End
	d := &Directory{buf: nbt.Live(bytes, 1, len(bytes)-1), slotCount: slotCount}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDirectory wraps a previously encoded directory blob (as read from
// an extended header) for further reads and edits. size is the length
// of the valid compound within bytes; bytes may be longer to leave
// in-place edit headroom.
func LoadDirectory(bytes []byte, size, slotCount int) *Directory {
	return &Directory{buf: nbt.Live(bytes, size, len(bytes)-size), slotCount: slotCount}
}

func (d *Directory) init() error {
	_, _, _, _, ok := nbt.CompoundAdd(d.buf, 0, d.buf.End, "checksums", nbt.List)
	if !ok {
		return fmt.Errorf("%w: directory has no room for a checksum table", errs.ErrInvalidUsage)
	}

	payloadPos, size, _, ok := nbt.CompoundGet(d.buf.Bytes, 0, d.buf.End, "checksums")
	if !ok {
		return fmt.Errorf("%w: checksums tag vanished after insert", errs.ErrMalformed)
	}
	if _, ok := nbt.ListResize(d.buf, payloadPos, size, nbt.Int64, d.slotCount); !ok {
		return fmt.Errorf("%w: directory has no room for %d checksums", errs.ErrInvalidUsage, d.slotCount)
	}

	if err := d.addInt32Table("locations"); err != nil {
		return err
	}
	if err := d.addInt32Table("timestamps"); err != nil {
		return err
	}

	_, _, _, _, ok = nbt.CompoundAdd(d.buf, 0, d.buf.End, "spills", nbt.List)
	if !ok {
		return fmt.Errorf("%w: directory has no room for a spill list", errs.ErrInvalidUsage)
	}
	return nil
}

func (d *Directory) addInt32Table(name string) error {
	_, _, _, _, ok := nbt.CompoundAdd(d.buf, 0, d.buf.End, name, nbt.List)
	if !ok {
		return fmt.Errorf("%w: directory has no room for a %q table", errs.ErrInvalidUsage, name)
	}
	payloadPos, size, _, ok := nbt.CompoundGet(d.buf.Bytes, 0, d.buf.End, name)
	if !ok {
		return fmt.Errorf("%w: %q tag vanished after insert", errs.ErrMalformed, name)
	}
	if _, ok := nbt.ListResize(d.buf, payloadPos, size, nbt.Int32, d.slotCount); !ok {
		return fmt.Errorf("%w: directory has no room for %d entries in %q", errs.ErrInvalidUsage, d.slotCount, name)
	}
	return nil
}

// Location returns the packed location word for slot from the
// "locations" table (only meaningful for Extended-mode regions).
func (d *Directory) Location(slot int) (uint32, bool) {
	pos, ok := d.int32Elem("locations", slot)
	if !ok {
		return 0, false
	}
	return uint32(nbt.DecodeInt32(d.buf.Bytes, pos)), true
}

// SetLocation records the packed location word for slot.
func (d *Directory) SetLocation(slot int, value uint32) bool {
	pos, ok := d.int32Elem("locations", slot)
	if !ok {
		return false
	}
	nbt.EncodeInt32(d.buf.Bytes, pos, int32(value))
	return true
}

// Timestamp returns the recorded mtime word for slot from the
// "timestamps" table (only meaningful for Extended-mode regions).
func (d *Directory) Timestamp(slot int) (uint32, bool) {
	pos, ok := d.int32Elem("timestamps", slot)
	if !ok {
		return 0, false
	}
	return uint32(nbt.DecodeInt32(d.buf.Bytes, pos)), true
}

// SetTimestamp records the mtime word for slot.
func (d *Directory) SetTimestamp(slot int, value uint32) bool {
	pos, ok := d.int32Elem("timestamps", slot)
	if !ok {
		return false
	}
	nbt.EncodeInt32(d.buf.Bytes, pos, int32(value))
	return true
}

func (d *Directory) int32Elem(tableName string, slot int) (pos int, ok bool) {
	if slot < 0 || slot >= d.slotCount {
		return 0, false
	}
	payloadPos, listSize, _, ok := nbt.CompoundGet(d.buf.Bytes, 0, d.buf.End, tableName)
	if !ok {
		return 0, false
	}
	elemPos := payloadPos + 5 + slot*4
	if elemPos+4 > payloadPos+listSize {
		return 0, false
	}
	return elemPos, true
}

// Encoded returns the valid portion of the directory's backing bytes,
// ready to be written into an extended header.
func (d *Directory) Encoded() []byte {
	return d.buf.Bytes[:d.buf.End]
}

// Size returns the current encoded length of the directory's root
// compound.
func (d *Directory) Size() int {
	return d.buf.End
}

// Checksum returns the recorded checksum for slot, which is zero for
// any slot never written via SetChecksum.
func (d *Directory) Checksum(slot int) (uint64, bool) {
	payloadPos, ok := d.checksumElem(slot)
	if !ok {
		return 0, false
	}
	return uint64(nbt.DecodeInt64(d.buf.Bytes, payloadPos)), true
}

// SetChecksum records the checksum for slot.
func (d *Directory) SetChecksum(slot int, checksum uint64) bool {
	payloadPos, ok := d.checksumElem(slot)
	if !ok {
		return false
	}
	nbt.EncodeInt64(d.buf.Bytes, payloadPos, int64(checksum))
	return true
}

func (d *Directory) checksumElem(slot int) (pos int, ok bool) {
	if slot < 0 || slot >= d.slotCount {
		return 0, false
	}
	payloadPos, listSize, _, ok := nbt.CompoundGet(d.buf.Bytes, 0, d.buf.End, "checksums")
	if !ok {
		return 0, false
	}
	elemPos := payloadPos + 5 + slot*8
	if elemPos+8 > payloadPos+listSize {
		return 0, false
	}
	return elemPos, true
}

// SpillEntry describes the length of a chunk too large for inline
// sector placement (spec.md §3.4 "Spill files"); its content lives in a
// side file named deterministically from the slot.
type SpillEntry struct {
	Slot   int32
	Length int32
}

func (d *Directory) spillsTag() (payloadPos, size int, ok bool) {
	return nbt.CompoundGet(d.buf.Bytes, 0, d.buf.End, "spills")
}

func (d *Directory) spillEntries() ([]SpillEntry, bool) {
	payloadPos, size, ok := d.spillsTag()
	if !ok {
		return nil, false
	}
	end := payloadPos + size
	it := nbt.Iterator{Buf: d.buf.Bytes, Kind: nbt.List, Pos: payloadPos, End: end}
	var entries []SpillEntry
	for it.Next() {
		e, ok := decodeSpillEntry(d.buf.Bytes, it.Tag, it.Tag+it.Size)
		if !ok {
			return nil, false
		}
		entries = append(entries, e)
	}
	return entries, true
}

// FindSpill returns the spill entry for slot, if one exists.
func (d *Directory) FindSpill(slot int32) (SpillEntry, bool) {
	entries, ok := d.spillEntries()
	if !ok {
		return SpillEntry{}, false
	}
	for _, e := range entries {
		if e.Slot == slot {
			return e, true
		}
	}
	return SpillEntry{}, false
}

// AddSpill records (or replaces) the spill entry for entry.Slot.
func (d *Directory) AddSpill(entry SpillEntry) bool {
	entries, ok := d.spillEntries()
	if !ok {
		return false
	}
	replaced := false
	for i, e := range entries {
		if e.Slot == entry.Slot {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return d.rewriteSpills(entries)
}

// RemoveSpill drops the spill entry for slot, if any. Reports whether
// one was removed.
func (d *Directory) RemoveSpill(slot int32) bool {
	entries, ok := d.spillEntries()
	if !ok {
		return false
	}
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.Slot == slot {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return false
	}
	return d.rewriteSpills(kept)
}

// rewriteSpills resizes the spills list to len(entries) COMPOUND
// elements, then fills each via CompoundAdd so every byte-level shift
// stays inside internal/nbt's own bounds-checked machinery.
func (d *Directory) rewriteSpills(entries []SpillEntry) bool {
	payloadPos, size, ok := d.spillsTag()
	if !ok {
		return false
	}
	if _, ok := nbt.ListResize(d.buf, payloadPos, size, nbt.Compound, len(entries)); !ok {
		return false
	}

	payloadPos, newSize, ok := d.spillsTag()
	if !ok {
		return false
	}
	it := nbt.Iterator{Buf: d.buf.Bytes, Kind: nbt.List, Pos: payloadPos, End: payloadPos + newSize}
	i := 0
	for it.Next() {
		if i >= len(entries) {
			break
		}
		if !d.fillSpillEntry(it.Tag, it.Size, entries[i]) {
			return false
		}
		i++
		// A previous element's growth can shift every later element, so
		// re-walk from the refreshed list rather than trusting it.Next
		// against now-stale offsets.
		payloadPos, newSize, ok = d.spillsTag()
		if !ok {
			return false
		}
		it = nbt.Iterator{Buf: d.buf.Bytes, Kind: nbt.List, Pos: payloadPos, End: payloadPos + newSize}
		for skip := 0; skip < i; skip++ {
			if !it.Next() {
				return false
			}
		}
	}
	return true
}

func (d *Directory) fillSpillEntry(pos, size int, entry SpillEntry) bool {
	slotPos, _, size1, _, ok := nbt.CompoundAdd(d.buf, pos, size, "slot", nbt.Int32)
	if !ok {
		return false
	}
	nbt.EncodeInt32(d.buf.Bytes, slotPos, entry.Slot)

	lengthPos, _, _, _, ok := nbt.CompoundAdd(d.buf, pos, size1, "length", nbt.Int32)
	if !ok {
		return false
	}
	nbt.EncodeInt32(d.buf.Bytes, lengthPos, entry.Length)
	return true
}

func decodeSpillEntry(buf []byte, pos, end int) (SpillEntry, bool) {
	slotPos, _, _, ok := nbt.CompoundGet(buf, pos, end, "slot")
	if !ok {
		return SpillEntry{}, false
	}
	lengthPos, _, _, ok := nbt.CompoundGet(buf, pos, end, "length")
	if !ok {
		return SpillEntry{}, false
	}
	return SpillEntry{
		Slot:   nbt.DecodeInt32(buf, slotPos),
		Length: nbt.DecodeInt32(buf, lengthPos),
	}, true
}
