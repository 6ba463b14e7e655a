// Region file read/write/delete/mtime, mmap-backed, following the
// teacher's world.Region/world.RegionManager shape (path, file handle,
// sync.RWMutex, sector-based location/timestamp tables)
// generalized to D dimensions, three header kinds, and spill files
// (spec.md §3.4, §4.3).
package region

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clodstore/clod/internal/errs"
	"github.com/clodstore/clod/internal/platform"
	"github.com/clodstore/clod/pkg/compress"
)

const chunkFrameHeaderSize = 5 // 4-byte length + 1-byte compression method

// DefaultMaxInlineSectors is the largest sector count the vanilla-style
// one-byte count field can express without colliding with
// spillSectorCount (255, the spill sentinel): chunks that would need
// more sectors spill to a side file instead (spec.md §3.4 "Spill
// files", DESIGN.md's "oversized-chunk threshold" resolution).
const DefaultMaxInlineSectors = 254

// Config selects a region file's on-disk shape and I/O policy. The
// caller (the root façade) is responsible for mapping a coordinate
// tuple to a region file and slot index before calling any RegionFile
// method; RegionFile itself only knows about slots.
type Config struct {
	Kind              HeaderKind
	Dir               *platform.Dir
	Name              string  // filename, resolved relative to Dir
	Prefix            string  // filename prefix, for naming spill files
	Coord             []int64 // this region's coordinate, for naming spill files
	ChunkExt          string  // extension for spill files (spec.md §3.4, §6)
	MaxInlineSectors  int     // 0 means DefaultMaxInlineSectors
	Method            compress.Method
	ChecksumAlgorithm ChecksumAlgorithm
	Writable          bool
}

// RegionFile is one open, mmap-backed region file.
type RegionFile struct {
	mu sync.RWMutex

	cfg  Config
	f    *os.File
	data []byte // current mmap; set to nil by Close

	kind        HeaderKind
	headerBytes int
	alloc       *allocator
	locations   [SlotCount]uint32
	timestamps  [SlotCount]uint32
	directory   *Directory

	compressor   compress.Compressor
	decompressor compress.Decompressor

	closed  bool
	inUse   int
}

// Create makes a new, empty region file with the header laid out per
// cfg.Kind, truncated to exactly the header's sector-rounded size
// (spec.md §4.3 "Create").
func Create(cfg Config) (*RegionFile, error) {
	if cfg.Dir == nil {
		return nil, fmt.Errorf("%w: Config.Dir must not be nil", errs.ErrInvalidUsage)
	}
	f, err := platform.OpenFile(cfg.Dir, cfg.Name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create region file: %w", err)
	}
	rf, err := newRegionFile(cfg, f)
	if err != nil {
		f.Close()
		platform.Remove(cfg.Dir, cfg.Name)
		return nil, err
	}
	if err := rf.initHeader(); err != nil {
		rf.Close()
		platform.Remove(cfg.Dir, cfg.Name)
		return nil, err
	}
	return rf, nil
}

// Open opens an existing region file, detecting its header kind from
// its contents rather than trusting cfg.Kind (spec.md §4.3 "Open").
func Open(cfg Config) (*RegionFile, error) {
	if cfg.Dir == nil {
		return nil, fmt.Errorf("%w: Config.Dir must not be nil", errs.ErrInvalidUsage)
	}
	flag := os.O_RDONLY
	if cfg.Writable {
		flag = os.O_RDWR
	}
	f, err := platform.OpenFile(cfg.Dir, cfg.Name, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open region file: %w", err)
	}
	rf, err := newRegionFile(cfg, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := rf.loadHeader(); err != nil {
		rf.Close()
		return nil, err
	}
	return rf, nil
}

func newRegionFile(cfg Config, f *os.File) (*RegionFile, error) {
	if cfg.MaxInlineSectors <= 0 {
		cfg.MaxInlineSectors = DefaultMaxInlineSectors
	}
	if cfg.MaxInlineSectors > spillSectorCount-1 {
		cfg.MaxInlineSectors = spillSectorCount - 1
	}
	if !compress.Supported(cfg.Method) {
		return nil, fmt.Errorf("%w: compression method %s not supported", errs.ErrInvalidUsage, cfg.Method)
	}
	return &RegionFile{cfg: cfg, f: f}, nil
}

func (r *RegionFile) initHeader() error {
	layout := layoutFor(r.cfg.Kind, directoryCapacityFor(SlotCount))
	r.kind = r.cfg.Kind
	r.headerBytes = layout.totalSize
	headerSectors := headerSectorCount(layout.totalSize)
	size := int(headerSectors) * SectorSize

	data, err := platform.Remap(r.f, nil, size, r.cfg.Writable)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidUsage, err)
	}
	r.data = data
	r.alloc = newAllocator(headerSectors)

	if layout.extendedOffset >= 0 {
		dir, err := NewDirectory(SlotCount)
		if err != nil {
			return err
		}
		r.directory = dir
	}
	if data != nil {
		r.flushHeaderLocked()
	}
	return nil
}

func (r *RegionFile) loadHeader() error {
	info, err := r.f.Stat()
	if err != nil {
		return err
	}
	size := int(info.Size())
	data, err := platform.Mmap(r.f, size, r.cfg.Writable)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidUsage, err)
	}
	r.data = data

	kind, err := detectHeaderKind(data)
	if err != nil {
		return err
	}
	r.kind = kind

	layout := layoutFor(kind, 0)
	if layout.vanillaOffset >= 0 {
		locations, timestamps, ok := readVanillaTables(data, layout.vanillaOffset)
		if !ok {
			return fmt.Errorf("%w: vanilla header truncated", errs.ErrMalformed)
		}
		r.locations, r.timestamps = locations, timestamps
	}
	if layout.extendedOffset >= 0 {
		dirBytes, dirLen, err := readExtendedBlock(data, layout.extendedOffset)
		if err != nil {
			return err
		}
		backing := make([]byte, directoryCapacityFor(SlotCount))
		copy(backing, dirBytes)
		r.directory = LoadDirectory(backing, dirLen, SlotCount)
		r.headerBytes = layout.extendedOffset + ExtendedMagicSize + 8 + dirLen
	} else {
		r.headerBytes = layout.totalSize
	}

	headerSectors := headerSectorCount(r.headerBytes)
	r.alloc = newAllocator(headerSectors)
	for i := 0; i < SlotCount; i++ {
		offset, count := decodeLocation(r.getLocation(i))
		if count > 0 && count != spillSectorCount {
			r.alloc.reserve(offset, uint32(count))
		}
	}
	return nil
}

// flushHeaderLocked writes the in-memory location/timestamp tables and,
// if present, the extended directory back into the mmap. Caller must
// hold r.mu for writing.
func (r *RegionFile) flushHeaderLocked() {
	layout := layoutFor(r.kind, directoryCapacityFor(SlotCount))
	if layout.vanillaOffset >= 0 {
		writeVanillaTables(r.data, layout.vanillaOffset, r.locations, r.timestamps)
	}
	if layout.extendedOffset >= 0 && r.directory != nil {
		writeExtendedBlock(r.data, layout.extendedOffset, r.directory)
	}
}

// Close unmaps and closes the backing file. Close refuses while the
// caller reports the region still in use (spec.md §4.3, §8 invariant:
// "close while in use is a fatal, caller-visible condition").
func (r *RegionFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if r.inUse > 0 {
		return errs.ErrClosedInUse
	}
	if err := platform.Munmap(r.data); err != nil {
		return err
	}
	r.data = nil
	r.closed = true
	return r.f.Close()
}

// Enter and Leave bracket an in-flight operation so Close can refuse
// while the region is in use (spec.md §4.3 "entry/leave counter").
func (r *RegionFile) Enter() {
	r.mu.Lock()
	r.inUse++
	r.mu.Unlock()
}

func (r *RegionFile) Leave() {
	r.mu.Lock()
	r.inUse--
	r.mu.Unlock()
}

// spillName is the spill file's name for slot: the chunk's own absolute
// position formatted with the same filename grammar as the region file,
// but with the chunk extension substituted for the region extension
// (spec.md §3.4 "Spill files", §6 Scenario 2 — e.g. region.0.0.mcc).
func (r *RegionFile) spillName(slot int) string {
	pos := positionForSlot(r.cfg.Coord, slot)
	return FormatFilename(r.cfg.Prefix, pos, r.cfg.ChunkExt)
}

// hasVanillaTable reports whether this region keeps its location and
// timestamp tables in the classic 8192-byte layout. Only a pure
// Extended header lacks one, keeping that bookkeeping in the NBT
// directory instead (see directory.go).
func (r *RegionFile) hasVanillaTable() bool {
	return r.kind != Extended
}

func (r *RegionFile) getLocation(slot int) uint32 {
	if r.hasVanillaTable() {
		return r.locations[slot]
	}
	v, _ := r.directory.Location(slot)
	return v
}

func (r *RegionFile) setLocation(slot int, value uint32) {
	if r.hasVanillaTable() {
		r.locations[slot] = value
		return
	}
	r.directory.SetLocation(slot, value)
}

func (r *RegionFile) getTimestamp(slot int) uint32 {
	if r.hasVanillaTable() {
		return r.timestamps[slot]
	}
	v, _ := r.directory.Timestamp(slot)
	return v
}

func (r *RegionFile) setTimestamp(slot int, value uint32) {
	if r.hasVanillaTable() {
		r.timestamps[slot] = value
		return
	}
	r.directory.SetTimestamp(slot, value)
}

// HasChunk reports whether slot holds a chunk.
func (r *RegionFile) HasChunk(slot int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, count := decodeLocation(r.getLocation(slot))
	return count > 0
}

// Mtime returns the recorded write time for slot as a Unix epoch second,
// matching the vanilla format's own 4-byte mtime field (spec.md §4.3
// "Mtime").
func (r *RegionFile) Mtime(slot int) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if slot < 0 || slot >= SlotCount {
		return 0, false
	}
	_, count := decodeLocation(r.getLocation(slot))
	if count == 0 {
		return 0, false
	}
	return int64(r.getTimestamp(slot)), true
}

// Read decodes and decompresses the chunk at slot into the caller-
// supplied dst, returning the decompressed length.
func (r *RegionFile) Read(slot int, dst []byte) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if slot < 0 || slot >= SlotCount {
		return 0, fmt.Errorf("%w: slot %d out of range", errs.ErrInvalidUsage, slot)
	}
	offset, count := decodeLocation(r.getLocation(slot))
	if count == 0 {
		return 0, errs.ErrNotFound
	}

	var method byte
	var payload []byte
	if count == spillSectorCount {
		entry, ok := r.directory.FindSpill(int32(slot))
		if !ok {
			return 0, fmt.Errorf("%w: spill directory entry missing for slot %d", errs.ErrMalformed, slot)
		}
		raw, err := r.readSpillFile(slot, int(entry.Length))
		if err != nil {
			return 0, err
		}
		if len(raw) < 1 {
			return 0, fmt.Errorf("%w: spill file for slot %d too short", errs.ErrMalformed, slot)
		}
		method, payload = raw[0], raw[1:]
	} else {
		start := int(offset) * SectorSize
		end := start + int(count)*SectorSize
		if start < 0 || end > len(r.data) {
			return 0, fmt.Errorf("%w: slot %d location out of bounds", errs.ErrMalformed, slot)
		}
		frame := r.data[start:end]
		if len(frame) < chunkFrameHeaderSize {
			return 0, fmt.Errorf("%w: slot %d frame truncated", errs.ErrMalformed, slot)
		}
		length := binary.BigEndian.Uint32(frame[0:4])
		if int(length) < 1 || int(length) > len(frame)-4 {
			return 0, fmt.Errorf("%w: slot %d frame length out of bounds", errs.ErrMalformed, slot)
		}
		method = frame[4]
		payload = frame[5 : 4+int(length)]
	}

	n, res := r.decompressor.Decompress(dst, payload, compress.Method(method))
	if res != compress.Success {
		return n, fmt.Errorf("%w: decompress slot %d: %s", errs.ErrMalformed, slot, res)
	}
	return n, nil
}

func (r *RegionFile) readSpillFile(slot, length int) ([]byte, error) {
	f, err := platform.OpenFile(r.cfg.Dir, r.spillName(slot), os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open spill file: %v", errs.ErrMalformed, err)
	}
	defer f.Close()
	buf := make([]byte, length)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: read spill file: %v", errs.ErrMalformed, err)
	}
	return buf, nil
}

// Write compresses src with the region's configured method and stores
// it at slot, allocating or reusing sectors as needed (spec.md §4.3
// "Write", §3.4 "Sector allocation").
func (r *RegionFile) Write(slot int, src []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot < 0 || slot >= SlotCount {
		return fmt.Errorf("%w: slot %d out of range", errs.ErrInvalidUsage, slot)
	}
	if !r.cfg.Writable {
		return fmt.Errorf("%w: region opened read-only", errs.ErrInvalidUsage)
	}

	bound := len(src) + 4096
	compressed := make([]byte, bound)
	n, res := r.compressor.Compress(compressed, src, r.cfg.Method, compress.LevelNormal)
	if res != compress.Success {
		return fmt.Errorf("%w: compress slot %d: %s", errs.ErrMalformed, slot, res)
	}
	compressed = compressed[:n]

	r.freeSlotLocked(slot)

	needed := chunkFrameHeaderSize + len(compressed)
	sectors := uint32((needed + SectorSize - 1) / SectorSize)
	if sectors == 0 {
		sectors = 1
	}

	if sectors > uint32(r.cfg.MaxInlineSectors) {
		if err := r.writeSpillLocked(slot, byte(r.cfg.Method), compressed); err != nil {
			return err
		}
	} else {
		if err := r.writeInlineLocked(slot, sectors, byte(r.cfg.Method), compressed); err != nil {
			return err
		}
	}

	r.setTimestamp(slot, uint32(time.Now().Unix()))
	checksum := Checksum(r.cfg.ChecksumAlgorithm, src)
	if r.directory != nil {
		r.directory.SetChecksum(slot, checksum)
	}
	r.flushHeaderLocked()
	return nil
}

func (r *RegionFile) writeInlineLocked(slot int, sectors uint32, method byte, compressed []byte) error {
	offset := r.alloc.alloc(sectors)
	needEnd := (int(offset) + int(sectors)) * SectorSize
	if needEnd > len(r.data) {
		data, err := platform.Remap(r.f, r.data, needEnd, true)
		if err != nil {
			return fmt.Errorf("%w: grow region file: %v", errs.ErrInvalidUsage, err)
		}
		r.data = data
	}
	start := int(offset) * SectorSize
	frame := r.data[start : start+int(sectors)*SectorSize]
	for i := range frame {
		frame[i] = 0
	}
	binary.BigEndian.PutUint32(frame[0:4], uint32(1+len(compressed)))
	frame[4] = method
	copy(frame[5:], compressed)
	r.setLocation(slot, encodeLocation(offset, uint8(sectors)))
	return nil
}

// writeSpillLocked writes the spill payload to a uniquely-named temp file
// first and renames it into place, so a crash mid-write never leaves a
// half-written spill file at the name Read expects (spec.md §3.4 "Spill
// files" says nothing about crash safety, but the region's own header
// writes are all-or-nothing at the sector level and the spill path should
// match that). The temp name only needs to not collide with a
// concurrently spilling slot, so a random UUID suffix is enough; it never
// appears in the directory's persisted metadata.
func (r *RegionFile) writeSpillLocked(slot int, method byte, compressed []byte) error {
	finalName := r.spillName(slot)
	tempName := finalName + "." + uuid.NewString() + ".tmp"

	f, err := platform.OpenFile(r.cfg.Dir, tempName, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create spill temp file: %v", errs.ErrInvalidUsage, err)
	}
	payload := make([]byte, 1+len(compressed))
	payload[0] = method
	copy(payload[1:], compressed)
	if _, err := f.Write(payload); err != nil {
		f.Close()
		platform.Remove(r.cfg.Dir, tempName)
		return fmt.Errorf("%w: write spill temp file: %v", errs.ErrInvalidUsage, err)
	}
	if err := f.Close(); err != nil {
		platform.Remove(r.cfg.Dir, tempName)
		return fmt.Errorf("%w: close spill temp file: %v", errs.ErrInvalidUsage, err)
	}
	if err := platform.Rename(r.cfg.Dir, tempName, finalName); err != nil {
		platform.Remove(r.cfg.Dir, tempName)
		return fmt.Errorf("%w: rename spill temp file: %v", errs.ErrInvalidUsage, err)
	}

	r.setLocation(slot, encodeLocation(0, spillSectorCount))
	if r.directory == nil {
		return fmt.Errorf("%w: spill requires an extended header", errs.ErrInvalidUsage)
	}
	r.directory.AddSpill(SpillEntry{Slot: int32(slot), Length: int32(len(payload))})
	return nil
}

// Delete removes the chunk at slot, freeing its sectors or spill file.
func (r *RegionFile) Delete(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot < 0 || slot >= SlotCount {
		return fmt.Errorf("%w: slot %d out of range", errs.ErrInvalidUsage, slot)
	}
	_, count := decodeLocation(r.getLocation(slot))
	if count == 0 {
		return errs.ErrNotFound
	}
	r.freeSlotLocked(slot)
	r.setTimestamp(slot, 0)
	if r.directory != nil {
		r.directory.SetChecksum(slot, 0)
	}
	r.flushHeaderLocked()
	return nil
}

func (r *RegionFile) freeSlotLocked(slot int) {
	offset, count := decodeLocation(r.getLocation(slot))
	if count == 0 {
		return
	}
	if count == spillSectorCount {
		platform.Remove(r.cfg.Dir, r.spillName(slot))
		if r.directory != nil {
			r.directory.RemoveSpill(int32(slot))
		}
	} else {
		r.alloc.free(offset, uint32(count))
	}
	r.setLocation(slot, 0)
}
