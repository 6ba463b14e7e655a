// Package clod is a directory-backed store mapping D-dimensional integer
// coordinate tuples to opaque chunk byte blobs, file-format-compatible
// with Minecraft's region format plus an optional extended NBT-metadata
// header (spec.md §1, §2). This file is the public façade: Options
// validation and the Region handle's Open/Read/Write/Delete/Mtime/
// Iterate/Close surface, grounded on the teacher's
// world.RegionManager (get-or-open-by-coordinate over a
// sync.RWMutex-guarded cache) generalized to arbitrary dimensionality and
// the three header kinds.
package clod

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/clodstore/clod/internal/errs"
	"github.com/clodstore/clod/internal/filecache"
	"github.com/clodstore/clod/internal/logging"
	"github.com/clodstore/clod/internal/platform"
	"github.com/clodstore/clod/internal/region"
	"github.com/clodstore/clod/pkg/compress"
)

// LibraryVersion is the compile-time version an Options.LibraryVersion
// must match, else Open refuses with InvalidUsage (spec.md §6
// "Library-version field").
const LibraryVersion = 1

// Mode selects whether a Region is opened for reading only or for
// reading and writing.
type Mode int

const (
	ReadWrite Mode = iota
	ReadOnly
)

// Options configures a Region (spec.md §4.5). Zero-value fields are
// defaulted by Validate: D=2, ReadWrite, prefix "region", region
// extension "mcr", chunk extension "mcc". yaml tags let a host process
// load Options from a config file the same way the teacher's own Config
// struct is tagged for its config loader.
type Options struct {
	LibraryVersion int `yaml:"libraryVersion"`

	BaseDir string `yaml:"baseDir"`
	Mode    Mode   `yaml:"mode"`

	Dimensions int    `yaml:"dimensions"`
	Prefix     string `yaml:"prefix"`
	RegionExt  string `yaml:"regionExt"`
	ChunkExt   string `yaml:"chunkExt"`

	Kind              region.HeaderKind      `yaml:"headerKind"`
	Method            compress.Method        `yaml:"method"`
	ChecksumAlgorithm region.ChecksumAlgorithm `yaml:"checksumAlgorithm"`
	MaxInlineSectors  int                    `yaml:"maxInlineSectors"`
	Permissions       uint32                 `yaml:"permissions"`

	Log *logging.Logger `yaml:"-"`
}

// vanillaCompatible reports whether o's dims/prefix/ext combination
// matches what a stock Minecraft reader expects (spec.md §4.5).
func (o *Options) vanillaCompatible() bool {
	return region.IsVanillaCompatible(o.Dimensions, o.Prefix, o.RegionExt)
}

// defaultMethod picks ZLIB when vanilla-compatible, else LZ4F, falling
// back to UNCOMPRESSED if neither backend is usable (spec.md §4.5); both
// klauspost/zlib and pierrec/lz4 are always linked in, so the fallback
// only fires for a method this build genuinely doesn't support.
func (o *Options) defaultMethod() compress.Method {
	if o.vanillaCompatible() {
		if compress.Supported(compress.Zlib) {
			return compress.Zlib
		}
	} else if compress.Supported(compress.LZ4F) {
		return compress.LZ4F
	}
	return compress.Uncompressed
}

// Validate fills in defaults and rejects malformed options (spec.md
// §4.5, §6 "Library-version field").
func (o *Options) Validate() error {
	if o.LibraryVersion == 0 {
		o.LibraryVersion = LibraryVersion
	}
	if o.LibraryVersion != LibraryVersion {
		return fmt.Errorf("%w: options library version %d does not match %d", errs.ErrInvalidUsage, o.LibraryVersion, LibraryVersion)
	}
	if o.Dimensions == 0 {
		o.Dimensions = 2
	}
	if o.Dimensions < 1 || o.Dimensions > MaxDimensions {
		return fmt.Errorf("%w: dimensions %d out of range [1,%d]", errs.ErrInvalidUsage, o.Dimensions, MaxDimensions)
	}
	if o.Prefix == "" {
		o.Prefix = "region"
	}
	if len(o.Prefix) > 30 {
		return fmt.Errorf("%w: filename prefix longer than 30 characters", errs.ErrInvalidUsage)
	}
	if err := region.ValidatePrefix(o.Prefix); err != nil {
		return err
	}
	if o.RegionExt == "" {
		o.RegionExt = "mcr"
	}
	if o.ChunkExt == "" {
		o.ChunkExt = "mcc"
	}
	if len(o.RegionExt) > 14 || len(o.ChunkExt) > 14 {
		return fmt.Errorf("%w: filename extension longer than 14 characters", errs.ErrInvalidUsage)
	}
	if o.Permissions == 0 {
		o.Permissions = 0o644
	}
	if o.Method == 0 {
		o.Method = o.defaultMethod()
	}
	if !compress.Supported(o.Method) {
		return fmt.Errorf("%w: compression method %s not supported", errs.ErrInvalidUsage, o.Method)
	}
	if o.MaxInlineSectors == 0 {
		o.MaxInlineSectors = region.DefaultMaxInlineSectors
	}
	return nil
}

// LoadOptions reads and validates Options from a YAML file, the same
// role the teacher's config.yaml plays for the whole panel (spec.md
// §4.5's option struct, loaded the teacher's way instead of through the
// application-level viper loader the teacher itself uses — see
// DESIGN.md for why viper stays at the edge of a storage library).
func LoadOptions(path string) (Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("%w: read options file: %v", errs.ErrInvalidUsage, err)
	}
	var opts Options
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return Options{}, fmt.Errorf("%w: parse options file: %v", errs.ErrInvalidUsage, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// SaveOptions writes o as YAML to path, for a host process that wants to
// persist a validated Options value it built programmatically.
func SaveOptions(o Options, path string) error {
	raw, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("%w: marshal options: %v", errs.ErrInvalidUsage, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write options file: %v", errs.ErrInvalidUsage, err)
	}
	return nil
}

// Region is an open store over one directory of region files. The zero
// value is not usable; construct one with Open.
type Region struct {
	opts  Options
	dir   *platform.Dir
	cache *filecache.Cache

	inUse int64 // atomic; spec.md §5 "atomic in-use counter"

	mu     sync.Mutex
	closed bool
}

// Open validates opts, opens (or confirms) its base directory, and
// returns a ready Region. The underlying region files are opened lazily
// by the file cache on first access (spec.md §4.3 "Open", §4.5).
func Open(opts Options) (*Region, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	base := opts.BaseDir
	if base == "" {
		base = "."
	}
	dir, err := platform.OpenDir(base)
	if err != nil {
		return nil, fmt.Errorf("%w: open base directory: %v", errs.ErrInvalidUsage, err)
	}
	return &Region{
		opts:  opts,
		dir:   dir,
		cache: filecache.New(nil, opts.Log),
	}, nil
}

// Enter and Leave bracket a public call so Close can detect and abort on
// a close-while-in-use (spec.md §5 point 4).
func (r *Region) Enter() { atomic.AddInt64(&r.inUse, 1) }
func (r *Region) Leave() { atomic.AddInt64(&r.inUse, -1) }

// Close closes every open region file and releases the base directory
// handle. Calling Close while any call is still between Enter/Leave is a
// programmer error the caller must avoid; spec.md §5 defines it as fatal
// and this implementation reports it rather than silently racing.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if atomic.LoadInt64(&r.inUse) != 0 {
		return errs.ErrClosedInUse
	}
	r.closed = true
	err := r.cache.CloseAll()
	if dirErr := r.dir.Close(); err == nil {
		err = dirErr
	}
	return err
}

func (r *Region) regionFilename(coord []int64) string {
	return region.FormatFilename(r.opts.Prefix, coord, r.opts.RegionExt)
}

// headerKind picks the on-disk header shape for a newly created region
// file. An explicit non-Vanilla request is always honored. Otherwise a
// vanilla-compatible layout is created as Compound rather than pure
// Vanilla: Compound keeps the same location/timestamp tables at offset 0
// real vanilla tools read, but also carries the directory a spill needs
// to record its entry (spec.md §3.4 — spilling requires an extended
// directory, and the default configuration must still be able to spill).
func (r *Region) headerKind() region.HeaderKind {
	if r.opts.Kind != region.Vanilla {
		return r.opts.Kind
	}
	if r.opts.vanillaCompatible() {
		return region.Compound
	}
	return region.Extended
}

func (r *Region) openRegionFile(coord []int64) (*region.RegionFile, error) {
	name := r.regionFilename(coord)
	return r.cache.Get(name, func(key string) (*region.RegionFile, error) {
		cfg := region.Config{
			Kind:              r.headerKind(),
			Dir:               r.dir,
			Name:              key,
			Prefix:            r.opts.Prefix,
			Coord:             coord,
			ChunkExt:          r.opts.ChunkExt,
			MaxInlineSectors:  r.opts.MaxInlineSectors,
			Method:            r.opts.Method,
			ChecksumAlgorithm: r.opts.ChecksumAlgorithm,
			Writable:          r.opts.Mode == ReadWrite,
		}
		rf, err := region.Open(cfg)
		if err == nil {
			return rf, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if r.opts.Mode != ReadWrite {
			return nil, errs.ErrNotFound
		}
		return region.Create(cfg)
	})
}

// lookupRegionFile is the read-only counterpart to openRegionFile: it
// never creates a missing region file (spec.md §4.3 Read step 1,
// "create=false").
func (r *Region) lookupRegionFile(coord []int64) (*region.RegionFile, error) {
	name := r.regionFilename(coord)
	return r.cache.Get(name, func(key string) (*region.RegionFile, error) {
		rf, err := region.Open(region.Config{
			Kind:              r.headerKind(),
			Dir:               r.dir,
			Name:              key,
			Prefix:            r.opts.Prefix,
			Coord:             coord,
			ChunkExt:          r.opts.ChunkExt,
			MaxInlineSectors:  r.opts.MaxInlineSectors,
			Method:            r.opts.Method,
			ChecksumAlgorithm: r.opts.ChecksumAlgorithm,
			Writable:          r.opts.Mode == ReadWrite,
		})
		if err != nil && errors.Is(err, os.ErrNotExist) {
			return nil, errs.ErrNotFound
		}
		return rf, err
	})
}

func (r *Region) split(pos Vec) (coord Vec, slot int, err error) {
	if len(pos) != r.opts.Dimensions {
		return nil, 0, fmt.Errorf("%w: position has %d dimensions, region configured for %d", errs.ErrInvalidUsage, len(pos), r.opts.Dimensions)
	}
	c, s, err := Group(pos)
	if err != nil {
		return nil, 0, err
	}
	return c, int(s), nil
}

// Read decodes and decompresses the chunk at pos into dst, returning the
// decompressed length.
func (r *Region) Read(pos Vec, dst []byte) (int, error) {
	r.Enter()
	defer r.Leave()

	coord, slot, err := r.split(pos)
	if err != nil {
		return 0, err
	}
	rf, err := r.lookupRegionFile(coord)
	if err != nil {
		return 0, err
	}
	rf.Enter()
	defer rf.Leave()
	return rf.Read(slot, dst)
}

// Write compresses src with the region's configured method and stores it
// at pos, creating the backing region file if necessary.
func (r *Region) Write(pos Vec, src []byte) error {
	r.Enter()
	defer r.Leave()

	if r.opts.Mode != ReadWrite {
		return fmt.Errorf("%w: region opened read-only", errs.ErrInvalidUsage)
	}
	coord, slot, err := r.split(pos)
	if err != nil {
		return err
	}
	rf, err := r.openRegionFile(coord)
	if err != nil {
		return err
	}
	rf.Enter()
	defer rf.Leave()
	return rf.Write(slot, src)
}

// Delete removes the chunk at pos, if any.
func (r *Region) Delete(pos Vec) error {
	r.Enter()
	defer r.Leave()

	if r.opts.Mode != ReadWrite {
		return fmt.Errorf("%w: region opened read-only", errs.ErrInvalidUsage)
	}
	coord, slot, err := r.split(pos)
	if err != nil {
		return err
	}
	rf, err := r.lookupRegionFile(coord)
	if err != nil {
		return err
	}
	rf.Enter()
	defer rf.Leave()
	return rf.Delete(slot)
}

// Mtime returns the recorded write time for pos as a Unix epoch second.
func (r *Region) Mtime(pos Vec) (int64, error) {
	r.Enter()
	defer r.Leave()

	coord, slot, err := r.split(pos)
	if err != nil {
		return 0, err
	}
	rf, err := r.lookupRegionFile(coord)
	if err != nil {
		return 0, err
	}
	rf.Enter()
	defer rf.Leave()
	mtime, ok := rf.Mtime(slot)
	if !ok {
		return 0, errs.ErrNotFound
	}
	return mtime, nil
}

// Iterate walks every occupied chunk position across the base directory's
// region files, calling visit for each (spec.md §4.3 "Iteration", §8
// invariant 6: each occupied slot is yielded exactly once, never an empty
// one). Iteration stops at the first error visit returns.
func (r *Region) Iterate(visit func(pos Vec) error) error {
	r.Enter()
	defer r.Leave()

	coords, err := region.ListRegions(r.dir, r.opts.Prefix, r.opts.RegionExt, r.opts.Dimensions)
	if err != nil {
		return err
	}
	for _, coord := range coords {
		rf, err := r.lookupRegionFile(coord)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}
			return err
		}
		rf.Enter()
		slots := rf.OccupiedSlots()
		rf.Leave()

		for _, slot := range slots {
			pos, err := Ungroup(Vec(coord), uint32(slot))
			if err != nil {
				return err
			}
			if err := visit(pos); err != nil {
				return err
			}
		}
	}
	return nil
}
