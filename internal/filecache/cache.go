// Package filecache is the position→RegionFile cache of spec.md §3.3/
// §4.4: a linear-scan, append-only array of entries sized around CPU
// count rather than an unbounded map, with eager time-based eviction.
// Grounded on the teacher's world.RegionManager.GetRegion (double-
// checked-locking get-or-open pattern keyed by region coordinate),
// generalized from a map[string]*Region to this bounded, evictable array
// since spec.md explicitly forbids an unbounded map and mandates linear
// scan (cache size tracks CPU count, so the scan stays cheap).
package filecache

import (
	"sync"

	"github.com/clodstore/clod/internal/logging"
	"github.com/clodstore/clod/internal/platform"
	"github.com/clodstore/clod/internal/region"
)

// maxEvictableNS is the longest an idle entry is allowed to live before
// the next lookup closes it eagerly (spec.md §9 "file cache linear scan
// with time-based eviction").
const maxEvictableNS int64 = 10_000_000_000

// OpenFunc opens (or creates) the region file for key, invoked on a cache
// miss. Returning region's own ErrNotFound (via the errs package) signals
// a create=false miss the caller should treat as NOT_FOUND rather than an
// I/O failure.
type OpenFunc func(key string) (*region.RegionFile, error)

type entry struct {
	key        string
	rf         *region.RegionFile
	lastAccess int64
}

// Cache is the file cache described above. The zero value is not usable;
// construct one with New.
type Cache struct {
	mu       sync.Mutex
	clock    platform.Clock
	log      *logging.Logger
	cpuCount int
	entries  []entry
}

// New creates a Cache. A nil clock defaults to platform.SystemClock; a
// nil log silently drops diagnostics.
func New(clock platform.Clock, log *logging.Logger) *Cache {
	if clock == nil {
		clock = platform.SystemClock{}
	}
	cpuCount := platform.NumCPU()
	if cpuCount < 1 {
		cpuCount = 1
	}
	return &Cache{clock: clock, log: log, cpuCount: cpuCount}
}

// evictableDuration shrinks linearly as the cache fills, so a cache that
// has grown to hold many regions evicts idle ones sooner than a mostly-
// empty one (spec.md §4.4, §9).
func (c *Cache) evictableDuration(cacheLen int) int64 {
	step := maxEvictableNS / int64(c.cpuCount)
	d := maxEvictableNS - step*int64(cacheLen)
	if d < 0 {
		d = 0
	}
	return d
}

// Get returns the open RegionFile for key, calling open on a miss. At
// most one entry exists per key at any time (spec.md §4.4 invariant).
func (c *Cache) Get(key string, open OpenFunc) (*region.RegionFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evictAfter := c.evictableDuration(len(c.entries))
	emptyIndex := -1

	for i := range c.entries {
		e := &c.entries[i]
		if e.rf == nil {
			if emptyIndex == -1 {
				emptyIndex = i
			}
			continue
		}
		if e.key == key {
			e.lastAccess = now
			return e.rf, nil
		}
		if now-e.lastAccess > evictAfter {
			c.closeEntry(e)
			if emptyIndex == -1 {
				emptyIndex = i
			}
		}
	}

	rf, err := open(key)
	if err != nil {
		return nil, err
	}
	if emptyIndex == -1 {
		c.entries = append(c.entries, entry{key: key, rf: rf, lastAccess: now})
	} else {
		c.entries[emptyIndex] = entry{key: key, rf: rf, lastAccess: now}
	}
	return rf, nil
}

func (c *Cache) closeEntry(e *entry) {
	if e.rf == nil {
		return
	}
	if err := e.rf.Close(); err != nil {
		if c.log != nil {
			c.log.Warn("filecache: evicting %s: %v", e.key, err)
		}
		return
	}
	e.rf = nil
	e.key = ""
}

// CloseAll closes every currently open entry, for the façade's own Close.
func (c *Cache) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for i := range c.entries {
		e := &c.entries[i]
		if e.rf == nil {
			continue
		}
		if err := e.rf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.rf = nil
	}
	return firstErr
}

// Len reports the number of tracked entries, including empty slots held
// open for reuse; exported for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
