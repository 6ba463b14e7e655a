package region

import "sort"

// allocator tracks which sectors of a region file are in use, rebuilt
// from the location table on every open rather than persisted (spec.md
// §4.3 "Open": "the free list is reconstructed by scanning occupied
// slots"). Sector 0 is never returned, matching the vanilla convention
// that a zero location means "absent" (spec.md §3.5).
type allocator struct {
	headerSectors uint32
	used          []span // sorted, non-overlapping, offset ascending
}

type span struct {
	offset uint32
	count  uint32
}

func newAllocator(headerSectors uint32) *allocator {
	return &allocator{headerSectors: headerSectors}
}

// reserve records an existing occupied run, used while rebuilding the
// allocator from a location table at open time.
func (a *allocator) reserve(offset, count uint32) {
	if count == 0 {
		return
	}
	a.used = append(a.used, span{offset, count})
	sort.Slice(a.used, func(i, j int) bool { return a.used[i].offset < a.used[j].offset })
}

// alloc finds the first gap (including the tail, past the last used
// sector) that fits count sectors, first-fit per spec.md §3.4 "Sector
// allocation: first-fit over the free list".
func (a *allocator) alloc(count uint32) uint32 {
	if count == 0 {
		return 0
	}
	cursor := a.headerSectors
	for _, s := range a.used {
		if s.offset > cursor && s.offset-cursor >= count {
			a.reserve(cursor, count)
			return cursor
		}
		if s.offset+s.count > cursor {
			cursor = s.offset + s.count
		}
	}
	a.reserve(cursor, count)
	return cursor
}

// free releases a previously allocated run.
func (a *allocator) free(offset, count uint32) {
	if count == 0 {
		return
	}
	for i, s := range a.used {
		if s.offset == offset && s.count == count {
			a.used = append(a.used[:i], a.used[i+1:]...)
			return
		}
	}
}

// extent returns the total sector count the allocator currently spans,
// header sectors included.
func (a *allocator) extent() uint32 {
	max := a.headerSectors
	for _, s := range a.used {
		if end := s.offset + s.count; end > max {
			max = end
		}
	}
	return max
}
