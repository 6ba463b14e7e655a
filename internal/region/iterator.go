package region

import (
	"encoding/binary"

	"github.com/clodstore/clod/internal/htable"
	"github.com/clodstore/clod/internal/platform"
)

// ListRegions enumerates dir's entries matching prefix/ext/dims, returning
// each matching region's coordinate tuple exactly once (spec.md §4.3
// "Iteration"). A directory mixing vanilla, extended, and compound region
// files for the same logical coordinate still yields that coordinate only
// once, deduped through htable keyed on the encoded tuple (spec.md §8
// invariant 6), rather than relying on the filename grammar alone to rule
// out collisions.
func ListRegions(dir *platform.Dir, prefix, ext string, dims int) ([][]int64, error) {
	names, err := platform.ReadDirNames(dir)
	if err != nil {
		return nil, err
	}

	seen := htable.New(htable.Options{MinCapacity: len(names)})
	var out [][]int64
	for _, name := range names {
		coords, ok := ParseFilename(name, prefix, ext, dims)
		if !ok {
			continue
		}
		key := encodeCoordKey(coords)
		if seen.Add(key, len(key)) != nil {
			continue
		}
		out = append(out, coords)
	}
	return out, nil
}

func encodeCoordKey(coords []int64) []byte {
	key := make([]byte, len(coords)*8)
	for i, c := range coords {
		binary.BigEndian.PutUint64(key[i*8:i*8+8], uint64(c))
	}
	return key
}

// OccupiedSlots returns the slot indices currently holding a chunk,
// walked in ascending order (spec.md §8 invariant 6: "iter_next... never
// returns an empty slot").
func (r *RegionFile) OccupiedSlots() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int
	for slot := 0; slot < SlotCount; slot++ {
		_, count := decodeLocation(r.getLocation(slot))
		if count > 0 {
			out = append(out, slot)
		}
	}
	return out
}
