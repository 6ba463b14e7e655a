// Package htable is an open-addressing hash table over byte-slice
// elements, where the key is the first keySize bytes of each element
// (spec.md §3.7/§4.6: "it's a pure set at heart... the difference
// between 'element' and 'key' reflects this"). It backs the directory
// walk in internal/region, where an element is an encoded coordinate
// tuple and the key is that same tuple — used purely as a dedup set
// rather than a map.
package htable

import (
	"bytes"
	"hash/maphash"
	"unsafe"
)

const (
	lfMax        = 85
	lfMin        = 50
	lfDenominator = 100

	ctlHashBits = 7
	ctlEmpty    = 0b00000000
	ctlRemoved  = 0b00000001
)

func ctlOccupied(hash uint64) byte {
	return 0b10000000 | byte(hash)
}

func ctlIsOccupied(ctl byte) bool {
	return ctl&0b10000000 != 0
}

// HashFunc computes a 64-bit hash of key, salted by seed. The table
// demands a uniform spread across all 64 bits, and requires that two
// keys CmpFunc treats as equal also hash equal.
type HashFunc func(seed uint64, key []byte) uint64

// CmpFunc reports whether two keys are equal.
type CmpFunc func(a, b []byte) bool

// Options configures a Table. A zero Options uses the table's default
// seeded hash (hash/maphash, the only pack-available seeded
// general-purpose byte hash) and bytes.Equal.
type Options struct {
	MinCapacity int
	Hash        HashFunc
	Cmp         CmpFunc
}

type slot struct {
	element []byte
	keySize int
}

// Table is an open-addressing set of byte-slice elements.
type Table struct {
	opts Options
	seed uint64

	elemCount    int
	deletedCount int
	tableSize    int
	cursor       int

	control  []byte
	elements []slot
}

// processSeed is fixed once per process so that defaultHash is
// deterministic across repeated calls against the same table (the seed
// passed into defaultHash only needs to vary the result *between*
// tables, not between calls).
var processSeed = maphash.MakeSeed()

func defaultHash(seed uint64, key []byte) uint64 {
	var h maphash.Hash
	h.SetSeed(processSeed)
	// mix the table's instance seed in so that two tables never
	// collide identically (mirrors the C implementation seeding the
	// hash with the address of its own control array).
	var seedBytes [8]byte
	for i := 0; i < 8; i++ {
		seedBytes[i] = byte(seed >> (8 * i))
	}
	h.Write(seedBytes[:])
	h.Write(key)
	return h.Sum64()
}

func defaultCmp(a, b []byte) bool {
	return bytes.Equal(a, b)
}

func lfCapacityToSize(lf, capacity int) int {
	return (capacity*lfDenominator + lf - 1) / lf
}

func loadFactor(t *Table) int {
	if t.tableSize == 0 {
		return lfMax // force an immediate build on first insert
	}
	return (t.elemCount + t.deletedCount) * lfDenominator / t.tableSize
}

// New creates an empty Table.
func New(opts Options) *Table {
	if opts.Hash == nil {
		opts.Hash = defaultHash
	}
	if opts.Cmp == nil {
		opts.Cmp = defaultCmp
	}
	t := &Table{opts: opts}
	t.seed = uint64(uintptr(unsafe.Pointer(t)))
	return t
}

func (t *Table) create(size int) {
	minSize := lfCapacityToSize(lfMax, t.opts.MinCapacity)
	if size < minSize {
		size = minSize
	}
	t.tableSize = size
	t.elemCount = 0
	t.deletedCount = 0
	t.cursor = 0
	if size > 0 {
		t.control = make([]byte, size)
		t.elements = make([]slot, size)
	} else {
		t.control = nil
		t.elements = nil
	}
}

type position struct {
	index int
	ctl   byte
}

func (t *Table) position(key []byte) position {
	hash := t.opts.Hash(t.seed, key)
	return position{
		ctl:   ctlOccupied(hash),
		index: int((hash >> ctlHashBits) % uint64(t.tableSize)),
	}
}

type probeResult struct {
	existing  int // -1 if none
	available int // -1 if none
}

func (t *Table) keyEqual(index int, key []byte) bool {
	s := t.elements[index]
	if s.keySize != len(key) {
		return false
	}
	return t.opts.Cmp(s.element[:s.keySize], key)
}

func (t *Table) probe(pos position, key []byte) probeResult {
	available := -1
	for i := 0; i < t.tableSize; i++ {
		index := (pos.index + i) % t.tableSize
		ctl := t.control[index]
		if ctl == ctlEmpty {
			if available != -1 {
				return probeResult{existing: -1, available: available}
			}
			return probeResult{existing: -1, available: index}
		}
		if ctl == pos.ctl && t.keyEqual(index, key) {
			return probeResult{existing: index, available: -1}
		}
		if ctl == ctlRemoved && available == -1 {
			available = index
		}
	}
	return probeResult{existing: -1, available: available}
}

// insert places element (whose first keySize bytes are its key). If
// replace is false and the key exists, the existing element is
// returned unchanged; if replace is true, the previous element is
// returned and replaced.
func (t *Table) insert(replace bool, element []byte, keySize int) []byte {
	key := element[:keySize]
	pos := t.position(key)
	res := t.probe(pos, key)

	if res.existing != -1 {
		if replace {
			prev := t.elements[res.existing].element
			t.elements[res.existing] = slot{element: element, keySize: keySize}
			return prev
		}
		return t.elements[res.existing].element
	}

	if t.control[res.available] == ctlRemoved {
		t.deletedCount--
	}
	t.elemCount++
	t.control[res.available] = pos.ctl
	t.elements[res.available] = slot{element: element, keySize: keySize}
	return nil
}

func (t *Table) rebuild(newSize int) {
	old := *t
	t.create(newSize)

	var it Iterator
	for old.Next(&it) {
		t.insert(false, it.Element, it.KeySize)
	}
}

func (t *Table) maybeGrow() {
	if t.tableSize == 0 || loadFactor(t) >= lfMax {
		t.rebuild(lfCapacityToSize(lfMin, t.elemCount+1))
	}
}

// Len returns the number of elements currently in the table.
func (t *Table) Len() int {
	return t.elemCount
}

// Add inserts element if its key (the first keySize bytes) is not
// already present. Returns the existing element on a duplicate key, or
// nil on success.
func (t *Table) Add(element []byte, keySize int) []byte {
	t.maybeGrow()
	return t.insert(false, element, keySize)
}

// Set inserts or replaces element. Returns the previous element if the
// key existed, or nil.
func (t *Table) Set(element []byte, keySize int) []byte {
	t.maybeGrow()
	return t.insert(true, element, keySize)
}

// Get looks up key, returning the stored element or nil.
func (t *Table) Get(key []byte) []byte {
	if t.tableSize == 0 {
		return nil
	}
	res := t.probe(t.position(key), key)
	if res.existing == -1 {
		return nil
	}
	return t.elements[res.existing].element
}

// Del removes key, returning the removed element or nil.
func (t *Table) Del(key []byte) []byte {
	if t.tableSize == 0 {
		return nil
	}
	res := t.probe(t.position(key), key)
	if res.existing == -1 {
		return nil
	}
	removed := t.elements[res.existing].element
	t.control[res.existing] = ctlRemoved
	t.elemCount--
	t.deletedCount++
	t.cursor++
	t.elements[res.existing] = slot{}
	return removed
}

// Iterator walks a Table's live elements. The zero value starts a fresh
// iteration. Mutating the table during iteration can cause elements to
// be visited more than once or not at all, matching the underlying
// open-addressing layout.
type Iterator struct {
	Element []byte
	KeySize int
	pos     int
}

// Next advances iter and reports whether another element was found.
func (t *Table) Next(iter *Iterator) bool {
	for iter.pos < t.tableSize {
		index := (iter.pos + t.cursor) % t.tableSize
		if ctlIsOccupied(t.control[index]) {
			s := t.elements[index]
			iter.Element = s.element
			iter.KeySize = s.keySize
			iter.pos++
			return true
		}
		iter.pos++
	}
	iter.pos = 0
	iter.Element = nil
	iter.KeySize = 0
	return false
}
