package nbt

// Buffer is a fixed-capacity arena holding one NBT compound plus
// whatever structure has been edited into it (spec §4.2 Design Notes:
// "Buffer{bytes, used, capacity} with explicit grow/shrink methods").
//
// Bytes is nil in "dry-run" mode: operations only adjust End/Free to plan a
// sequence of edits without touching any storage, mirroring the original
// C API's "compound == null" idiom (spec §4.2 "Compound add").
type Buffer struct {
	Bytes []byte // backing array; nil in dry-run mode
	End   int    // length currently in use
	Free  int    // caller-tracked remaining budget
}

// DryRun returns a planning-only Buffer with no backing storage.
func DryRun(free int) *Buffer {
	return &Buffer{Free: free}
}

// Live wraps an existing byte slice as an editable buffer. end is the
// current amount of valid data in bytes (<= len(bytes)); free is the
// remaining edit budget, typically len(bytes)-end but may be smaller if
// the caller reserves headroom for other purposes.
func Live(bytes []byte, end, free int) *Buffer {
	return &Buffer{Bytes: bytes, End: end, Free: free}
}

// planGrow reports whether growing by delta fits the budget, without
// mutating anything.
func (b *Buffer) planGrow(delta int) bool {
	return delta <= b.Free
}

// grow commits a delta-byte growth to the accounting only; callers that
// are not in dry-run mode must separately perform the byte-level shift
// before calling this.
func (b *Buffer) grow(delta int) {
	b.End += delta
	b.Free -= delta
}

func (b *Buffer) shrink(delta int) {
	b.End -= delta
	b.Free += delta
}

// dryRun reports whether this buffer has no backing storage.
func (b *Buffer) dryRun() bool {
	return b.Bytes == nil
}

// shiftRight moves buf[from:oldEnd) to buf[from+delta:oldEnd+delta),
// growing the logical buffer by delta. Caller must have verified
// oldEnd+delta <= len(b.Bytes).
func (b *Buffer) shiftRight(from, oldEnd, delta int) {
	copy(b.Bytes[from+delta:oldEnd+delta], b.Bytes[from:oldEnd])
}

// shiftLeft moves buf[from:oldEnd) to buf[from-delta:oldEnd-delta),
// shrinking the logical buffer by delta.
func (b *Buffer) shiftLeft(from, oldEnd, delta int) {
	copy(b.Bytes[from-delta:oldEnd-delta], b.Bytes[from:oldEnd])
}
