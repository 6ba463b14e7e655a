package nbt

import "testing"

// emptyCompound returns a 64-byte arena holding a single empty compound
// (just the ZERO terminator) at offset 0, with the remaining 63 bytes
// counted as free (spec §8 Scenario 4: insert/delete "x" INT32 into an
// empty compound with free=64).
func emptyCompound(capacity int) (*Buffer, int) {
	buf := make([]byte, capacity)
	buf[0] = End
	return Live(buf, 1, capacity-1), 1
}

func TestPayloadSizeNeverExceedsRemaining(t *testing.T) {
	buf := []byte{Int32, 0, 0, 0x01, 0x02, 0x03, 0x04}
	size, ok := TagSize(buf, 0, len(buf))
	if !ok {
		t.Fatal("expected TagSize to succeed")
	}
	if size > len(buf) {
		t.Errorf("TagSize %d exceeds buffer %d", size, len(buf))
	}
	if size != len(buf) {
		t.Errorf("TagSize = %d, want %d (payload fills remaining buffer)", size, len(buf))
	}
}

func TestEmptyCompoundIsOneByte(t *testing.T) {
	buf := []byte{End}
	size, ok := PayloadSize(buf, 0, 1, Compound)
	if !ok || size != 1 {
		t.Errorf("PayloadSize(empty compound) = (%d, %v), want (1, true)", size, ok)
	}
}

func TestZeroLengthListValid(t *testing.T) {
	buf := []byte{Int32, 0, 0, 0, 0}
	size, ok := PayloadSize(buf, 0, len(buf), List)
	if !ok || size != 5 {
		t.Errorf("PayloadSize(empty list) = (%d, %v), want (5, true)", size, ok)
	}
}

func TestCompoundAddThenGet(t *testing.T) {
	b, oldSize := emptyCompound(64)
	payloadPos, size, newSize, insertedAt, ok := CompoundAdd(b, 0, oldSize, "x", Int32)
	if !ok {
		t.Fatal("CompoundAdd failed")
	}
	if insertedAt < 0 {
		t.Fatal("expected a real insertion offset")
	}
	if size != 4 {
		t.Errorf("zero-value INT32 size = %d, want 4", size)
	}
	if got := DecodeInt32(b.Bytes, payloadPos); got != 0 {
		t.Errorf("fresh INT32 payload = %d, want 0", got)
	}

	p, s, typ, found := CompoundGet(b.Bytes, 0, newSize, "x")
	if !found {
		t.Fatal("CompoundGet did not find added tag")
	}
	if p != payloadPos || s != size || typ != Int32 {
		t.Errorf("CompoundGet = (%d,%d,%d), want (%d,%d,%d)", p, s, typ, payloadPos, size, Int32)
	}
}

func TestCompoundDelThenNotFound(t *testing.T) {
	b, oldSize := emptyCompound(64)
	_, _, afterAdd, _, ok := CompoundAdd(b, 0, oldSize, "x", Int32)
	if !ok {
		t.Fatal("CompoundAdd failed")
	}
	afterDel, ok := CompoundDel(b, 0, afterAdd, "x")
	if !ok {
		t.Fatal("CompoundDel failed")
	}
	if afterDel != oldSize {
		t.Errorf("afterDel = %d, want %d (back to empty compound)", afterDel, oldSize)
	}
	if _, _, _, found := CompoundGet(b.Bytes, 0, afterDel, "x"); found {
		t.Error("tag still found after delete")
	}
}

func TestCompoundAddConservesFree(t *testing.T) {
	b, oldSize := emptyCompound(64)
	freeBefore := b.Free
	_, _, newSize, _, ok := CompoundAdd(b, 0, oldSize, "x", Int32)
	if !ok {
		t.Fatal("CompoundAdd failed")
	}
	grown := newSize - oldSize
	if b.Free != freeBefore-grown {
		t.Errorf("Free = %d, want %d", b.Free, freeBefore-grown)
	}
	if b.End != oldSize+grown {
		t.Errorf("End = %d, want %d", b.End, oldSize+grown)
	}
}

func TestCompoundAddDryRunMatchesLiveGrowth(t *testing.T) {
	liveBuf, oldSize := emptyCompound(64)
	_, _, liveNewSize, _, ok := CompoundAdd(liveBuf, 0, oldSize, "x", Int32)
	if !ok {
		t.Fatal("live CompoundAdd failed")
	}

	dry := DryRun(63)
	_, _, dryNewSize, insertedAt, ok := CompoundAdd(dry, 0, oldSize, "x", Int32)
	if !ok {
		t.Fatal("dry-run CompoundAdd failed")
	}
	if insertedAt != -1 {
		t.Errorf("dry-run insertedAt = %d, want -1", insertedAt)
	}
	if dryNewSize != liveNewSize {
		t.Errorf("dry-run newSize = %d, want %d to match live", dryNewSize, liveNewSize)
	}
}

func TestCompoundAddRejectsWhenOverBudget(t *testing.T) {
	b, oldSize := emptyCompound(3) // only the terminator fits; no room to grow
	_, _, newSize, _, ok := CompoundAdd(b, 0, oldSize, "longname", Compound)
	if ok {
		t.Error("expected CompoundAdd to fail when growth exceeds free budget")
	}
	if newSize != oldSize {
		t.Errorf("newSize changed on failed add: %d != %d", newSize, oldSize)
	}
}

func TestListResizeGrowSameType(t *testing.T) {
	buf := make([]byte, 64)
	buf[0] = Int32
	EncodeInt32(buf, 1, 2)
	EncodeInt32(buf, 5, 11)
	EncodeInt32(buf, 9, 22)
	b := Live(buf, 13, 64-13)

	newSize, ok := ListResize(b, 0, 13, Int32, 4)
	if !ok {
		t.Fatal("ListResize grow failed")
	}
	if newSize != 5+4*4 {
		t.Errorf("newSize = %d, want %d", newSize, 5+4*4)
	}
	if DecodeInt32(buf, 5) != 11 || DecodeInt32(buf, 9) != 22 {
		t.Error("existing elements were disturbed by grow")
	}
	if DecodeInt32(buf, 13) != 0 || DecodeInt32(buf, 17) != 0 {
		t.Error("appended elements are not zero-valued")
	}
}

func TestListResizeShrinkSameType(t *testing.T) {
	buf := make([]byte, 32)
	buf[0] = Int32
	EncodeInt32(buf, 1, 3)
	EncodeInt32(buf, 5, 1)
	EncodeInt32(buf, 9, 2)
	EncodeInt32(buf, 13, 3)
	b := Live(buf, 17, 32-17)

	newSize, ok := ListResize(b, 0, 17, Int32, 1)
	if !ok {
		t.Fatal("ListResize shrink failed")
	}
	if newSize != 5+4 {
		t.Errorf("newSize = %d, want %d", newSize, 5+4)
	}
	if DecodeInt32(buf, 5) != 1 {
		t.Error("surviving element corrupted by shrink")
	}
}

func TestListResizeTypeChangeWipes(t *testing.T) {
	buf := make([]byte, 32)
	buf[0] = Int32
	EncodeInt32(buf, 1, 2)
	EncodeInt32(buf, 5, 99)
	EncodeInt32(buf, 9, 99)
	b := Live(buf, 13, 32-13)

	newSize, ok := ListResize(b, 0, 13, Int8, 3)
	if !ok {
		t.Fatal("ListResize type change failed")
	}
	if newSize != 5+3 {
		t.Errorf("newSize = %d, want %d", newSize, 5+3)
	}
	if buf[0] != Int8 {
		t.Errorf("element type = %d, want %d", buf[0], Int8)
	}
	for i := 0; i < 3; i++ {
		if buf[5+i] != 0 {
			t.Errorf("element %d not wiped to zero", i)
		}
	}
}

func TestIteratorWalksCompoundInOrder(t *testing.T) {
	b, oldSize := emptyCompound(128)
	size := oldSize
	var ok bool
	_, _, size, _, ok = CompoundAdd(b, 0, size, "a", Int8)
	if !ok {
		t.Fatal("add a failed")
	}
	_, _, size, _, ok = CompoundAdd(b, 0, size, "b", Int16)
	if !ok {
		t.Fatal("add b failed")
	}
	_, _, size, _, ok = CompoundAdd(b, 0, size, "c", Int32)
	if !ok {
		t.Fatal("add c failed")
	}

	it := Iterator{Buf: b.Bytes, Kind: Compound, Pos: 0, End: size}
	var names []string
	for it.Next() {
		n, _ := TagName(b.Bytes, it.Tag, size)
		names = append(names, n)
		if it.Index != len(names)-1 {
			t.Errorf("Index = %d at element %d", it.Index, len(names)-1)
		}
	}
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("iteration order = %v, want [a b c]", names)
	}
}

func TestIteratorMalformedOnTruncatedBuffer(t *testing.T) {
	buf := []byte{Int32, 0, 1, 'x'} // name length 1 but only 1 byte follows, no payload
	it := Iterator{Buf: buf, Kind: Compound, Pos: 0, End: len(buf)}
	if it.Next() {
		t.Fatal("expected Next to report failure on truncated tag")
	}
	if it.Tag != -1 || it.Payload != -1 {
		t.Errorf("malformed iterator state = (%d,%d), want (-1,-1)", it.Tag, it.Payload)
	}
}
