package nbt

import "encoding/binary"

// ListResize changes the length and/or element type of the LIST payload
// at b.Bytes[pos:pos+oldSize). Four cases (spec §4.2 "List resize"):
//
//   - the list is currently empty (curCount == 0, including a freshly
//     created zero-value list whose element type is still END): it
//     simply adopts elemType and grows to newCount zero-valued elements,
//     no wipe needed since there's nothing live to invalidate.
//   - elemType differs from a non-empty list's current element type: the
//     whole element run is wiped and replaced by newCount zero-valued
//     elements of elemType (a type change invalidates any existing payloads).
//   - elemType matches and newCount is larger: the existing elements are
//     kept and newCount-oldCount zero-valued elements are appended.
//   - elemType matches and newCount is smaller: elements
//     [newCount:oldCount) are dropped by shifting the tail left to the
//     truncation boundary located via Iterator.
//
// In dry-run mode (b.Bytes == nil) only the Free/End accounting is
// updated; no element data is read or written.
func ListResize(b *Buffer, pos, oldSize int, elemType byte, newCount int) (newSize int, ok bool) {
	if newCount < 0 {
		return oldSize, false
	}
	zero, okz := ZeroSize(elemType)
	if !okz {
		return oldSize, false
	}

	if b.dryRun() {
		planned := 5 + newCount*zero
		delta := planned - oldSize
		if delta > 0 {
			if !b.planGrow(delta) {
				return oldSize, false
			}
			b.grow(delta)
		} else if delta < 0 {
			b.shrink(-delta)
		}
		return planned, true
	}

	end := pos + oldSize
	if pos+5 > end {
		return oldSize, false
	}
	curType := b.Bytes[pos]
	curCount := int(int32(binary.BigEndian.Uint32(b.Bytes[pos+1 : pos+5])))
	if curCount < 0 {
		return oldSize, false
	}

	if curCount == 0 {
		// An empty list carries no live elements, so it can freely adopt
		// elemType as part of growing away from zero; only the stored
		// element-type byte needs correcting, not a wipe-and-replace.
		if newCount == 0 {
			b.Bytes[pos] = elemType
			return oldSize, true
		}
		b.Bytes[pos] = elemType
		return growSameType(b, pos, end, elemType, 0, newCount, zero)
	}
	if curType != elemType {
		return resizeWithTypeChange(b, pos, end, elemType, newCount, zero)
	}
	if curCount == newCount {
		return oldSize, true
	}
	if newCount > curCount {
		return growSameType(b, pos, end, elemType, curCount, newCount, zero)
	}
	return shrinkSameType(b, pos, end, elemType, curCount, newCount)
}

func resizeWithTypeChange(b *Buffer, pos, end int, elemType byte, newCount, zero int) (int, bool) {
	planned := 5 + newCount*zero
	delta := planned - (end - pos)
	if delta > 0 {
		if !b.planGrow(delta) {
			return end - pos, false
		}
		if b.End+delta > len(b.Bytes) {
			return end - pos, false
		}
		b.shiftRight(end, b.End, delta)
	} else if delta < 0 {
		b.shiftLeft(end, b.End, -delta)
	}
	b.Bytes[pos] = elemType
	binary.BigEndian.PutUint32(b.Bytes[pos+1:pos+5], uint32(newCount))
	base := pos + 5
	for i := 0; i < newCount; i++ {
		zeroPayload(b.Bytes, base+i*zero, elemType)
	}
	if delta > 0 {
		b.grow(delta)
	} else if delta < 0 {
		b.shrink(-delta)
	}
	return planned, true
}

func growSameType(b *Buffer, pos, end int, elemType byte, curCount, newCount, zero int) (int, bool) {
	added := newCount - curCount
	delta := added * zero
	if !b.planGrow(delta) {
		return end - pos, false
	}
	if b.End+delta > len(b.Bytes) {
		return end - pos, false
	}
	b.shiftRight(end, b.End, delta)
	binary.BigEndian.PutUint32(b.Bytes[pos+1:pos+5], uint32(newCount))
	tailStart := end
	for i := 0; i < added; i++ {
		zeroPayload(b.Bytes, tailStart+i*zero, elemType)
	}
	b.grow(delta)
	return end - pos + delta, true
}

func shrinkSameType(b *Buffer, pos, end int, elemType byte, curCount, newCount int) (int, bool) {
	boundary := pos + 5
	if newCount > 0 {
		it := Iterator{Buf: b.Bytes, Kind: List, Pos: pos, End: end}
		found := false
		for it.Next() {
			if it.Index == newCount {
				boundary = it.Tag
				found = true
				break
			}
		}
		if !found {
			return end - pos, false
		}
	}
	shrink := end - boundary
	binary.BigEndian.PutUint32(b.Bytes[pos+1:pos+5], uint32(newCount))
	if shrink > 0 {
		b.shiftLeft(end, b.End, shrink)
	}
	b.shrink(shrink)
	return boundary - pos, true
}
