package nbt

// CompoundGet searches the compound payload at buf[pos:end) for a child
// tag named name, returning its payload offset, size and type. Walks via
// Iterator rather than decoding a tree (spec §4.2 "Compound get").
func CompoundGet(buf []byte, pos, end int, name string) (payloadPos, size int, typ byte, ok bool) {
	it := Iterator{Buf: buf, Kind: Compound, Pos: pos, End: end}
	for it.Next() {
		n, ok2 := TagName(buf, it.Tag, end)
		if !ok2 {
			return 0, 0, 0, false
		}
		if n == name {
			return TagPayload(buf, it.Tag, end)
		}
	}
	return 0, 0, 0, false
}

// tagEncodedSize returns the byte length a fresh named tag of typ with
// name would occupy: 1 type byte + 2 name-length bytes + name + the
// type's zero-value payload.
func tagEncodedSize(name string, typ byte) (int, bool) {
	zero, ok := ZeroSize(typ)
	if !ok {
		return 0, false
	}
	return 3 + len(name) + zero, true
}

// CompoundAdd inserts a new, zero-valued child tag named name of type
// typ into the compound occupying b.Bytes[pos:pos+oldSize) (oldSize
// includes the terminating ZERO byte), or reports the growth that would
// be required without touching storage when b is a dry-run buffer
// (spec §4.2 "Compound add": "With compound = null, merely subtracts the
// would-be growth ... from free and returns null").
//
// If name already names a child, CompoundAdd returns its existing
// payload offset and size unchanged — adding never replaces.
//
// oldSize is the current encoded length of the compound payload
// (including its terminator); CompoundAdd returns the new length via
// newSize. insertedAt is the absolute offset of the new tag's header
// (useful for tests); it is -1 when the tag already existed.
func CompoundAdd(b *Buffer, pos, oldSize int, name string, typ byte) (payloadPos, size, newSize, insertedAt int, ok bool) {
	end := pos + oldSize

	grown, ok := tagEncodedSize(name, typ)
	if !ok {
		return 0, 0, oldSize, -1, false
	}

	// In dry-run mode there is no buffer to search, so a plan assumes
	// the tag is new: it only needs to know whether the growth fits
	// (spec §4.2 "Compound add", compound == null case).
	if b.dryRun() {
		if !b.planGrow(grown) {
			return 0, 0, oldSize, -1, false
		}
		b.grow(grown)
		return -1, 0, oldSize + grown, -1, true
	}

	if p, s, t, found := CompoundGet(b.Bytes, pos, end, name); found {
		return p, s, oldSize, -1, t == typ
	}
	if !b.planGrow(grown) {
		return 0, 0, oldSize, -1, false
	}

	terminator := end - 1 // offset of the compound's ZERO sentinel
	insertAt := terminator
	if b.End+grown > len(b.Bytes) {
		return 0, 0, oldSize, -1, false
	}
	b.shiftRight(terminator, b.End, grown)
	writeTagHeader(b.Bytes, insertAt, name, typ)
	zeroPayload(b.Bytes, insertAt+3+len(name), typ)
	b.grow(grown)

	payloadPos = insertAt + 3 + len(name)
	zsize, _ := ZeroSize(typ)
	return payloadPos, zsize, oldSize + grown, insertAt, true
}

// CompoundDel removes the child tag named name from the compound
// occupying b.Bytes[pos:pos+oldSize). Returns the compound's new
// encoded length. If name is absent, CompoundDel is a no-op and
// returns ok=false.
func CompoundDel(b *Buffer, pos, oldSize int, name string) (newSize int, ok bool) {
	if b.dryRun() {
		// Nothing to search without a backing buffer; callers only use
		// dry-run deletes to account for a known tag size up front.
		return oldSize, false
	}
	end := pos + oldSize
	it := Iterator{Buf: b.Bytes, Kind: Compound, Pos: pos, End: end}
	for it.Next() {
		n, ok2 := TagName(b.Bytes, it.Tag, end)
		if !ok2 {
			return oldSize, false
		}
		if n != name {
			continue
		}
		tagEnd := it.Tag + it.Size
		shrink := it.Size
		b.shiftLeft(tagEnd, b.End, shrink)
		b.shrink(shrink)
		return oldSize - shrink, true
	}
	return oldSize, false
}

func writeTagHeader(buf []byte, pos int, name string, typ byte) {
	buf[pos] = typ
	EncodeInt16(buf, pos+1, int16(len(name)))
	copy(buf[pos+3:pos+3+len(name)], name)
}

// zeroPayload writes the neutral encoded form of typ at buf[pos:].
func zeroPayload(buf []byte, pos int, typ byte) {
	switch typ {
	case List:
		buf[pos] = End
		EncodeInt32(buf, pos+1, 0)
	case Compound:
		buf[pos] = End
	case String, Int8Array, Int32Array, Int64Array:
		if typ == String {
			EncodeInt16(buf, pos, 0)
		} else {
			EncodeInt32(buf, pos, 0)
		}
	default:
		size, _ := ZeroSize(typ)
		for i := 0; i < size; i++ {
			buf[pos+i] = 0
		}
	}
}
