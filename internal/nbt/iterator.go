package nbt

import "encoding/binary"

// Iterator walks the children of a COMPOUND, LIST, STRING, or
// INT{8,32,64}_ARRAY payload (spec §4.2 "Iterator"). The zero value is a
// valid, not-yet-started iterator: set Buf, Kind, Pos and End, then call
// Next in a loop.
//
// After a call to Next that returns true, Tag/Payload/Size/Type/Index
// describe the current element. After Next returns false, two cases are
// distinguished (spec §4.2 step 4 vs step 3): normal end-of-container has
// Payload == -1 with Tag pointing one-past the last element (at the
// COMPOUND terminator, for compounds); malformed bounds has both Tag and
// Payload == -1.
type Iterator struct {
	Buf  []byte
	Kind byte // Compound, List, String, Int8Array, Int32Array, Int64Array
	Pos  int  // offset of the container's payload, before its own header
	End  int  // bound past which no read may occur

	Tag     int
	Payload int
	Size    int
	Type    byte
	Index   int

	started   bool
	malformed bool
	elemType  byte
	count     int // List/array element count
	headerEnd int // offset where the first element begins
}

// Next advances the iterator and reports whether a valid element was
// positioned.
func (it *Iterator) Next() bool {
	if it.malformed {
		return false
	}
	if !it.started {
		it.started = true
		return it.start()
	}
	return it.advance()
}

func (it *Iterator) fail() bool {
	it.malformed = true
	it.Tag, it.Payload = -1, -1
	it.Type = End
	return false
}

func (it *Iterator) endOfContainer(tagPos int) bool {
	it.Tag = tagPos
	it.Payload = -1
	it.Type = End
	return false
}

func (it *Iterator) start() bool {
	switch it.Kind {
	case Compound:
		return it.positionCompound(it.Pos, 0)
	case List:
		if it.Pos+5 > it.End {
			return it.fail()
		}
		it.elemType = it.Buf[it.Pos]
		n := int(int32(binary.BigEndian.Uint32(it.Buf[it.Pos+1 : it.Pos+5])))
		if n < 0 {
			return it.fail()
		}
		it.count = n
		it.headerEnd = it.Pos + 5
		return it.positionListLike(it.headerEnd, 0)
	case String, Int8Array, Int32Array, Int64Array:
		elemType, width, headerLen, ok := arrayElemInfo(it.Kind)
		if !ok {
			return it.fail()
		}
		if it.Pos+headerLen > it.End {
			return it.fail()
		}
		var n int
		if headerLen == 2 {
			n = int(binary.BigEndian.Uint16(it.Buf[it.Pos : it.Pos+2]))
		} else {
			n = int(int32(binary.BigEndian.Uint32(it.Buf[it.Pos : it.Pos+4])))
		}
		if n < 0 {
			return it.fail()
		}
		it.elemType = elemType
		_ = width
		it.count = n
		it.headerEnd = it.Pos + headerLen
		return it.positionListLike(it.headerEnd, 0)
	default:
		return it.fail()
	}
}

func (it *Iterator) advance() bool {
	switch it.Kind {
	case Compound:
		if it.Payload < 0 {
			return false // already at end; repeated Next() is a no-op false
		}
		next := it.Tag + it.Size
		return it.positionCompound(next, it.Index+1)
	case List, String, Int8Array, Int32Array, Int64Array:
		if it.Payload < 0 {
			return false
		}
		return it.positionListLike(it.Payload+it.Size, it.Index+1)
	default:
		return it.fail()
	}
}

func (it *Iterator) positionCompound(tagPos, index int) bool {
	if tagPos < it.Pos || tagPos >= it.End {
		return it.fail()
	}
	t := it.Buf[tagPos]
	if t == End {
		return it.endOfContainer(tagPos)
	}
	size, ok := TagSize(it.Buf, tagPos, it.End)
	if !ok {
		return it.fail()
	}
	_, payloadPos, typ, ok2 := tagPayloadOffsetOnly(it.Buf, tagPos, it.End)
	if !ok2 || typ != t {
		return it.fail()
	}
	it.Tag = tagPos
	it.Payload = payloadPos
	it.Size = size
	it.Type = t
	it.Index = index
	return true
}

func tagPayloadOffsetOnly(buf []byte, pos, end int) (nameLen, payloadPos int, typ byte, ok bool) {
	typ = buf[pos]
	if pos+3 > end {
		return 0, 0, 0, false
	}
	nameLen = int(binary.BigEndian.Uint16(buf[pos+1 : pos+3]))
	payloadPos = pos + 3 + nameLen
	if payloadPos > end {
		return 0, 0, 0, false
	}
	return nameLen, payloadPos, typ, true
}

func (it *Iterator) positionListLike(elemPos, index int) bool {
	if index >= it.count {
		it.Tag = elemPos
		it.Payload = -1
		it.Type = End
		return false
	}
	size, ok := PayloadSize(it.Buf, elemPos, it.End, it.elemType)
	if !ok {
		return it.fail()
	}
	it.Tag = elemPos
	it.Payload = elemPos
	it.Size = size
	it.Type = it.elemType
	it.Index = index
	return true
}

func arrayElemInfo(kind byte) (elemType byte, width, headerLen int, ok bool) {
	switch kind {
	case String:
		return Int8, 1, 2, true
	case Int8Array:
		return Int8, 1, 4, true
	case Int32Array:
		return Int32, 4, 4, true
	case Int64Array:
		return Int64, 8, 4, true
	default:
		return 0, 0, 0, false
	}
}
