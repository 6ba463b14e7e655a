// Package nbt is a zero-copy, bounds-safe Named Binary Tag reader and
// in-place editor (spec §3.6, §4.2). Unlike a conventional NBT codec —
// including the teacher's own internal/minecraft/nbt, which decodes
// eagerly into a map[string]*Tag tree over an io.Reader — every
// operation here walks a caller-owned, fixed-capacity []byte in place:
// no allocation on the read path, and edits shift bytes within the same
// backing array rather than building a new tree.
//
// Every function takes a byte slice and an explicit bound (end); no read
// is ever allowed to cross that bound, and functions report failure
// rather than panicking on malformed or truncated input.
package nbt

import (
	"encoding/binary"
	"math"
)

// Tag type IDs (spec §3.6).
const (
	End       byte = 0
	Int8      byte = 1
	Int16     byte = 2
	Int32     byte = 3
	Int64     byte = 4
	Float32   byte = 5
	Float64   byte = 6
	Int8Array byte = 7
	String    byte = 8
	List      byte = 9
	Compound  byte = 10
	Int32Array byte = 11
	Int64Array byte = 12
)

// ValidType reports whether typ is a known tag type.
func ValidType(typ byte) bool {
	switch typ {
	case End, Int8, Int16, Int32, Int64, Float32, Float64, Int8Array, String, List, Compound, Int32Array, Int64Array:
		return true
	default:
		return false
	}
}

// ZeroSize returns the byte length of the neutral ("zero value") encoded
// form of typ — what CompoundAdd/ListResize write for a freshly created
// element (spec §4.2 Invariants).
func ZeroSize(typ byte) (int, bool) {
	switch typ {
	case End:
		return 0, true
	case Int8:
		return 1, true
	case Int16:
		return 2, true
	case Int32, Float32:
		return 4, true
	case Int64, Float64:
		return 8, true
	case Int8Array, Int32Array, Int64Array:
		return 4, true // INT32 length prefix == 0, no elements
	case String:
		return 2, true // INT16 length prefix == 0, no bytes
	case List:
		return 5, true // element type ZERO, INT32 length == 0
	case Compound:
		return 1, true // just the terminating ZERO byte
	default:
		return 0, false
	}
}

// PayloadSize returns the byte length of the payload of type typ starting
// at buf[pos], bounded by end. It returns (0, false) on an unknown type,
// a truncated length header, a length that would overflow past end, or
// any nested failure (spec §4.2, Testable Property 1:
// PayloadSize(p,e,t) <= e-p always, with equality iff the payload fills
// the whole remaining buffer).
func PayloadSize(buf []byte, pos, end int, typ byte) (int, bool) {
	switch typ {
	case Int8:
		return fixedSize(pos, end, 1)
	case Int16:
		return fixedSize(pos, end, 2)
	case Int32, Float32:
		return fixedSize(pos, end, 4)
	case Int64, Float64:
		return fixedSize(pos, end, 8)
	case Int8Array:
		return arraySize(buf, pos, end, 1)
	case Int32Array:
		return arraySize(buf, pos, end, 4)
	case Int64Array:
		return arraySize(buf, pos, end, 8)
	case String:
		if pos < 0 || pos+2 > end {
			return 0, false
		}
		n := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
		total := 2 + n
		if pos+total > end {
			return 0, false
		}
		return total, true
	case List:
		if pos < 0 || pos+5 > end {
			return 0, false
		}
		elemType := buf[pos]
		n := int(int32(binary.BigEndian.Uint32(buf[pos+1 : pos+5])))
		if n < 0 {
			return 0, false
		}
		cur := pos + 5
		for i := 0; i < n; i++ {
			sz, ok := PayloadSize(buf, cur, end, elemType)
			if !ok {
				return 0, false
			}
			cur += sz
		}
		return cur - pos, true
	case Compound:
		cur := pos
		for {
			if cur < 0 || cur >= end {
				return 0, false
			}
			t := buf[cur]
			if t == End {
				return cur + 1 - pos, true
			}
			if cur+3 > end {
				return 0, false
			}
			nameLen := int(binary.BigEndian.Uint16(buf[cur+1 : cur+3]))
			payloadPos := cur + 3 + nameLen
			if payloadPos > end {
				return 0, false
			}
			sz, ok := PayloadSize(buf, payloadPos, end, t)
			if !ok {
				return 0, false
			}
			cur = payloadPos + sz
		}
	default:
		return 0, false
	}
}

func fixedSize(pos, end, width int) (int, bool) {
	if pos < 0 || pos+width > end {
		return 0, false
	}
	return width, true
}

func arraySize(buf []byte, pos, end, elemWidth int) (int, bool) {
	if pos < 0 || pos+4 > end {
		return 0, false
	}
	n := int(int32(binary.BigEndian.Uint32(buf[pos : pos+4])))
	if n < 0 {
		return 0, false
	}
	total := 4 + n*elemWidth
	if total < 0 || pos+total > end {
		return 0, false
	}
	return total, true
}

// TagSize returns the byte length of the full named tag (type + name +
// payload) starting at buf[pos], bounded by end. Fails if the type byte
// is invalid or any bound would be exceeded.
func TagSize(buf []byte, pos, end int) (int, bool) {
	if pos < 0 || pos >= end {
		return 0, false
	}
	typ := buf[pos]
	if typ == End {
		return 1, true
	}
	if !ValidType(typ) {
		return 0, false
	}
	if pos+3 > end {
		return 0, false
	}
	nameLen := int(binary.BigEndian.Uint16(buf[pos+1 : pos+3]))
	payloadPos := pos + 3 + nameLen
	if payloadPos > end {
		return 0, false
	}
	psize, ok := PayloadSize(buf, payloadPos, end, typ)
	if !ok {
		return 0, false
	}
	return payloadPos + psize - pos, true
}

// TagPayload returns the offset and size of the payload of the tag at
// buf[pos], bounded by end.
func TagPayload(buf []byte, pos, end int) (payloadPos, size int, typ byte, ok bool) {
	if pos < 0 || pos >= end {
		return 0, 0, 0, false
	}
	typ = buf[pos]
	if typ == End || !ValidType(typ) {
		return 0, 0, 0, false
	}
	if pos+3 > end {
		return 0, 0, 0, false
	}
	nameLen := int(binary.BigEndian.Uint16(buf[pos+1 : pos+3]))
	payloadPos = pos + 3 + nameLen
	if payloadPos > end {
		return 0, 0, 0, false
	}
	size, ok = PayloadSize(buf, payloadPos, end, typ)
	if !ok {
		return 0, 0, 0, false
	}
	return payloadPos, size, typ, true
}

// TagName returns the name of the tag at buf[pos], bounded by end.
func TagName(buf []byte, pos, end int) (string, bool) {
	if pos < 0 || pos >= end {
		return "", false
	}
	typ := buf[pos]
	if typ == End {
		return "", true
	}
	if pos+3 > end {
		return "", false
	}
	nameLen := int(binary.BigEndian.Uint16(buf[pos+1 : pos+3]))
	nameStart := pos + 3
	if nameStart+nameLen > end {
		return "", false
	}
	return string(buf[nameStart : nameStart+nameLen]), true
}

// Scalar decode helpers, used by callers that have already located a
// scalar payload via TagPayload/CompoundGet.

func DecodeInt8(buf []byte, pos int) int8    { return int8(buf[pos]) }
func DecodeInt16(buf []byte, pos int) int16  { return int16(binary.BigEndian.Uint16(buf[pos : pos+2])) }
func DecodeInt32(buf []byte, pos int) int32  { return int32(binary.BigEndian.Uint32(buf[pos : pos+4])) }
func DecodeInt64(buf []byte, pos int) int64  { return int64(binary.BigEndian.Uint64(buf[pos : pos+8])) }
func DecodeFloat32(buf []byte, pos int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(buf[pos : pos+4]))
}
func DecodeFloat64(buf []byte, pos int) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(buf[pos : pos+8]))
}

func EncodeInt8(buf []byte, pos int, v int8)   { buf[pos] = byte(v) }
func EncodeInt16(buf []byte, pos int, v int16) { binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(v)) }
func EncodeInt32(buf []byte, pos int, v int32) { binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(v)) }
func EncodeInt64(buf []byte, pos int, v int64) { binary.BigEndian.PutUint64(buf[pos:pos+8], uint64(v)) }
func EncodeFloat32(buf []byte, pos int, v float32) {
	binary.BigEndian.PutUint32(buf[pos:pos+4], math.Float32bits(v))
}
func EncodeFloat64(buf []byte, pos int, v float64) {
	binary.BigEndian.PutUint64(buf[pos:pos+8], math.Float64bits(v))
}
