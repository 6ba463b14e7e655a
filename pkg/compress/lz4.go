package compress

import (
	"bytes"

	"github.com/pierrec/lz4/v4"
)

// lz4fBackend wraps the LZ4 frame format, which carries a content-size
// field in its header (set via lz4.Writer.Apply) so Decompress can
// distinguish SHORT_BUFFER from a genuinely undersized destination.
type lz4fBackend struct{}

func lz4Level(level Level) lz4.CompressionLevel {
	switch level {
	case LevelLowest:
		return lz4.Fast
	case LevelLow:
		return lz4.Level3
	case LevelNormal:
		return lz4.Level5
	case LevelHigh:
		return lz4.Level7
	case LevelHighest:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func (lz4fBackend) compress(dst, src []byte, level Level) (int, Result) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4Level(level)), lz4.SizeOption(uint64(len(src)))); err != nil {
		return 0, AllocFailed
	}
	if _, err := w.Write(src); err != nil {
		return 0, Malformed
	}
	if err := w.Close(); err != nil {
		return 0, Malformed
	}
	if buf.Len() > len(dst) {
		return 0, ShortBuffer
	}
	copy(dst, buf.Bytes())
	return buf.Len(), Success
}

func (lz4fBackend) decompress(dst, src []byte) (int, Result) {
	r := lz4.NewReader(bytes.NewReader(src))
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return 0, Malformed
	}
	return finishDecode(dst, out.Bytes(), true)
}

// minecraftLZ4Backend is the legacy Minecraft LZ4 container: a raw LZ4
// block (not a self-framing LZ4 frame) prefixed by clod with a 4-byte
// big-endian uncompressed-length header, since the bare block API gives
// no other way to size the destination on decode (spec.md §4.1 domain
// stack note on MINECRAFT_LZ4).
type minecraftLZ4Backend struct{}

func (minecraftLZ4Backend) compress(dst, src []byte, level Level) (int, Result) {
	bound := lz4.CompressBlockBound(len(src))
	if bound+4 > len(dst) {
		return 0, ShortBuffer
	}
	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst[4:4+bound])
	if err != nil {
		return 0, Malformed
	}
	if n == 0 {
		// incompressible input: lz4 reports 0 when it can't beat a raw copy
		if len(src)+4 > len(dst) {
			return 0, ShortBuffer
		}
		copy(dst[4:4+len(src)], src)
		putUint32BE(dst[:4], uint32(len(src))|uncompressedFlag)
		return 4 + len(src), Success
	}
	putUint32BE(dst[:4], uint32(len(src)))
	return 4 + n, Success
}

const uncompressedFlag = 1 << 31

func (minecraftLZ4Backend) decompress(dst, src []byte) (int, Result) {
	if len(src) < 4 {
		return 0, Malformed
	}
	header := getUint32BE(src[:4])
	rawLen := int(header &^ uncompressedFlag)
	body := src[4:]
	if header&uncompressedFlag != 0 {
		if rawLen != len(body) {
			return 0, Malformed
		}
		return finishDecode(dst, body, true)
	}
	decoded := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(body, decoded)
	if err != nil {
		return 0, Malformed
	}
	return finishDecode(dst, decoded[:n], true)
}

func putUint32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
