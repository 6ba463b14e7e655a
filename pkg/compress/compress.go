// Package compress is a façade over several compression back-ends,
// presenting one uniform (Result, actual length) contract regardless of
// which codec backs a given Method (spec.md §4.1). Callers allocate the
// destination buffer themselves and may reuse a Compressor/Decompressor
// across many calls; each call still builds a fresh back-end codec, and
// no back-end handle is kept between calls.
package compress

import "fmt"

// Method identifies a compression codec. Values match the on-disk
// chunk-framing tag byte (spec.md §3.5: "Compression method tags used
// in chunk framing").
type Method byte

const (
	Uncompressed Method = 1
	Gzip         Method = 2
	Zlib         Method = 3
	Deflate      Method = 4
	LZ4F         Method = 5
	XZ           Method = 6
	Zstd         Method = 7
	Bzip2        Method = 8
	MinecraftLZ4 Method = 10
)

func (m Method) String() string {
	switch m {
	case Uncompressed:
		return "UNCOMPRESSED"
	case Gzip:
		return "GZIP"
	case Zlib:
		return "ZLIB"
	case Deflate:
		return "DEFLATE"
	case LZ4F:
		return "LZ4F"
	case XZ:
		return "XZ"
	case Zstd:
		return "ZSTD"
	case Bzip2:
		return "BZIP2"
	case MinecraftLZ4:
		return "MINECRAFT_LZ4"
	default:
		return fmt.Sprintf("Method(%d)", byte(m))
	}
}

// Level is one of five abstract compression levels, each back-end
// mapping it to its own concrete native level (spec.md §4.1 "Level
// mapping").
type Level int

const (
	LevelLowest Level = iota
	LevelLow
	LevelNormal
	LevelHigh
	LevelHighest
)

// Result is the uniform outcome of a Compress/Decompress call (spec.md
// §4.1 "Result taxonomy").
type Result int

const (
	Success Result = iota
	Unsupported
	Malformed
	ShortBuffer
	ShortOutput
	AllocFailed
)

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case Unsupported:
		return "UNSUPPORTED"
	case Malformed:
		return "MALFORMED"
	case ShortBuffer:
		return "SHORT_BUFFER"
	case ShortOutput:
		return "SHORT_OUTPUT"
	case AllocFailed:
		return "ALLOC_FAILED"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// backend is implemented once per Method. compress/decompress never
// panic; malformed input or an over-full destination map to Result
// values instead.
type backend interface {
	compress(dst, src []byte, level Level) (actualOut int, res Result)
	decompress(dst, src []byte) (actualOut int, res Result)
}

func backendFor(m Method) (backend, bool) {
	switch m {
	case Uncompressed:
		return uncompressedBackend{}, true
	case Gzip:
		return gzipBackend{}, true
	case Zlib:
		return zlibBackend{}, true
	case Deflate:
		return deflateBackend{}, true
	case LZ4F:
		return lz4fBackend{}, true
	case XZ:
		return xzBackend{}, true
	case Zstd:
		return zstdBackend{}, true
	case Bzip2:
		return bzip2Backend{}, true
	case MinecraftLZ4:
		return minecraftLZ4Backend{}, true
	default:
		return nil, false
	}
}

// Supported reports whether method is compiled in. UNCOMPRESSED is
// always supported (spec.md §4.1 "Support advertisement").
func Supported(method Method) bool {
	_, ok := backendFor(method)
	return ok
}

// Compressor is a compression context: its zero value is ready to use,
// and a caller is expected to keep one per goroutine rather than share
// it, mirroring the "one context per thread" contract of the original
// API. It does not itself pool per-backend writer handles across calls
// (see DESIGN.md) — callers get a stable value to hold onto, not a
// cache.
type Compressor struct{}

// Compress writes the compressed form of src into dst using method at
// level, returning the number of bytes written and a Result.
func (c *Compressor) Compress(dst, src []byte, method Method, level Level) (actualOut int, res Result) {
	if len(src) == 0 {
		return 0, Success
	}
	b, ok := backendFor(method)
	if !ok {
		return 0, Unsupported
	}
	return b.compress(dst, src, level)
}

// Decompressor is a decompression context, analogous to Compressor.
type Decompressor struct{}

// Decompress writes the decompressed form of src into dst using
// method, returning the number of bytes written and a Result.
func (d *Decompressor) Decompress(dst, src []byte, method Method) (actualOut int, res Result) {
	if len(src) == 0 {
		return 0, Success
	}
	b, ok := backendFor(method)
	if !ok {
		return 0, Unsupported
	}
	return b.decompress(dst, src)
}

// finishDecode applies the uniform SHORT_BUFFER/SHORT_OUTPUT/SUCCESS
// rule (spec.md §4.1 contracts) once a back-end has produced the full
// decoded payload in decoded. exposesSize is true for back-ends whose
// container carries the content length (LZ4-frame, Zstd, clod's
// length-prefixed Minecraft LZ4 block, UNCOMPRESSED) and false for those
// that must be streamed to completion to learn it (gzip, zlib, deflate,
// bzip2, xz). With exposesSize, SHORT_BUFFER reports the decoded length
// and an over-large dst is filled and reported as SUCCESS; without it,
// SHORT_BUFFER reports 0 and an over-large dst yields SHORT_OUTPUT with
// actualOut set to the decoded length.
func finishDecode(dst, decoded []byte, exposesSize bool) (int, Result) {
	switch {
	case len(decoded) > len(dst):
		if exposesSize {
			return len(decoded), ShortBuffer
		}
		return 0, ShortBuffer
	case len(decoded) < len(dst):
		if exposesSize {
			copy(dst, decoded)
			return len(decoded), Success
		}
		return len(decoded), ShortOutput
	default:
		copy(dst, decoded)
		return len(decoded), Success
	}
}
