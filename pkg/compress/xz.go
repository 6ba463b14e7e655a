package compress

import (
	"bytes"

	"github.com/ulikunitz/xz"
)

// xzBackend does not expose a decoded content size ahead of time (the
// xz container carries no uncompressed-length field), so Decompress
// treats it like the deflate family for the SHORT_OUTPUT/SHORT_BUFFER
// distinction.
type xzBackend struct{}

func xzDictCap(level Level) int {
	switch level {
	case LevelLowest:
		return 1 << 18
	case LevelLow:
		return 1 << 20
	case LevelNormal:
		return 1 << 22
	case LevelHigh:
		return 1 << 24
	case LevelHighest:
		return 1 << 26
	default:
		return 1 << 22
	}
}

func (xzBackend) compress(dst, src []byte, level Level) (int, Result) {
	var buf bytes.Buffer
	cfg := xz.WriterConfig{DictCap: xzDictCap(level)}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
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

func (xzBackend) decompress(dst, src []byte) (int, Result) {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, Malformed
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return 0, Malformed
	}
	return finishDecode(dst, out.Bytes(), false)
}
