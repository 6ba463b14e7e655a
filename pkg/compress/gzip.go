package compress

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
)

type gzipBackend struct{}

func deflateFamilyLevel(level Level) int {
	switch level {
	case LevelLowest:
		return gzip.BestSpeed
	case LevelLow:
		return 3
	case LevelNormal:
		return gzip.DefaultCompression
	case LevelHigh:
		return 8
	case LevelHighest:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func (gzipBackend) compress(dst, src []byte, level Level) (int, Result) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, deflateFamilyLevel(level))
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

func (gzipBackend) decompress(dst, src []byte) (int, Result) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, Malformed
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return 0, Malformed
	}
	return finishDecode(dst, out.Bytes(), false)
}
