package compress

import (
	"bytes"

	"github.com/dsnet/compress/bzip2"
)

// bzip2Backend uses dsnet/compress/bzip2, the only pack-available
// bzip2 encoder — the standard library's compress/bzip2 is read-only.
type bzip2Backend struct{}

func bzip2Level(level Level) int {
	switch level {
	case LevelLowest:
		return 1
	case LevelLow:
		return 3
	case LevelNormal:
		return 6
	case LevelHigh:
		return 8
	case LevelHighest:
		return 9
	default:
		return 6
	}
}

func (bzip2Backend) compress(dst, src []byte, level Level) (int, Result) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2Level(level)})
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

func (bzip2Backend) decompress(dst, src []byte) (int, Result) {
	r, err := bzip2.NewReader(bytes.NewReader(src), nil)
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
