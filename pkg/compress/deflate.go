package compress

import (
	"bytes"

	"github.com/klauspost/compress/flate"
)

type deflateBackend struct{}

func (deflateBackend) compress(dst, src []byte, level Level) (int, Result) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, deflateFamilyLevel(level))
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

func (deflateBackend) decompress(dst, src []byte) (int, Result) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return 0, Malformed
	}
	return finishDecode(dst, out.Bytes(), false)
}
