package compress

import (
	"github.com/klauspost/compress/zstd"
)

// zstdBackend encodes with EncodeAll, which records the content size in
// the frame header, and decodes the whole frame with DecodeAll, so
// Decompress is able to report actualOut even on SHORT_BUFFER.
type zstdBackend struct{}

func zstdEncoderLevel(level Level) zstd.EncoderLevel {
	switch level {
	case LevelLowest, LevelLow:
		return zstd.SpeedFastest
	case LevelNormal:
		return zstd.SpeedDefault
	case LevelHigh:
		return zstd.SpeedBetterCompression
	case LevelHighest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func (zstdBackend) compress(dst, src []byte, level Level) (int, Result) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdEncoderLevel(level)))
	if err != nil {
		return 0, AllocFailed
	}
	defer enc.Close()
	out := enc.EncodeAll(src, nil)
	if len(out) > len(dst) {
		return 0, ShortBuffer
	}
	copy(dst, out)
	return len(out), Success
}

func (zstdBackend) decompress(dst, src []byte) (int, Result) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return 0, AllocFailed
	}
	defer dec.Close()
	out, err := dec.DecodeAll(src, nil)
	if err != nil {
		return 0, Malformed
	}
	return finishDecode(dst, out, true)
}
