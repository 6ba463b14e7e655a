package compress

// uncompressedBackend is a pass-through "codec"; the chunk framing tag
// UNCOMPRESSED still routes through the façade so callers need not
// special-case it (spec.md §4.1 "UNCOMPRESSED is always supported").
type uncompressedBackend struct{}

func (uncompressedBackend) compress(dst, src []byte, level Level) (int, Result) {
	if len(src) > len(dst) {
		return 0, ShortBuffer
	}
	copy(dst, src)
	return len(src), Success
}

func (uncompressedBackend) decompress(dst, src []byte) (int, Result) {
	return finishDecode(dst, src, true)
}
