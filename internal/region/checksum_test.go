package region

import "testing"

func TestChecksumVariantsDiffer(t *testing.T) {
	data := []byte("libclod checksum parameterization fixture")

	crc32v := Checksum(CRC32, data)
	iso := Checksum(CRC64ISO, data)
	zero := Checksum(CRC64Zero, data)

	if iso == zero {
		t.Fatalf("CRC64ISO and CRC64Zero must not collapse to the same value, both gave %d", iso)
	}
	if uint64(uint32(crc32v)) != crc32v {
		t.Fatalf("CRC32 checksum should fit in 32 bits, got %d", crc32v)
	}
}

func TestChecksumDeterministic(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	for _, alg := range []ChecksumAlgorithm{CRC32, CRC64ISO, CRC64Zero} {
		if Checksum(alg, data) != Checksum(alg, data) {
			t.Fatalf("checksum for algorithm %d is not deterministic", alg)
		}
	}
}
