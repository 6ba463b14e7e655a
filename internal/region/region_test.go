package region

import (
	"bytes"
	"testing"

	"github.com/clodstore/clod/internal/errs"
	"github.com/clodstore/clod/internal/platform"
	"github.com/clodstore/clod/pkg/compress"
)

func openDir(t *testing.T) *platform.Dir {
	t.Helper()
	dir, err := platform.OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	t.Cleanup(func() { dir.Close() })
	return dir
}

func TestRoundTripVanilla(t *testing.T) {
	dir := openDir(t)
	rf, err := Create(Config{
		Kind:     Vanilla,
		Dir:      dir,
		Name:     "region.0.0.mcr",
		Method:   compress.Zlib,
		Writable: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer rf.Close()

	payload := bytes.Repeat([]byte{0xAA}, 1024)
	if err := rf.Write(0, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	dst := make([]byte, len(payload))
	n, err := rf.Read(0, dst)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(payload) || !bytes.Equal(dst[:n], payload) {
		t.Fatalf("round trip mismatch: got %d bytes", n)
	}

	if !rf.HasChunk(0) {
		t.Fatalf("expected slot 0 occupied")
	}
	if _, ok := rf.Mtime(0); !ok {
		t.Fatalf("expected slot 0 to have an mtime")
	}

	if err := rf.Delete(0); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rf.HasChunk(0) {
		t.Fatalf("expected slot 0 empty after delete")
	}
	if _, err := rf.Read(0, dst); err != errs.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRoundTripExtendedUsesDirectoryTables(t *testing.T) {
	dir := openDir(t)
	rf, err := Create(Config{
		Kind:     Extended,
		Dir:      dir,
		Name:     "region.0.0.clod",
		Method:   compress.Uncompressed,
		Writable: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer rf.Close()

	payload := []byte("hello extended region")
	if err := rf.Write(5, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	dst := make([]byte, len(payload))
	n, err := rf.Read(5, dst)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(dst[:n], payload) {
		t.Fatalf("round trip mismatch for extended-kind region")
	}
	if !rf.HasChunk(5) {
		t.Fatalf("expected slot 5 occupied")
	}
	if rf.HasChunk(6) {
		t.Fatalf("expected slot 6 empty")
	}
}

func TestSpillFileWrite(t *testing.T) {
	dir := openDir(t)
	coord := []int64{0, 0}
	rf, err := Create(Config{
		Kind:             Extended,
		Dir:              dir,
		Name:             "region.0.0.clod",
		Prefix:           "region",
		Coord:            coord,
		ChunkExt:         "mcc",
		Method:           compress.Uncompressed,
		MaxInlineSectors: 1, // force anything bigger than one sector to spill
		Writable:         true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer rf.Close()

	payload := bytes.Repeat([]byte{0x42}, 10*SectorSize)
	if err := rf.Write(3, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	names, err := platform.ReadDirNames(dir)
	if err != nil {
		t.Fatalf("ReadDirNames: %v", err)
	}
	wantName := FormatFilename("region", positionForSlot(coord, 3), "mcc")
	found := false
	for _, n := range names {
		if n == wantName {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected spill file %q, got %v", wantName, names)
	}

	dst := make([]byte, len(payload))
	n, err := rf.Read(3, dst)
	if err != nil {
		t.Fatalf("Read spilled chunk: %v", err)
	}
	if !bytes.Equal(dst[:n], payload) {
		t.Fatalf("spilled round trip mismatch")
	}
}

func TestMaxSectorInlineBoundaryDoesNotCollideWithSpillSentinel(t *testing.T) {
	dir := openDir(t)
	coord := []int64{0, 0}
	rf, err := Create(Config{
		Kind:     Extended,
		Dir:      dir,
		Name:     "region.0.0.clod",
		Prefix:   "region",
		Coord:    coord,
		ChunkExt: "mcc",
		Method:   compress.Uncompressed,
		Writable: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer rf.Close()

	if rf.cfg.MaxInlineSectors != DefaultMaxInlineSectors {
		t.Fatalf("expected default MaxInlineSectors %d, got %d", DefaultMaxInlineSectors, rf.cfg.MaxInlineSectors)
	}

	// A payload that occupies exactly DefaultMaxInlineSectors (254) sectors
	// must round-trip inline, not as a spill: 254 is still a legal count
	// byte, distinct from the 255 spill sentinel.
	inlinePayload := bytes.Repeat([]byte{0x11}, DefaultMaxInlineSectors*SectorSize-chunkFrameHeaderSize)
	if err := rf.Write(1, inlinePayload); err != nil {
		t.Fatalf("Write inline-boundary chunk: %v", err)
	}
	names, err := platform.ReadDirNames(dir)
	if err != nil {
		t.Fatalf("ReadDirNames: %v", err)
	}
	for _, n := range names {
		if n != "region.0.0.clod" {
			t.Fatalf("254-sector chunk should not have spilled, found extra file %q", n)
		}
	}
	dst := make([]byte, len(inlinePayload))
	n, err := rf.Read(1, dst)
	if err != nil {
		t.Fatalf("Read inline-boundary chunk: %v", err)
	}
	if !bytes.Equal(dst[:n], inlinePayload) {
		t.Fatalf("254-sector inline round trip mismatch")
	}

	// One sector past the inline ceiling must spill rather than being
	// mistaken for the spill sentinel.
	spillPayload := bytes.Repeat([]byte{0x22}, (DefaultMaxInlineSectors+1)*SectorSize-chunkFrameHeaderSize)
	if err := rf.Write(2, spillPayload); err != nil {
		t.Fatalf("Write spill-boundary chunk: %v", err)
	}
	dst = make([]byte, len(spillPayload))
	n, err = rf.Read(2, dst)
	if err != nil {
		t.Fatalf("Read spill-boundary chunk: %v", err)
	}
	if !bytes.Equal(dst[:n], spillPayload) {
		t.Fatalf("255-sector spill round trip mismatch")
	}
}

func TestReopenPreservesData(t *testing.T) {
	dir := openDir(t)
	cfg := Config{
		Kind:     Vanilla,
		Dir:      dir,
		Name:     "region.1.-1.mcr",
		Method:   compress.Gzip,
		Writable: true,
	}
	rf, err := Create(cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := []byte("persisted across reopen")
	if err := rf.Write(42, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf2, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf2.Close()

	dst := make([]byte, len(payload))
	n, err := rf2.Read(42, dst)
	if err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if !bytes.Equal(dst[:n], payload) {
		t.Fatalf("reopen round trip mismatch")
	}
}

func TestCloseRefusesWhileInUse(t *testing.T) {
	dir := openDir(t)
	rf, err := Create(Config{
		Kind:     Vanilla,
		Dir:      dir,
		Name:     "region.0.0.mcr",
		Method:   compress.Uncompressed,
		Writable: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rf.Enter()
	if err := rf.Close(); err != errs.ErrClosedInUse {
		t.Fatalf("expected ErrClosedInUse, got %v", err)
	}
	rf.Leave()
	if err := rf.Close(); err != nil {
		t.Fatalf("Close after Leave: %v", err)
	}
}
