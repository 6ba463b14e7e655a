package clod

import "testing"

func TestRegionEdgeTable(t *testing.T) {
	cases := []struct {
		d    int
		edge int
	}{
		{1, 1024}, {2, 32}, {3, 10}, {4, 5}, {5, 4}, {6, 3}, {7, 2}, {8, 2}, {9, 2}, {10, 2},
	}
	for _, c := range cases {
		edge, err := RegionEdge(c.d)
		if err != nil {
			t.Fatalf("RegionEdge(%d): %v", c.d, err)
		}
		if edge != c.edge {
			t.Errorf("RegionEdge(%d) = %d, want %d", c.d, edge, c.edge)
		}
	}
}

func TestRegionEdgeOutOfRange(t *testing.T) {
	if _, err := RegionEdge(0); err == nil {
		t.Errorf("expected error for d=0")
	}
	if _, err := RegionEdge(11); err == nil {
		t.Errorf("expected error for d=11")
	}
}

func TestGroupD2Matches1024Slots(t *testing.T) {
	// D=2, 32x32 region: slot should equal (x&31) | (z&31)<<5, matching
	// the vanilla Minecraft chunk index layout.
	vec := Vec{37, -5}
	region, slot, err := Group(vec)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	wantSlot := uint32(37&31) | uint32(uint64(int64(-5))&31)<<5
	if slot != wantSlot {
		t.Errorf("slot = %d, want %d", slot, wantSlot)
	}
	if region[0] != 37>>5 {
		t.Errorf("region.x = %d, want %d", region[0], 37>>5)
	}
	if region[1] != -5>>5 {
		t.Errorf("region.z = %d, want %d", region[1], -5>>5)
	}
}

func TestGroupD3AsymmetricSplit(t *testing.T) {
	// D=3, 10 bits -> 4+3+3 per spec §3.1's worked example.
	vec := Vec{0xFF, 0xFF, 0xFF}
	_, slot, err := Group(vec)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	wantSlot := uint32(0xF) | uint32(0x7)<<4 | uint32(0x7)<<7
	if slot != wantSlot {
		t.Errorf("slot = %#x, want %#x", slot, wantSlot)
	}
}

func TestGroupMutatesRegionNotOriginalSlice(t *testing.T) {
	original := Vec{100, 200}
	region, _, err := Group(original)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if original[0] != 100 || original[1] != 200 {
		t.Errorf("Group must not mutate its input: got %v", original)
	}
	if region[0] == original[0] {
		t.Errorf("region coordinate should differ from chunk coordinate for x=100")
	}
}

func TestRegionCardinalityClosTo1024(t *testing.T) {
	for d := 1; d <= MaxDimensions; d++ {
		n, err := RegionCardinality(d)
		if err != nil {
			t.Fatalf("RegionCardinality(%d): %v", d, err)
		}
		if n > 1024 {
			t.Errorf("RegionCardinality(%d) = %d, exceeds 1024 slot budget", d, n)
		}
	}
}
