package filecache

import (
	"os"
	"testing"

	"github.com/clodstore/clod/internal/platform"
	"github.com/clodstore/clod/internal/region"
	"github.com/clodstore/clod/pkg/compress"
)

// fakeClock lets a test drive the cache's eviction logic without
// sleeping (spec.md §9: "the time source is abstracted behind a
// monotonic_now function so tests can inject a clock").
type fakeClock struct{ now int64 }

func (c *fakeClock) Now() int64 { return c.now }

func openRegion(t *testing.T, dir *platform.Dir, name string) (*region.RegionFile, error) {
	t.Helper()
	cfg := region.Config{
		Kind:     region.Vanilla,
		Dir:      dir,
		Name:     name,
		Method:   compress.Uncompressed,
		Writable: true,
	}
	if rf, err := region.Open(cfg); err == nil {
		return rf, nil
	}
	return region.Create(cfg)
}

func TestCacheReusesOpenEntry(t *testing.T) {
	tmp := t.TempDir()
	dir, err := platform.OpenDir(tmp)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer dir.Close()

	clock := &fakeClock{}
	c := New(clock, nil)

	opens := 0
	open := func(key string) (*region.RegionFile, error) {
		opens++
		return openRegion(t, dir, key)
	}

	rf1, err := c.Get("region.0.0.mcr", open)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	rf2, err := c.Get("region.0.0.mcr", open)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rf1 != rf2 {
		t.Fatalf("expected the same RegionFile handle on repeat lookup")
	}
	if opens != 1 {
		t.Fatalf("expected exactly one open call, got %d", opens)
	}
}

func TestCacheEvictsIdleEntries(t *testing.T) {
	tmp := t.TempDir()
	dir, err := platform.OpenDir(tmp)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer dir.Close()

	clock := &fakeClock{}
	c := New(clock, nil)
	c.cpuCount = 1 // force evictableDuration toward zero fast

	opens := map[string]int{}
	open := func(key string) (*region.RegionFile, error) {
		opens[key]++
		return openRegion(t, dir, key)
	}

	if _, err := c.Get("region.0.0.mcr", open); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Advance the clock well past max_ns so the next lookup evicts the
	// idle entry instead of reusing it.
	clock.now = maxEvictableNS * 2

	if _, err := c.Get("region.1.0.mcr", open); err != nil {
		t.Fatalf("Get second region: %v", err)
	}
	if _, err := c.Get("region.0.0.mcr", open); err != nil {
		t.Fatalf("Get first region again: %v", err)
	}

	if opens["region.0.0.mcr"] != 2 {
		t.Fatalf("expected region.0.0.mcr to be reopened after eviction, opened %d times", opens["region.0.0.mcr"])
	}
	if _, statErr := os.Stat(dir.Path()); statErr != nil {
		t.Fatalf("Stat temp dir: %v", statErr)
	}
}

func TestCacheCloseAll(t *testing.T) {
	tmp := t.TempDir()
	dir, err := platform.OpenDir(tmp)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer dir.Close()

	c := New(nil, nil)
	open := func(key string) (*region.RegionFile, error) {
		return openRegion(t, dir, key)
	}
	if _, err := c.Get("region.0.0.mcr", open); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get("region.1.0.mcr", open); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := c.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected CloseAll to keep entry slots for reuse, got len %d", c.Len())
	}
}
