package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSystemClockMonotonic(t *testing.T) {
	var c SystemClock
	a := c.Now()
	b := c.Now()
	if b < a {
		t.Errorf("clock went backwards: %d then %d", a, b)
	}
}

func TestOpenDirRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDir(path); err == nil {
		t.Errorf("expected OpenDir to reject a regular file")
	}
}

func TestReadDirNamesListsRegularFilesOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"region.0.0.mcr", "region.1.0.mcr"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	d, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer d.Close()

	names, err := ReadDirNames(d)
	if err != nil {
		t.Fatalf("ReadDirNames: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 regular files, got %v", names)
	}
}

func TestNumCPUPositive(t *testing.T) {
	if NumCPU() < 1 {
		t.Errorf("NumCPU() = %d, want >= 1", NumCPU())
	}
}
