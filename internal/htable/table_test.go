package htable

import (
	"fmt"
	"testing"
)

func keyed(key string, value byte) []byte {
	return append([]byte(key), value)
}

func TestAddGetDel(t *testing.T) {
	tb := New(Options{})
	elem := keyed("abc", 1)
	if prev := tb.Add(elem, 3); prev != nil {
		t.Fatalf("Add on empty table returned %v, want nil", prev)
	}
	if got := tb.Get([]byte("abc")); string(got) != string(elem) {
		t.Errorf("Get = %v, want %v", got, elem)
	}
	if tb.Len() != 1 {
		t.Errorf("Len = %d, want 1", tb.Len())
	}
	removed := tb.Del([]byte("abc"))
	if string(removed) != string(elem) {
		t.Errorf("Del = %v, want %v", removed, elem)
	}
	if tb.Get([]byte("abc")) != nil {
		t.Error("Get found element after Del")
	}
	if tb.Len() != 0 {
		t.Errorf("Len after Del = %d, want 0", tb.Len())
	}
}

func TestAddRejectsDuplicateKey(t *testing.T) {
	tb := New(Options{})
	tb.Add(keyed("k", 1), 1)
	existing := tb.Add(keyed("k", 2), 1)
	if existing == nil {
		t.Fatal("expected Add to report existing element on duplicate key")
	}
	if existing[1] != 1 {
		t.Errorf("Add returned element with value %d, want original 1", existing[1])
	}
}

func TestSetReplaces(t *testing.T) {
	tb := New(Options{})
	tb.Add(keyed("k", 1), 1)
	prev := tb.Set(keyed("k", 2), 1)
	if prev == nil || prev[1] != 1 {
		t.Fatalf("Set previous = %v, want value 1", prev)
	}
	got := tb.Get([]byte("k"))
	if got[1] != 2 {
		t.Errorf("Get after Set = %v, want value 2", got)
	}
}

func TestRebuildPreservesAllElementsAcrossGrowth(t *testing.T) {
	tb := New(Options{})
	const n = 500
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%04d", i)
		tb.Add(keyed(key, byte(i)), len(key))
	}
	if tb.Len() != n {
		t.Fatalf("Len = %d, want %d", tb.Len(), n)
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%04d", i)
		got := tb.Get([]byte(key))
		if got == nil {
			t.Fatalf("missing key %s after growth", key)
		}
		if got[len(key)] != byte(i) {
			t.Errorf("key %s value = %d, want %d", key, got[len(key)], i)
		}
	}
}

func TestIteratorVisitsEveryLiveElement(t *testing.T) {
	tb := New(Options{})
	want := map[string]bool{}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("k%d", i)
		tb.Add(keyed(key, 0), len(key))
		want[key] = true
	}
	tb.Del([]byte("k3"))
	delete(want, "k3")

	var it Iterator
	seen := map[string]bool{}
	for tb.Next(&it) {
		seen[string(it.Element[:it.KeySize])] = true
	}
	if len(seen) != len(want) {
		t.Fatalf("iterator saw %d elements, want %d", len(seen), len(want))
	}
	for k := range want {
		if !seen[k] {
			t.Errorf("iterator missed key %s", k)
		}
	}
}

func TestGetOnEmptyTableReturnsNil(t *testing.T) {
	tb := New(Options{})
	if tb.Get([]byte("anything")) != nil {
		t.Error("expected nil from Get on empty table")
	}
	if tb.Del([]byte("anything")) != nil {
		t.Error("expected nil from Del on empty table")
	}
}
