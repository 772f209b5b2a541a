package store

import (
	"context"
	"testing"
)

func TestKVSet_VersionIncrements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.KVSet(ctx, "color", `"red"`)
	if err != nil {
		t.Fatalf("KVSet() failed: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("first version = %d, want 1", first.Version)
	}

	second, err := s.KVSet(ctx, "color", `"blue"`)
	if err != nil {
		t.Fatalf("KVSet() failed: %v", err)
	}
	if second.Version != 2 || second.Value != `"blue"` {
		t.Errorf("second = %+v, want version 2 with new value", second)
	}
}

func TestKVGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.KVSet(ctx, "n", "42"); err != nil {
		t.Fatalf("KVSet() failed: %v", err)
	}

	got, found, err := s.KVGet(ctx, "n")
	if err != nil {
		t.Fatalf("KVGet() failed: %v", err)
	}
	if !found {
		t.Fatal("KVGet() found = false, want true")
	}
	if got.Value != "42" {
		t.Errorf("value = %q, want %q", got.Value, "42")
	}

	_, found, err = s.KVGet(ctx, "missing")
	if err != nil {
		t.Fatalf("KVGet(missing) failed: %v", err)
	}
	if found {
		t.Error("KVGet(missing) found = true, want false")
	}
}

func TestKVDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.KVSet(ctx, "k", "1"); err != nil {
		t.Fatalf("KVSet() failed: %v", err)
	}

	existed, err := s.KVDelete(ctx, "k")
	if err != nil {
		t.Fatalf("KVDelete() failed: %v", err)
	}
	if !existed {
		t.Error("KVDelete() = false, want true")
	}

	existed, err = s.KVDelete(ctx, "k")
	if err != nil {
		t.Fatalf("second KVDelete() failed: %v", err)
	}
	if existed {
		t.Error("second KVDelete() = true, want false")
	}

	// Re-creating a deleted key starts a new version history.
	e, err := s.KVSet(ctx, "k", "2")
	if err != nil {
		t.Fatalf("KVSet() failed: %v", err)
	}
	if e.Version != 1 {
		t.Errorf("version after delete = %d, want 1", e.Version)
	}
}

func TestKVList_SortedByKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"b", "a", "c"} {
		if _, err := s.KVSet(ctx, k, "1"); err != nil {
			t.Fatalf("KVSet(%q) failed: %v", k, err)
		}
	}

	entries, err := s.KVList(ctx)
	if err != nil {
		t.Fatalf("KVList() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].Key != want {
			t.Errorf("entries[%d].Key = %q, want %q", i, entries[i].Key, want)
		}
	}
}
