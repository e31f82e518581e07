package store

import (
	"context"
	"testing"
)

func TestMemoryStoreSortedSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.ZAdd(ctx, "q", 3, "c"); err != nil {
		t.Fatal(err)
	}
	if err := s.ZAdd(ctx, "q", 1, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.ZAdd(ctx, "q", 2, "b"); err != nil {
		t.Fatal(err)
	}

	card, err := s.ZCard(ctx, "q")
	if err != nil {
		t.Fatal(err)
	}
	if card != 3 {
		t.Errorf("Expected cardinality 3, got %d", card)
	}

	for _, want := range []string{"a", "b", "c"} {
		member, ok, err := s.ZPopMin(ctx, "q")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("Expected a member, got none")
		}
		if member != want {
			t.Errorf("Expected %q, got %q", want, member)
		}
	}

	if _, ok, _ := s.ZPopMin(ctx, "q"); ok {
		t.Error("Expected empty sorted set")
	}
}

func TestMemoryStoreSortedSetFIFOTies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// Equal scores must pop in insertion order
	for _, member := range []string{"first", "second", "third"} {
		if err := s.ZAdd(ctx, "q", 7, member); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []string{"first", "second", "third"} {
		member, ok, err := s.ZPopMin(ctx, "q")
		if err != nil {
			t.Fatal(err)
		}
		if !ok || member != want {
			t.Errorf("Expected %q, got %q (ok=%v)", want, member, ok)
		}
	}
}

func TestMemoryStoreSortedSetUpdateScore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.ZAdd(ctx, "q", 1, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.ZAdd(ctx, "q", 5, "a"); err != nil {
		t.Fatal(err)
	}

	card, _ := s.ZCard(ctx, "q")
	if card != 1 {
		t.Errorf("Expected re-add to update, cardinality is %d", card)
	}
}

func TestMemoryStoreZMembers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.ZAdd(ctx, "q", 2, "b")
	s.ZAdd(ctx, "q", 1, "a")

	members, err := s.ZMembers(ctx, "q")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0] != "a" || members[1] != "b" {
		t.Errorf("Expected [a b], got %v", members)
	}

	// Listing must not drain the set
	card, _ := s.ZCard(ctx, "q")
	if card != 2 {
		t.Errorf("Expected cardinality 2 after listing, got %d", card)
	}
}

func TestMemoryStoreSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	added, err := s.SAdd(ctx, "seen", "fp1")
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Error("Expected first add to report new member")
	}

	added, err = s.SAdd(ctx, "seen", "fp1")
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("Expected second add to report existing member")
	}

	ok, _ := s.SIsMember(ctx, "seen", "fp1")
	if !ok {
		t.Error("Expected member to be present")
	}

	if err := s.SRem(ctx, "seen", "fp1"); err != nil {
		t.Fatal(err)
	}
	ok, _ = s.SIsMember(ctx, "seen", "fp1")
	if ok {
		t.Error("Expected member to be removed")
	}
}

func TestMemoryStoreHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.HSet(ctx, "h", "f1", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.HSet(ctx, "h", "f2", "v2"); err != nil {
		t.Fatal(err)
	}

	value, ok, err := s.HGet(ctx, "h", "f1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != "v1" {
		t.Errorf("Expected v1, got %q (ok=%v)", value, ok)
	}

	if _, ok, _ := s.HGet(ctx, "h", "missing"); ok {
		t.Error("Expected missing field")
	}

	length, _ := s.HLen(ctx, "h")
	if length != 2 {
		t.Errorf("Expected length 2, got %d", length)
	}

	all, err := s.HGetAll(ctx, "h")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["f2"] != "v2" {
		t.Errorf("Unexpected contents: %v", all)
	}

	if err := s.HDel(ctx, "h", "f1"); err != nil {
		t.Fatal(err)
	}
	length, _ = s.HLen(ctx, "h")
	if length != 1 {
		t.Errorf("Expected length 1 after delete, got %d", length)
	}
}

func TestMemoryStoreDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.ZAdd(ctx, "q", 1, "a")
	s.SAdd(ctx, "seen", "fp")
	s.HSet(ctx, "h", "f", "v")

	if err := s.Del(ctx, "q", "seen", "h"); err != nil {
		t.Fatal(err)
	}

	if card, _ := s.ZCard(ctx, "q"); card != 0 {
		t.Error("Expected sorted set to be gone")
	}
	if card, _ := s.SCard(ctx, "seen"); card != 0 {
		t.Error("Expected set to be gone")
	}
	if length, _ := s.HLen(ctx, "h"); length != 0 {
		t.Error("Expected hash to be gone")
	}
}
