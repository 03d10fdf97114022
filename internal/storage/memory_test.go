package storage

import (
	"context"
	"sort"
	"testing"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := m.Set(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || got != "v1" {
		t.Fatalf("got %q ok=%v err=%v", got, ok, err)
	}

	if err := m.Set(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	got, _, _ = m.Get(ctx, "k")
	if got != "v2" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestMemoryKeysPrefixSuffix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"alice::a", "alice::b", "bob::a"} {
		if err := m.Set(ctx, k, "x"); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := m.Keys(ctx, "alice::", "")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "alice::a" || keys[1] != "alice::b" {
		t.Fatalf("got %v", keys)
	}

	keys, err = m.Keys(ctx, "", "::a")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "alice::a" || keys[1] != "bob::a" {
		t.Fatalf("got %v", keys)
	}
}

func TestMemoryListAppendGetRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	empty, err := m.ListGet(ctx, "missing")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", empty, err)
	}

	for _, v := range []string{"a", "b", "a", "c"} {
		if err := m.ListAppend(ctx, "l", v); err != nil {
			t.Fatal(err)
		}
	}
	got, err := m.ListGet(ctx, "l")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}

	removed, err := m.ListRemove(ctx, "l", "a")
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d err=%v", removed, err)
	}
	got, _ = m.ListGet(ctx, "l")
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("got %v", got)
	}
}

func TestMemoryClockMonotonic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	c1, err := m.Clock(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := m.Clock(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c2 <= c1 {
		t.Fatalf("expected strictly increasing clock, got %d then %d", c1, c2)
	}

	c3, err := m.Clock(ctx, c2+100)
	if err != nil {
		t.Fatal(err)
	}
	if c3 != c2+100 {
		t.Fatalf("expected clock to jump to at_least, got %d", c3)
	}
}
