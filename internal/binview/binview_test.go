package binview

import (
	"context"
	"testing"

	"github.com/neogan74/tribbler/internal/replicated"
	"github.com/neogan74/tribbler/internal/router"
)

func newTestKV(t *testing.T) *replicated.KV {
	t.Helper()
	// binview only needs a KV talking to some backends; reuse the
	// replicated package's own fake via a tiny local stand-in would
	// require exporting it, so route against a single in-process memory
	// backend through the real backend.Client is unnecessary here: the
	// replicated KV test suite already covers routing/merge behaviour.
	r := router.New([]int{0})
	return replicated.New(r, map[int]replicated.BackendClient{0: newMemoryBackendClient()})
}

func TestViewScopesKeysToBin(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)
	alice := New(kv, "alice")
	bob := New(kv, "bob")

	if err := alice.Set(ctx, "signed_up", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := bob.Set(ctx, "signed_up", "bob"); err != nil {
		t.Fatal(err)
	}

	v, ok, err := alice.Get(ctx, "signed_up")
	if err != nil || !ok || v != "alice" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
	v, ok, err = bob.Get(ctx, "signed_up")
	if err != nil || !ok || v != "bob" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
}

func TestViewListOperationsScoped(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)
	alice := New(kv, "alice")

	for _, v := range []string{"t1", "t2"} {
		if err := alice.ListAppend(ctx, "tribs", v); err != nil {
			t.Fatal(err)
		}
	}
	got, err := alice.ListGet(ctx, "tribs")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Fatalf("got %v", got)
	}
}
