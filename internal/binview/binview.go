// Package binview implements the bin-scoped KV view (spec.md §4.E): a
// thin adapter that prefixes every key with escape(bin)++"::", leaving the
// underlying replicated KV contract otherwise intact.
package binview

import (
	"context"

	"github.com/neogan74/tribbler/internal/keyesc"
	"github.com/neogan74/tribbler/internal/replicated"
)

// View scopes every operation to a single bin.
type View struct {
	bin string
	kv  *replicated.KV
}

// New builds a View over kv scoped to bin.
func New(kv *replicated.KV, bin string) *View {
	return &View{bin: bin, kv: kv}
}

// Bin returns the bin name this view is scoped to.
func (v *View) Bin() string { return v.bin }

func (v *View) key(subkey string) string {
	return keyesc.Scalar(v.bin, subkey)
}

func (v *View) Get(ctx context.Context, subkey string) (string, bool, error) {
	return v.kv.Get(ctx, v.key(subkey))
}

func (v *View) Set(ctx context.Context, subkey, value string) error {
	return v.kv.Set(ctx, v.key(subkey), value)
}

// Keys returns every scalar subkey in this bin matching prefix/suffix.
func (v *View) Keys(ctx context.Context, prefix, suffix string) ([]string, error) {
	scoped, err := v.kv.Keys(ctx, v.key(prefix), suffix)
	if err != nil {
		return nil, err
	}
	return stripBinPrefix(scoped, v.bin), nil
}

func (v *View) ListGet(ctx context.Context, subkey string) ([]string, error) {
	return v.kv.ListGet(ctx, v.key(subkey))
}

func (v *View) ListAppend(ctx context.Context, subkey, value string) error {
	return v.kv.ListAppend(ctx, v.key(subkey), value)
}

func (v *View) ListRemove(ctx context.Context, subkey, value string) (int, error) {
	return v.kv.ListRemove(ctx, v.key(subkey), value)
}

func (v *View) ListKeys(ctx context.Context, prefix, suffix string) ([]string, error) {
	scoped, err := v.kv.ListKeys(ctx, v.key(prefix), suffix)
	if err != nil {
		return nil, err
	}
	return stripBinPrefix(scoped, v.bin), nil
}

// Clock advances this bin's primary clock to at least atLeast.
func (v *View) Clock(ctx context.Context, atLeast uint64) (uint64, error) {
	return v.kv.Clock(ctx, v.bin, atLeast)
}

func stripBinPrefix(keys []string, bin string) []string {
	prefix := keyesc.Escape(bin) + "::"
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k[len(prefix):])
			continue
		}
		out = append(out, k)
	}
	return out
}
