package replicated

import (
	"context"
	"strings"

	"github.com/neogan74/tribbler/internal/trib"
)

const (
	prefixTag = "PREFIX_"
	suffixTag = "SUFFIX_"
)

func physicalPrefixKey(key string) string { return prefixTag + key }
func physicalSuffixKey(key string) string { return suffixTag + key }

// rawLists fetches a replica's raw PREFIX and SUFFIX backend lists for the
// logical list key.
func rawLists(ctx context.Context, c BackendClient, key string) (prefix, suffix []string, err error) {
	prefix, err = c.ListGet(ctx, physicalPrefixKey(key))
	if err != nil {
		return nil, nil, err
	}
	suffix, err = c.ListGet(ctx, physicalSuffixKey(key))
	if err != nil {
		return nil, nil, err
	}
	return prefix, suffix, nil
}

// ListGet returns the merged, ordered values of the list at key.
func (kv *KV) ListGet(ctx context.Context, key string) ([]string, error) {
	bin, err := binOfKey(key)
	if err != nil {
		return nil, trib.Wrap(trib.KindUnknown, err)
	}
	primary, backup, _, _, hasBackup, err := kv.route(bin)
	if err != nil {
		return nil, err
	}

	pPrefix, pSuffix, pErr := rawLists(ctx, primary, key)
	var bPrefix, bSuffix []string
	var bErr error = errNoBackup
	if hasBackup {
		bPrefix, bSuffix, bErr = rawLists(ctx, backup, key)
	}
	if pErr != nil && bErr != nil {
		return nil, bothFailed("list_get", pErr, bErr)
	}

	var canonical []string
	switch {
	case pErr != nil:
		canonical = Canonical(bPrefix, bSuffix)
	case bErr != nil:
		canonical = Canonical(pPrefix, pSuffix)
	default:
		pc := Canonical(pPrefix, pSuffix)
		bc := Canonical(bPrefix, bSuffix)
		if len(bc) > len(pc) {
			canonical = bc
		} else {
			canonical = pc
		}
	}

	return Order(canonical)
}

var errNoBackup = trib.New(trib.KindUnknown, "no backup configured")

// ListAppend appends value to the list at key, duplicating to the backup
// best-effort.
func (kv *KV) ListAppend(ctx context.Context, key, value string) error {
	bin, err := binOfKey(key)
	if err != nil {
		return trib.Wrap(trib.KindUnknown, err)
	}
	primary, backup, primaryID, backupID, hasBackup, err := kv.route(bin)
	if err != nil {
		return err
	}

	if hasBackup {
		pPrefix, pSuffix, pErr := rawLists(ctx, primary, key)
		bPrefix, bSuffix, bErr := rawLists(ctx, backup, key)
		if pErr == nil && bErr == nil {
			if len(Canonical(bPrefix, bSuffix)) > len(Canonical(pPrefix, pSuffix)) {
				primary, backup = backup, primary
				primaryID, backupID = backupID, primaryID
			}
		}
	}

	t, err := primary.Clock(ctx, 0)
	if err != nil {
		return trib.Wrap(trib.KindRPCError, err)
	}

	mv := MarkedValue{Role: RolePrimary, BackendID: primaryID, Clock: t, Index: 0, Value: value}
	serialized := mv.Serialize()
	if err := primary.ListAppend(ctx, physicalSuffixKey(key), serialized); err != nil {
		return trib.Wrap(trib.KindRPCError, err)
	}

	if !hasBackup {
		return nil
	}

	suffixList, err := primary.ListGet(ctx, physicalSuffixKey(key))
	if err != nil {
		return nil // best-effort backup replication only; primary write already succeeded
	}
	idx := lastIndexOf(suffixList, serialized)
	mv2 := mv
	mv2.Index = idx
	_ = backup.ListAppend(ctx, physicalSuffixKey(key), mv2.Serialize())
	return nil
}

func lastIndexOf(list []string, v string) int {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == v {
			return i
		}
	}
	return -1
}

// ListRemove removes every entry whose value equals v from the list at
// key, on both replicas, and returns the larger of the two per-replica
// removal counts (covers partial-migration asymmetry).
func (kv *KV) ListRemove(ctx context.Context, key, value string) (int, error) {
	bin, err := binOfKey(key)
	if err != nil {
		return 0, trib.Wrap(trib.KindUnknown, err)
	}
	primary, backup, _, _, hasBackup, err := kv.route(bin)
	if err != nil {
		return 0, err
	}

	pPrefix, pSuffix, pErr := rawLists(ctx, primary, key)
	var bPrefix, bSuffix []string
	var bErr error = errNoBackup
	if hasBackup {
		bPrefix, bSuffix, bErr = rawLists(ctx, backup, key)
	}
	if pErr != nil && bErr != nil {
		return 0, bothFailed("list_remove", pErr, bErr)
	}

	var canonical []string
	if pErr == nil {
		canonical = Canonical(pPrefix, pSuffix)
	}
	if bErr == nil {
		canonical = append(canonical, Canonical(bPrefix, bSuffix)...)
	}

	var matches []string
	for _, raw := range canonical {
		mv, err := ParseMarkedValue(raw)
		if err != nil {
			continue
		}
		if mv.Value == value {
			matches = append(matches, raw)
		}
	}

	var primaryRemoved, backupRemoved int
	for _, s := range matches {
		if n, err := primary.ListRemove(ctx, physicalPrefixKey(key), s); err == nil {
			primaryRemoved += n
		}
		if n, err := primary.ListRemove(ctx, physicalSuffixKey(key), s); err == nil {
			primaryRemoved += n
		}
		if hasBackup {
			if n, err := backup.ListRemove(ctx, physicalPrefixKey(key), s); err == nil {
				backupRemoved += n
			}
			if n, err := backup.ListRemove(ctx, physicalSuffixKey(key), s); err == nil {
				backupRemoved += n
			}
		}
	}

	if backupRemoved > primaryRemoved {
		return backupRemoved, nil
	}
	return primaryRemoved, nil
}

// ListKeys unions PREFIX_ and SUFFIX_ list keys matching prefix/suffix on
// both replicas, stripping the type tag before returning.
func (kv *KV) ListKeys(ctx context.Context, prefix, suffix string) ([]string, error) {
	bin, err := binOfKey(prefix)
	if err != nil {
		return nil, trib.Wrap(trib.KindUnknown, err)
	}
	primary, backup, _, _, hasBackup, err := kv.route(bin)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	add := func(keys []string, tag string) {
		for _, k := range keys {
			logical := strings.TrimPrefix(k, tag)
			if !seen[logical] {
				seen[logical] = true
				out = append(out, logical)
			}
		}
	}

	collect := func(c BackendClient) {
		if pk, err := c.ListKeys(ctx, physicalPrefixKey(prefix), suffix); err == nil {
			add(pk, prefixTag)
		}
		if sk, err := c.ListKeys(ctx, physicalSuffixKey(prefix), suffix); err == nil {
			add(sk, suffixTag)
		}
	}

	collect(primary)
	if hasBackup {
		collect(backup)
	}
	return out, nil
}
