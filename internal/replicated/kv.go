package replicated

import (
	"context"
	"errors"
	"fmt"

	"github.com/neogan74/tribbler/internal/backend"
	"github.com/neogan74/tribbler/internal/keyesc"
	"github.com/neogan74/tribbler/internal/router"
	"github.com/neogan74/tribbler/internal/trib"
)

// BackendClient is the subset of backend.Client's surface the replicated
// KV depends on; declared locally so tests can substitute a fake.
type BackendClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Keys(ctx context.Context, prefix, suffix string) ([]string, error)
	ListGet(ctx context.Context, key string) ([]string, error)
	ListAppend(ctx context.Context, key, value string) error
	ListRemove(ctx context.Context, key, value string) (int, error)
	ListKeys(ctx context.Context, prefix, suffix string) ([]string, error)
	Clock(ctx context.Context, atLeast uint64) (uint64, error)
}

// KV is the replicated fault-tolerant KV (spec.md §4.D): it duplicates
// every write to the (primary, backup) pair the router names for a bin
// and tolerates either one being unreachable.
type KV struct {
	router  *router.Router
	clients map[int]BackendClient
}

// New builds a KV over router, dispatching to clients by backend id.
func New(r *router.Router, clients map[int]BackendClient) *KV {
	return &KV{router: r, clients: clients}
}

func (kv *KV) client(id int) (BackendClient, error) {
	c, ok := kv.clients[id]
	if !ok {
		return nil, fmt.Errorf("replicated: no client configured for backend %d", id)
	}
	return c, nil
}

// route resolves the bin embedded in key (or the bin itself, for Clock) to
// its primary/backup backend clients.
func (kv *KV) route(bin string) (primary, backup BackendClient, primaryID, backupID int, hasBackup bool, err error) {
	pID, bID, bOK, ok := kv.router.Route(bin)
	if !ok {
		return nil, nil, 0, 0, false, trib.New(trib.KindRPCError, "no live backends for bin %q", bin)
	}
	p, err := kv.client(pID)
	if err != nil {
		return nil, nil, 0, 0, false, trib.Wrap(trib.KindRPCError, err)
	}
	if !bOK {
		return p, nil, pID, 0, false, nil
	}
	b, err := kv.client(bID)
	if err != nil {
		return p, nil, pID, 0, false, nil
	}
	return p, b, pID, bID, true, nil
}

func binOfKey(key string) (string, error) {
	bin, _, ok := keyesc.SplitBinKey(key)
	if !ok {
		return "", fmt.Errorf("replicated: key %q has no bin separator", key)
	}
	return bin, nil
}

func bothFailed(op string, primaryErr, backupErr error) error {
	return trib.New(trib.KindRPCError, "%s: both replicas failed: primary=%v backup=%v", op, primaryErr, backupErr)
}

// Get tries the primary; on transport error or absence, tries the backup
// and returns its answer. Returns ok=false with no error when both
// replicas agree the key is absent.
func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	bin, err := binOfKey(key)
	if err != nil {
		return "", false, trib.Wrap(trib.KindUnknown, err)
	}
	primary, backup, _, _, hasBackup, err := kv.route(bin)
	if err != nil {
		return "", false, err
	}

	pVal, pErr := primary.Get(ctx, key)
	if pErr == nil {
		return pVal, true, nil
	}
	if !hasBackup {
		if errors.Is(pErr, backend.ErrNotFound) {
			return "", false, nil
		}
		return "", false, trib.Wrap(trib.KindRPCError, pErr)
	}

	bVal, bErr := backup.Get(ctx, key)
	if bErr == nil {
		return bVal, true, nil
	}
	if errors.Is(pErr, backend.ErrNotFound) && errors.Is(bErr, backend.ErrNotFound) {
		return "", false, nil
	}
	return "", false, bothFailed("get", pErr, bErr)
}

// Set issues on the primary and, best-effort, on the backup. Returns the
// primary's outcome, or the backup's if the primary failed.
func (kv *KV) Set(ctx context.Context, key, value string) error {
	bin, err := binOfKey(key)
	if err != nil {
		return trib.Wrap(trib.KindUnknown, err)
	}
	primary, backup, _, _, hasBackup, err := kv.route(bin)
	if err != nil {
		return err
	}

	pErr := primary.Set(ctx, key, value)
	var bErr error
	if hasBackup {
		bErr = backup.Set(ctx, key, value)
	}
	if pErr == nil {
		return nil
	}
	if hasBackup && bErr == nil {
		return nil
	}
	if !hasBackup {
		return trib.Wrap(trib.KindRPCError, pErr)
	}
	return bothFailed("set", pErr, bErr)
}

// Keys issues on both replicas and returns the longer answer (superset
// wins — captures mid-migration asymmetry).
func (kv *KV) Keys(ctx context.Context, prefix, suffix string) ([]string, error) {
	bin, err := binOfKey(prefix)
	if err != nil {
		return nil, trib.Wrap(trib.KindUnknown, err)
	}
	primary, backup, _, _, hasBackup, err := kv.route(bin)
	if err != nil {
		return nil, err
	}

	pKeys, pErr := primary.Keys(ctx, prefix, suffix)
	var bKeys []string
	bErr := errNoBackup
	if hasBackup {
		bKeys, bErr = backup.Keys(ctx, prefix, suffix)
	}
	if pErr != nil && bErr != nil {
		return nil, bothFailed("keys", pErr, bErr)
	}
	if pErr != nil {
		return bKeys, nil
	}
	if bErr != nil || len(pKeys) >= len(bKeys) {
		return pKeys, nil
	}
	return bKeys, nil
}

// Clock advances the bin's primary clock to at least atLeast and relays
// the same floor to the backup so both advance; returns the primary's new
// value, falling back to the backup's on primary error.
func (kv *KV) Clock(ctx context.Context, bin string, atLeast uint64) (uint64, error) {
	primary, backup, _, _, hasBackup, err := kv.route(bin)
	if err != nil {
		return 0, err
	}

	pVal, pErr := primary.Clock(ctx, atLeast)
	if hasBackup {
		_, _ = backup.Clock(ctx, atLeast)
	}
	if pErr == nil {
		return pVal, nil
	}
	if !hasBackup {
		return 0, trib.Wrap(trib.KindRPCError, pErr)
	}
	bVal, bErr := backup.Clock(ctx, atLeast)
	if bErr == nil {
		return bVal, nil
	}
	return 0, bothFailed("clock", pErr, bErr)
}
