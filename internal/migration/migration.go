// Package migration streams bin contents between backends so that, after
// a keeper-observed join or leave, every live bin again has exactly two
// copies on its two hashed-live backends (spec.md §4.H). Grounded on the
// four near-duplicate migration.rs variants in the lab3 original source,
// consolidated here into one generic Copy used by both Join and Leave.
package migration

import (
	"context"
	"strings"

	"github.com/neogan74/tribbler/internal/keyesc"
	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/metrics"
	"github.com/neogan74/tribbler/internal/replicated"
	"github.com/neogan74/tribbler/internal/router"
)

// EventType distinguishes a join from a leave.
type EventType int

const (
	Join EventType = iota
	Leave
)

// BackendEvent is a single membership transition the keeper observed.
type BackendEvent struct {
	Type EventType
	ID   int
}

const (
	prefixTag = "PREFIX_"
	suffixTag = "SUFFIX_"
)

// Engine drives bin migration across a fixed set of backend clients keyed
// by backend id.
type Engine struct {
	clients map[int]replicated.BackendClient
	log     logger.Logger
}

// NewEngine builds an Engine over clients.
func NewEngine(clients map[int]replicated.BackendClient, log logger.Logger) *Engine {
	return &Engine{clients: clients, log: log}
}

// EnumerateBins lists every bin name with any data resident on backend id:
// scalar keys split by keyesc.SplitBinKey (at the last "::", with the bin
// name unescaped), and PREFIX_/SUFFIX_ list keys with
// the type tag stripped before the same split. Spec.md §4.H.
func (e *Engine) EnumerateBins(ctx context.Context, id int) ([]string, error) {
	client, ok := e.clients[id]
	if !ok {
		return nil, nil
	}

	seen := make(map[string]struct{})

	scalarKeys, err := client.Keys(ctx, "", "")
	if err != nil {
		return nil, err
	}
	for _, k := range scalarKeys {
		if bin, _, ok := keyesc.SplitBinKey(k); ok {
			seen[bin] = struct{}{}
		}
	}

	listKeys, err := client.ListKeys(ctx, "", "")
	if err != nil {
		return nil, err
	}
	for _, k := range listKeys {
		stripped := strings.TrimPrefix(strings.TrimPrefix(k, prefixTag), suffixTag)
		if bin, _, ok := keyesc.SplitBinKey(stripped); ok {
			seen[bin] = struct{}{}
		}
	}

	bins := make([]string, 0, len(seen))
	for bin := range seen {
		bins = append(bins, bin)
	}
	return bins, nil
}

// Copy duplicates every scalar and every PREFIX/SUFFIX list belonging to
// bin from the `from` backend to the `to` backend. Copy is idempotent:
// replaying set/list_append against an already-converged destination is a
// no-op in effect (spec.md §4.H).
func (e *Engine) Copy(ctx context.Context, bin string, from, to int) error {
	src, ok := e.clients[from]
	if !ok {
		return nil
	}
	dst, ok := e.clients[to]
	if !ok {
		return nil
	}

	prefix := keyesc.Escape(bin) + "::"
	if err := copyScalars(ctx, src, dst, prefix); err != nil {
		return err
	}
	if err := copyList(ctx, src, dst, prefixTag+prefix); err != nil {
		return err
	}
	return copyList(ctx, src, dst, suffixTag+prefix)
}

func copyScalars(ctx context.Context, src, dst replicated.BackendClient, prefix string) error {
	keys, err := src.Keys(ctx, prefix, "")
	if err != nil {
		return err
	}
	for _, k := range keys {
		v, err := src.Get(ctx, k)
		if err != nil {
			continue
		}
		_ = dst.Set(ctx, k, v)
	}
	return nil
}

func copyList(ctx context.Context, src, dst replicated.BackendClient, prefix string) error {
	keys, err := src.ListKeys(ctx, prefix, "")
	if err != nil {
		return err
	}
	for _, k := range keys {
		values, err := src.ListGet(ctx, k)
		if err != nil {
			continue
		}
		present := make(map[string]bool)
		if existing, err := dst.ListGet(ctx, k); err == nil {
			for _, v := range existing {
				present[v] = true
			}
		}
		for _, v := range values {
			if present[v] {
				continue
			}
			_ = dst.ListAppend(ctx, k, v)
		}
	}
	return nil
}

// HandleJoin migrates bins onto the newly-joined backend new. oldLive is
// the live-set immediately before new joined (excluding new); newLive
// includes it. Per-bin failures are logged and skipped; the next keeper
// tick retries.
func (e *Engine) HandleJoin(ctx context.Context, new int, oldLive, newLive []int) {
	if len(oldLive) == 0 {
		return
	}
	succ := router.Successor(oldLive, new)

	bins, err := e.EnumerateBins(ctx, succ)
	if err != nil {
		e.log.Warn("migration: failed to enumerate bins on successor", logger.Error(err))
		return
	}

	copied := 0
	for _, bin := range bins {
		primary, _, _, ok := router.RouteOver(newLive, bin)
		if !ok || primary != new {
			continue
		}
		if err := e.Copy(ctx, bin, succ, new); err != nil {
			e.log.Warn("migration: join copy failed", logger.String("bin", bin), logger.Error(err))
			continue
		}
		copied++
	}
	metrics.MigrationCopiesTotal.WithLabelValues("join", "ok").Add(float64(copied))
	metrics.MigrationBinsCopied.Observe(float64(copied))
}

// HandleLeave migrates bins to reconstitute backups lost by crashed's
// departure. oldLive includes crashed; newLive does not.
func (e *Engine) HandleLeave(ctx context.Context, crashed int, oldLive, newLive []int) {
	if len(oldLive) < 2 {
		return
	}
	pred := router.Predecessor(oldLive, crashed)
	succ := router.Successor(oldLive, crashed)
	if pred == crashed || succ == crashed {
		// only one other backend was live; nothing to reconstitute.
		return
	}
	prevPred := router.Predecessor(oldLive, pred)
	nextSucc := router.Successor(newLive, succ)

	copied := 0

	// bins whose primary is pred: re-copy pred -> succ to restore the
	// backup crashed used to hold.
	predBins, err := e.EnumerateBins(ctx, pred)
	if err != nil {
		e.log.Warn("migration: failed to enumerate bins on predecessor", logger.Error(err))
	} else {
		for _, bin := range predBins {
			primary, _, _, ok := router.RouteOver(newLive, bin)
			if !ok || primary != pred {
				continue
			}
			if inArc(oldLive, prevPred, pred, bin) {
				if err := e.Copy(ctx, bin, pred, succ); err != nil {
					e.log.Warn("migration: leave copy (pred->succ) failed", logger.String("bin", bin), logger.Error(err))
					continue
				}
				copied++
			}
		}
	}

	// bins whose primary moves to succ (formerly crashed's range):
	// re-copy succ -> next_succ to restore succ's new backup.
	succBins, err := e.EnumerateBins(ctx, succ)
	if err != nil {
		e.log.Warn("migration: failed to enumerate bins on successor", logger.Error(err))
	} else {
		for _, bin := range succBins {
			primary, _, _, ok := router.RouteOver(newLive, bin)
			if !ok || primary != succ {
				continue
			}
			if inArc(oldLive, pred, crashed, bin) {
				if err := e.Copy(ctx, bin, succ, nextSucc); err != nil {
					e.log.Warn("migration: leave copy (succ->next_succ) failed", logger.String("bin", bin), logger.Error(err))
					continue
				}
				copied++
			}
		}
	}

	metrics.MigrationCopiesTotal.WithLabelValues("leave", "ok").Add(float64(copied))
	metrics.MigrationBinsCopied.Observe(float64(copied))
}

// inArc reports whether bin's primary, computed over ring, equals high —
// a pragmatic stand-in for "hash falls in (low, high]" under the
// index-modulo-live-count routing scheme: ownership of a bin by a given
// backend as primary IS the arc membership test.
func inArc(ring []int, low, high int, bin string) bool {
	primary, _, _, ok := router.RouteOver(ring, bin)
	return ok && primary == high
}
