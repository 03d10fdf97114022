// Package router computes which backends host a given bin, given the
// keeper's current live-set of backend indices.
package router

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a stable, process-independent hash of name. Any client given
// the same live-set reaches the same replicas for name.
func Hash(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Router holds the keeper's current live-set and answers routing queries
// against it. Safe for concurrent use: reads take a snapshot under a
// read lock, mutations (from the keeper alone) take the write lock —
// grounded on the teacher's read-mostly live-set protection pattern
// (internal/store/kv.go, internal/healthcheck/manager.go).
type Router struct {
	mu   sync.RWMutex
	live []int // sorted ascending backend indices believed alive
}

// New creates a Router over the given initial live-set.
func New(live []int) *Router {
	r := &Router{}
	r.Update(live)
	return r
}

// Update replaces the live-set. Only the keeper calls this.
func (r *Router) Update(live []int) {
	cp := make([]int, len(live))
	copy(cp, live)
	sort.Ints(cp)
	r.mu.Lock()
	r.live = cp
	r.mu.Unlock()
}

// Snapshot returns a copy of the current live-set.
func (r *Router) Snapshot() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]int, len(r.live))
	copy(cp, r.live)
	return cp
}

// Route computes the (primary, backup) backend indices for bin. ok is
// false if the live-set is empty. backupOK is false if there is only one
// live backend, so no backup exists.
func (r *Router) Route(bin string) (primary, backup int, backupOK, ok bool) {
	r.mu.RLock()
	live := r.live
	r.mu.RUnlock()
	return RouteOver(live, bin)
}

// RouteOver computes the (primary, backup) pair for bin against an
// explicit, already-sorted live-set, without touching a Router. The
// migration engine uses this to recompute routing against a hypothetical
// live-set (before/after a join or leave) without mutating shared state.
func RouteOver(live []int, bin string) (primary, backup int, backupOK, ok bool) {
	n := len(live)
	if n == 0 {
		return 0, 0, false, false
	}
	h := int(Hash(bin) % uint64(n))
	primary = live[h]
	if n == 1 {
		return primary, 0, false, true
	}
	backup = live[(h+1)%n]
	return primary, backup, true, true
}

// Successor returns the smallest live id strictly greater than id,
// wrapping to the smallest overall if id is greater than every live id.
// live must be sorted ascending and non-empty; id need not be a member.
func Successor(live []int, id int) int {
	for _, x := range live {
		if x > id {
			return x
		}
	}
	return live[0]
}

// Predecessor returns the largest live id strictly less than id,
// wrapping to the largest overall if id is smaller than every live id.
// live must be sorted ascending and non-empty; id need not be a member.
func Predecessor(live []int, id int) int {
	for i := len(live) - 1; i >= 0; i-- {
		if live[i] < id {
			return live[i]
		}
	}
	return live[len(live)-1]
}
