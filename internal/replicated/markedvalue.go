// Package replicated implements the fault-tolerant replicated KV contract
// (spec.md §4.D): every write duplicates to a (primary, backup) pair and
// every read tolerates the unavailability of either one. Grounded on
// original_source/lab/src/lab3/fault_tolerance_client.rs, reimplemented
// idiomatically.
package replicated

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Role tags which replica originated a MarkedValue.
type Role int

const (
	// RolePrimary marks an entry appended through the authoritative
	// primary-write path; its position in the scan is never reordered.
	RolePrimary Role = iota
	// RoleBackup marks a backup-side observation; its order is only known
	// relative to other backup observations via (clock, backend_id, index).
	// No write path in this module produces it (backup copies keep
	// RolePrimary and migration copies entries verbatim), but parsing and
	// Order accept it.
	RoleBackup
)

func (r Role) String() string {
	if r == RolePrimary {
		return "P"
	}
	return "B"
}

// MarkedValue is a single list element annotated with its origin replica,
// clock, and index, enabling deterministic merge across replicas.
type MarkedValue struct {
	Role      Role
	BackendID int
	Clock     uint64
	Index     int
	Value     string
}

const fieldSep = "\x1f"

// Serialize encodes mv as the string actually stored in a backend list.
// Value is the final field and is never escaped: splitting on fieldSep
// with a bounded count recovers it intact even if it itself contains the
// separator byte.
func (mv MarkedValue) Serialize() string {
	return strings.Join([]string{
		mv.Role.String(),
		strconv.Itoa(mv.BackendID),
		strconv.FormatUint(mv.Clock, 10),
		strconv.Itoa(mv.Index),
		mv.Value,
	}, fieldSep)
}

// ParseMarkedValue decodes a string previously produced by Serialize.
func ParseMarkedValue(s string) (MarkedValue, error) {
	parts := strings.SplitN(s, fieldSep, 5)
	if len(parts) != 5 {
		return MarkedValue{}, fmt.Errorf("replicated: malformed marked value %q", s)
	}
	var role Role
	switch parts[0] {
	case "P":
		role = RolePrimary
	case "B":
		role = RoleBackup
	default:
		return MarkedValue{}, fmt.Errorf("replicated: unknown role tag %q", parts[0])
	}
	backendID, err := strconv.Atoi(parts[1])
	if err != nil {
		return MarkedValue{}, fmt.Errorf("replicated: bad backend id in %q: %w", s, err)
	}
	clock, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return MarkedValue{}, fmt.Errorf("replicated: bad clock in %q: %w", s, err)
	}
	index, err := strconv.Atoi(parts[3])
	if err != nil {
		return MarkedValue{}, fmt.Errorf("replicated: bad index in %q: %w", s, err)
	}
	return MarkedValue{Role: role, BackendID: backendID, Clock: clock, Index: index, Value: parts[4]}, nil
}

// less orders two MarkedValues by (clock, backend_id, index), the tuple
// the scratch-buffer flush sorts by.
func less(a, b MarkedValue) bool {
	if a.Clock != b.Clock {
		return a.Clock < b.Clock
	}
	if a.BackendID != b.BackendID {
		return a.BackendID < b.BackendID
	}
	return a.Index < b.Index
}

// dedupKey identifies a MarkedValue for scratch-buffer dedup: two entries
// from the same origin event compare equal on (role, backend_id, clock,
// index), regardless of value, but in practice the value is identical too.
type dedupKey struct {
	role      Role
	backendID int
	clock     uint64
	index     int
}

func keyOf(mv MarkedValue) dedupKey {
	return dedupKey{mv.Role, mv.BackendID, mv.Clock, mv.Index}
}

// Order runs the consistent ordering procedure over a canonical sequence
// of serialized MarkedValues (as produced by Canonical) and returns the
// user-visible values in final order.
//
// Scan left-to-right, maintaining a scratch buffer of backup-side
// observations. A Primary entry flushes the scratch buffer (sorted by
// (clock, backend_id, index), deduped) and is then emitted directly. A
// Backup entry is pushed onto the scratch buffer, first flushing it if
// non-empty and its current occupants come from a different backend_id.
func Order(canonical []string) ([]string, error) {
	var out []string
	var scratch []MarkedValue

	flush := func() {
		if len(scratch) == 0 {
			return
		}
		sort.Slice(scratch, func(i, j int) bool { return less(scratch[i], scratch[j]) })
		seen := make(map[dedupKey]bool, len(scratch))
		for _, mv := range scratch {
			k := keyOf(mv)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, mv.Value)
		}
		scratch = scratch[:0]
	}

	for _, raw := range canonical {
		mv, err := ParseMarkedValue(raw)
		if err != nil {
			return nil, err
		}
		if mv.Role == RolePrimary {
			flush()
			out = append(out, mv.Value)
			continue
		}
		if len(scratch) > 0 && scratch[0].BackendID != mv.BackendID {
			flush()
		}
		scratch = append(scratch, mv)
	}
	flush()
	return out, nil
}
