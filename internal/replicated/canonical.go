package replicated

// noneSentinel is the distinguished "none" marker used when the SUFFIX
// list is empty: no PREFIX element ever equals it, so the cut is a no-op
// and the canonical sequence is exactly PREFIX.
const noneSentinel = "\x00none\x00"

// Canonical computes the canonical sequence for one replica's PREFIX and
// SUFFIX lists, per spec.md §4.D:
//
//	Let s0 = first(S) if S non-empty, else the none sentinel. The
//	canonical sequence is (P cut before the first element equal to s0)
//	concatenated with S.
//
// This lets a replica that has received the primary's replay-prefix (via
// migration) concatenate it with its own locally-received suffix without
// double-counting the bridging element.
func Canonical(prefix, suffix []string) []string {
	s0 := noneSentinel
	if len(suffix) > 0 {
		s0 = suffix[0]
	}

	cut := len(prefix)
	for i, p := range prefix {
		if p == s0 {
			cut = i
			break
		}
	}

	out := make([]string, 0, cut+len(suffix))
	out = append(out, prefix[:cut]...)
	out = append(out, suffix...)
	return out
}
