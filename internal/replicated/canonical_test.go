package replicated

import "testing"

func eqStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCanonicalEmptySuffixReturnsFullPrefix(t *testing.T) {
	prefix := []string{"a", "b", "c"}
	got := Canonical(prefix, nil)
	if !eqStrings(got, prefix) {
		t.Fatalf("got %v want %v", got, prefix)
	}
}

func TestCanonicalCutsBeforeBridgingElement(t *testing.T) {
	prefix := []string{"a", "b", "c", "d"}
	suffix := []string{"c", "e"}
	got := Canonical(prefix, suffix)
	want := []string{"a", "b", "c", "e"}
	if !eqStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCanonicalNoMatchKeepsFullPrefix(t *testing.T) {
	prefix := []string{"a", "b"}
	suffix := []string{"z"}
	got := Canonical(prefix, suffix)
	want := []string{"a", "b", "z"}
	if !eqStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
