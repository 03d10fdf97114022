package router

import "testing"

func TestRouteDeterministic(t *testing.T) {
	r1 := New([]int{0, 1, 2, 3})
	r2 := New([]int{0, 1, 2, 3})

	for _, bin := range []string{"alice", "bob", "carol", "dave::eve"} {
		p1, b1, bok1, ok1 := r1.Route(bin)
		p2, b2, bok2, ok2 := r2.Route(bin)
		if p1 != p2 || b1 != b2 || bok1 != bok2 || ok1 != ok2 {
			t.Fatalf("bin %q: router disagreement (%d,%d,%v,%v) vs (%d,%d,%v,%v)",
				bin, p1, b1, bok1, ok1, p2, b2, bok2, ok2)
		}
	}
}

func TestRouteSingleBackendNoBackup(t *testing.T) {
	r := New([]int{5})
	primary, _, backupOK, ok := r.Route("alice")
	if !ok || backupOK || primary != 5 {
		t.Fatalf("got primary=%d backupOK=%v ok=%v", primary, backupOK, ok)
	}
}

func TestRouteEmptyLiveSet(t *testing.T) {
	r := New(nil)
	if _, _, _, ok := r.Route("alice"); ok {
		t.Fatal("expected ok=false for empty live-set")
	}
}

func TestRoutePrimaryBackupAdjacent(t *testing.T) {
	r := New([]int{2, 4, 6})
	primary, backup, backupOK, ok := r.Route("alice")
	if !ok || !backupOK {
		t.Fatal("expected a route")
	}
	live := r.Snapshot()
	var pi int
	for i, idx := range live {
		if idx == primary {
			pi = i
		}
	}
	wantBackup := live[(pi+1)%len(live)]
	if backup != wantBackup {
		t.Fatalf("backup %d, want %d", backup, wantBackup)
	}
}

func TestSuccessorPredecessorWrap(t *testing.T) {
	live := []int{2, 4, 6}

	if got := Successor(live, 4); got != 6 {
		t.Fatalf("Successor(4) = %d, want 6", got)
	}
	if got := Successor(live, 6); got != 2 {
		t.Fatalf("Successor(6) = %d, want 2 (wrap)", got)
	}
	if got := Successor(live, 5); got != 6 {
		t.Fatalf("Successor(5) = %d, want 6", got)
	}

	if got := Predecessor(live, 4); got != 2 {
		t.Fatalf("Predecessor(4) = %d, want 2", got)
	}
	if got := Predecessor(live, 2); got != 6 {
		t.Fatalf("Predecessor(2) = %d, want 6 (wrap)", got)
	}
	if got := Predecessor(live, 3); got != 2 {
		t.Fatalf("Predecessor(3) = %d, want 2", got)
	}
}

func TestRouteOverMatchesRoute(t *testing.T) {
	live := []int{1, 3, 5, 7}
	r := New(live)
	for _, bin := range []string{"alice", "bob", "carol"} {
		p1, b1, bok1, ok1 := r.Route(bin)
		p2, b2, bok2, ok2 := RouteOver(live, bin)
		if p1 != p2 || b1 != b2 || bok1 != bok2 || ok1 != ok2 {
			t.Fatalf("RouteOver disagrees with Route for %q", bin)
		}
	}
}
