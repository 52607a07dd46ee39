package meshgate

import "testing"

func TestFlovOppositePortIsPhysicalOpposite(t *testing.T) {
	net := newTestNetwork(t, 3)
	// Router 4 sits at (1,1) in a 3x3 mesh: it has all four directions.
	r, ok := net.Router(4)
	if !ok {
		t.Fatal("router 4 missing")
	}
	eastPort, _ := net.NeighborPort(4, DirEast)
	westPort, _ := net.NeighborPort(4, DirWest)

	out, ok := r.flovOppositePort(eastPort)
	if !ok || out != westPort {
		t.Fatalf("flovOppositePort(east) = (%v,%v), want (%v,true)", out, ok, westPort)
	}
}

func TestFlovOppositePortAtMeshEdgeHasNone(t *testing.T) {
	net := newTestNetwork(t, 2)
	r, ok := net.Router(0) // (0,0): only east and south exist
	if !ok {
		t.Fatal("router 0 missing")
	}
	eastPort, _ := net.NeighborPort(0, DirEast)
	if _, ok := r.flovOppositePort(eastPort); ok {
		t.Fatal("router 0 has no west neighbor, so bypassing an east arrival has no opposite port")
	}
}

func TestFlovForwardFlitPreservesVC(t *testing.T) {
	net := newTestNetwork(t, 3)
	r, ok := net.Router(4) // (1,1): has all four mesh ports
	if !ok {
		t.Fatal("router 4 missing")
	}
	eastPort, _ := net.NeighborPort(4, DirEast)
	westPort, _ := net.NeighborPort(4, DirWest)

	f := &Flit{ID: 1, Head: true, Tail: true, VC: 1}
	r.flovForwardFlit(eastPort, f, 0)

	if f.VC != 1 {
		t.Fatalf("FLOV bypass must not reassign VC (no VC allocation happens while bypassing), got %d, want 1", f.VC)
	}
	if f.FLOVHops != 1 {
		t.Fatalf("FLOVHops = %d, want 1", f.FLOVHops)
	}
	q := r.outQueue[westPort]
	if len(q) != 1 || q[0] != f {
		t.Fatalf("expected the flit staged on the opposite (west) output queue, got %v", q)
	}
}

func TestFlovForwardFlitWithNoOppositePortSignalsWake(t *testing.T) {
	net := newTestNetwork(t, 2)
	r, ok := net.Router(0) // (0,0): a mesh corner
	if !ok {
		t.Fatal("router 0 missing")
	}
	eastPort, _ := net.NeighborPort(0, DirEast)
	f := &Flit{ID: 1, Head: true, Tail: true, VC: 0}
	r.flovForwardFlit(eastPort, f, 0)

	if !r.wakeSignaled[eastPort] {
		t.Fatal("with no opposite port to bypass through, the router should signal itself to wake")
	}
}
