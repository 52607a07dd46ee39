package meshgate

import "testing"

// TestSwitchAllocationArbitratesContendingInputs drives two packets
// that land on router 3 from different input ports in the same cycle,
// both destined for router 3's own injection port, and checks that
// the crossbar grants only one of them per cycle (spec.md §4.4 "at
// most one winner per output port per cycle") while the loser is
// retried and eventually drains too.
func TestSwitchAllocationArbitratesContendingInputs(t *testing.T) {
	cfg := NewNetworkConfig()
	cfg.K = 2
	cfg.NumVCs = 2
	cfg.VCBufSize = 4
	net, err := NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	r1, _ := net.Router(1) // (1,0): one hop north of the shared destination
	r2, _ := net.Router(2) // (0,1): one hop west of the shared destination

	fa := &Flit{ID: 1, PacketID: 1, Head: true, Tail: true, Src: 1, Dst: 3, VC: -1}
	fb := &Flit{ID: 2, PacketID: 2, Head: true, Tail: true, Src: 2, Dst: 3, VC: -1}
	if err := r1.Inject(fa, 0); err != nil {
		t.Fatalf("Inject a: %v", err)
	}
	if err := r2.Inject(fb, 0); err != nil {
		t.Fatalf("Inject b: %v", err)
	}

	const maxCycles = 50
	for c := 0; c < maxCycles; c++ {
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if !net.EventsOutstanding() {
			break
		}
	}
	if net.EventsOutstanding() {
		t.Fatal("both packets should have fully drained within the cycle budget")
	}

	r3, _ := net.Router(3)
	if r3.CrossbarConflicts() == 0 {
		t.Fatal("two packets converging on the same output port in the same cycle should have produced at least one switch-allocation conflict")
	}
}

// TestGrantSwitchRewritesVCToGrantedLane exercises grantSwitch
// directly at the router level: the flit handed to the next router's
// input queue must carry the freshly granted output VC, not whatever
// VC it happened to arrive on (pipeline.go's grantSwitch; spec.md §3
// "a flit's VC field is the lane shared between this router's output
// mirror and the next router's input queue").
func TestGrantSwitchRewritesVCToGrantedLane(t *testing.T) {
	cfg := NewNetworkConfig()
	cfg.K = 2
	cfg.NumVCs = 2
	cfg.VCBufSize = 4
	net, err := NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	r0, _ := net.Router(0)
	eastPort, _ := net.NeighborPort(0, DirEast)

	// Force the flit to arrive on VC 0 but, by taking VC 0's downstream
	// slot with a decoy reservation first, force VC allocation to grant
	// it VC 1 on the link to router 1 instead.
	r0.outState[eastPort].TakeBuffer(0, -1)

	f := &Flit{ID: 1, PacketID: 1, Head: true, Tail: true, Src: 0, Dst: 1, VC: -1}
	if err := r0.Inject(f, 0); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	var forwarded *Flit
	for c := 0; c < 10 && forwarded == nil; c++ {
		if err := r0.Evaluate(int64(c)); err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if q := r0.outQueue[eastPort]; len(q) > 0 {
			forwarded = q[0]
		}
		if err := r0.WriteOutputs(int64(c)); err != nil {
			t.Fatalf("WriteOutputs: %v", err)
		}
	}
	if forwarded == nil {
		t.Fatal("flit never reached router 0's east output queue")
	}
	if forwarded.VC != 1 {
		t.Fatalf("forwarded flit VC = %d, want 1 (VC 0 downstream was pre-taken, so VA must have granted VC 1)", forwarded.VC)
	}
}
