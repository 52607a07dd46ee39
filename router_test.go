package meshgate

import "testing"

// TestPowerGateNoFLOVSelfWakesStalledRouter verifies that a flit
// dimension-order-routed into an off router under PowerGateNoFLOV
// (bypass disabled by policy) does not stall forever: router.go's
// readInputs latches a wake signal against the off router itself when
// it has to enqueue an arriving flit rather than bypass it, so the
// router still wakes and eventually drains the flit (spec.md §4.6
// "routing must avoid the off router entirely" is, under noflov,
// served by a self-wake fallback rather than genuine rerouting; see
// DESIGN.md).
func TestPowerGateNoFLOVSelfWakesStalledRouter(t *testing.T) {
	cfg := NewNetworkConfig()
	cfg.K = 3
	cfg.NumVCs = 2
	cfg.VCBufSize = 4
	cfg.PowergateType = PowerGateNoFLOV
	cfg.IdleThreshold = 2
	cfg.DrainThreshold = 2
	cfg.BETThreshold = 2
	cfg.WakeupThreshold = 2
	net, err := NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	// Router 1 sits at (1,0), the middle of row 0 in a 3x3 mesh: not
	// the anchor row (y == k-1 == 2), and a packet from node 0 to node
	// 2 must dimension-order-route straight through it.
	r1, ok := net.Router(1)
	if !ok {
		t.Fatal("router 1 missing")
	}
	for c := 0; c < 20 && r1.Power() != PowerOff; c++ {
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if r1.Power() != PowerOff {
		t.Fatal("router 1 never powered off while idle")
	}

	r0, ok := net.Router(0)
	if !ok {
		t.Fatal("router 0 missing")
	}
	f := &Flit{ID: 1, PacketID: 1, Head: true, Tail: true, Src: 0, Dst: 2, VC: -1}
	if err := r0.Inject(f, net.Cycle()); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	const maxCycles = 100
	for c := 0; c < maxCycles; c++ {
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if !net.EventsOutstanding() {
			break
		}
	}
	if net.EventsOutstanding() {
		t.Fatal("flit routed through an off router under PowerGateNoFLOV should eventually drain once the router self-wakes, but it stalled")
	}
}
