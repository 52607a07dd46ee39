package meshgate

import "testing"

// TestIdleRouterEventuallyPowersOff drives a bare 2x2 mesh with no
// traffic and aggressive power thresholds, and checks that a
// non-anchor router (spec.md §4.5's on -> draining -> off sequence)
// accumulates powered-off cycles while the anchor row never does
// (spec.md §9 Open Question: anchor rows computed as row == k-1).
func TestIdleRouterEventuallyPowersOff(t *testing.T) {
	cfg := NewNetworkConfig()
	cfg.K = 2
	cfg.PowergateType = PowerGateFLOV
	cfg.IdleThreshold = 3
	cfg.DrainThreshold = 2
	cfg.BETThreshold = 1000
	cfg.WakeupThreshold = 2
	net, err := NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	for c := 0; c < 200; c++ {
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	r0, _ := net.Router(0) // (0,0), non-anchor in a 2x2 mesh
	if r0.PowerOffCycles() == 0 {
		t.Fatal("an idle non-anchor router should have accumulated powered-off cycles over 200 cycles")
	}

	// Router 2 and 3 sit on row y=k-1=1, the anchor row; they must never
	// power off regardless of how long the mesh sits idle.
	for _, id := range []RouterID{2, 3} {
		r, _ := net.Router(id)
		if r.PowerOffCycles() != 0 {
			t.Fatalf("anchor router %d accumulated %d powered-off cycles, want 0", id, r.PowerOffCycles())
		}
		if r.Power() != PowerOn {
			t.Fatalf("anchor router %d power state = %v, want on", id, r.Power())
		}
	}
}

// TestPowerOffWakeGatedOnBreakEvenThreshold drives a router off and
// latches a wake signal against it immediately, then checks that it
// stays off until offTimer reaches BETThreshold (spec.md §4.5 "a wake
// signal latched at the off router advances off -> waking after
// off_timer >= break-even threshold"; spec.md §8 scenario 3).
func TestPowerOffWakeGatedOnBreakEvenThreshold(t *testing.T) {
	cfg := NewNetworkConfig()
	cfg.K = 2
	cfg.PowergateType = PowerGateFLOV
	cfg.IdleThreshold = 2
	cfg.DrainThreshold = 2
	cfg.BETThreshold = 6
	cfg.WakeupThreshold = 2
	net, err := NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	r0, _ := net.Router(0) // (0,0), non-anchor in a 2x2 mesh
	for c := 0; c < 50 && r0.Power() != PowerOff; c++ {
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if r0.Power() != PowerOff {
		t.Fatal("router never reached PowerOff within the cycle budget")
	}

	r0.signalWake(InjectionPort)
	offAt := r0.offTimer

	for i := 0; i < int(cfg.BETThreshold)-1 && r0.offTimer < cfg.BETThreshold; i++ {
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if r0.Power() != PowerOff {
			t.Fatalf("router left PowerOff at offTimer=%d (started at %d), before reaching BETThreshold=%d",
				r0.offTimer, offAt, cfg.BETThreshold)
		}
		r0.signalWake(InjectionPort) // keep the wake request alive every cycle
	}

	for c := 0; c < 20 && r0.Power() == PowerOff; c++ {
		r0.signalWake(InjectionPort)
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if r0.Power() == PowerOff {
		t.Fatal("router with a sustained wake signal and offTimer past BETThreshold should have left PowerOff")
	}
}

func TestPowerGateNoneNeverGatesOff(t *testing.T) {
	cfg := NewNetworkConfig()
	cfg.K = 2
	cfg.PowergateType = PowerGateNone
	cfg.IdleThreshold = 1
	cfg.DrainThreshold = 1
	net, err := NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	for c := 0; c < 50; c++ {
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	for _, id := range net.RouterIDs() {
		r, _ := net.Router(id)
		if r.Power() != PowerOn || r.PowerOffCycles() != 0 {
			t.Fatalf("router %d should stay on with PowerGateNone, got power=%v offCycles=%d", id, r.Power(), r.PowerOffCycles())
		}
	}
}
