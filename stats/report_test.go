package stats

import (
	"testing"

	"github.com/onchipmesh/meshgate"
)

func TestBuildReportShapeWithNoTraffic(t *testing.T) {
	cfg := meshgate.NewNetworkConfig()
	cfg.K = 2
	net, err := meshgate.NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	src := meshgate.NewSyntheticSource(0, meshgate.NeighborPattern, cfg.K, cfg.N, 1)
	tm := meshgate.NewTrafficManager(net, cfg, src, nil)

	for i := 0; i < 5; i++ {
		tm.Step(net.Cycle())
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	rep := Build(net, tm, 0, net.Cycle())
	if rep.Cycles != net.Cycle() {
		t.Fatalf("Cycles = %d, want %d", rep.Cycles, net.Cycle())
	}
	if len(rep.Routers) != 4 {
		t.Fatalf("len(Routers) = %d, want 4", len(rep.Routers))
	}
	// No traffic was generated (rate 0), so the latency summary should
	// stay at its zero value rather than division-by-zero garbage.
	if rep.PacketLatency != (LatencyReport{}) {
		t.Fatalf("PacketLatency = %+v, want zero value with no ejected packets", rep.PacketLatency)
	}
}

func TestBuildReportAggregatesEjectedPackets(t *testing.T) {
	cfg := meshgate.NewNetworkConfig()
	cfg.K = 2
	net, err := meshgate.NewNetwork(cfg)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	src := meshgate.NewSyntheticSource(1.0, meshgate.NeighborPattern, cfg.K, cfg.N, 7)
	tm := meshgate.NewTrafficManager(net, cfg, src, nil)

	for i := 0; i < 200; i++ {
		tm.Step(net.Cycle())
		if err := net.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	rep := Build(net, tm, 0, net.Cycle())
	if rep.PacketLatency.Average <= 0 {
		t.Fatalf("expected a positive average latency once packets have been ejected, got %v", rep.PacketLatency.Average)
	}
	if rep.HopsAverage <= 0 {
		t.Fatalf("expected a positive average hop count, got %v", rep.HopsAverage)
	}
}
