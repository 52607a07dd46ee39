package meshgate

//
// NetworkConfig: construction-time options for [NewNetwork] (spec.md
// §6). Mirrors the teacher's plain-struct-with-defaults-constructor
// convention (LinkConfig/DNSConfig in ooni-netem).
//

// PowerGateType selects the FLOV bypass policy for a Network (spec.md
// §4.6, §6).
type PowerGateType int

const (
	// PowerGateNone disables power gating entirely; every router
	// stays on.
	PowerGateNone PowerGateType = iota

	// PowerGateFLOV is all-ports FLOV bypass (gflov).
	PowerGateFLOV

	// PowerGateRowFLOV is selected by rflov. It gates and bypasses
	// exactly like PowerGateFLOV: an off router bypasses arrivals on
	// every mesh port, not only on its row ports.
	PowerGateRowFLOV

	// PowerGateNoFLOV gates routers but disables bypass (noflov).
	// Routing does not avoid off routers: a flit routed into an off or
	// waking router is queued in its input buffer and the router
	// latches a wake for itself (router.go readInputs).
	PowerGateNoFLOV

	// PowerGateNoRD is the one-slot-latch ring-overlay bypass variant
	// (spec.md §4.6 "NoRD variant").
	PowerGateNoRD
)

func (t PowerGateType) String() string {
	switch t {
	case PowerGateNone:
		return "none"
	case PowerGateFLOV:
		return "flov"
	case PowerGateRowFLOV:
		return "rflov"
	case PowerGateNoFLOV:
		return "noflov"
	case PowerGateNoRD:
		return "nord"
	default:
		return "unknown"
	}
}

// AllocatorKind selects an allocator implementation for VC/switch
// allocation (spec.md §6: vc_allocator, sw_allocator, spec_sw_allocator).
type AllocatorKind int

const (
	AllocatorRoundRobin AllocatorKind = iota
	AllocatorSeparable
)

// NetworkConfig holds every construction-time option recognized by
// [NewNetwork] (spec.md §6 table). Use [NewNetworkConfig] to obtain a
// populated, internally-consistent default that [NewNetwork] can use
// as-is for a small mesh.
type NetworkConfig struct {
	// K is the mesh side; N is the dimension (N=2 for the 2-D mesh
	// this package targets).
	K int
	N int

	// NumVCs is the number of virtual channels per physical channel.
	NumVCs int

	// VCBufSize is the number of flit slots per VC.
	VCBufSize int

	// PacketSize is the number of flits (one head, PacketSize-2 bodies,
	// one tail) the traffic manager generates per synthetic packet
	// (spec.md §4.7 item 3 "generates size flits"). 1 means every
	// packet is a single head-and-tail flit.
	PacketSize int

	// RoutingFunction names one of the registered routing functions
	// (see [RegisterRoutingFunc]); defaults to "dor_xy".
	RoutingFunction string

	// WaitForTailCredit retains a VC's reservation until the tail's
	// credit returns rather than releasing eagerly.
	WaitForTailCredit bool

	// HoldSwitchForPacket enables switch holding: a granted
	// (input, output) pair persists across cycles for the remainder
	// of a packet (spec.md §4.4).
	HoldSwitchForPacket bool

	// Speculative names speculative switch allocation. Nothing reads
	// it: the pipeline (pipeline.go) runs no speculative pass, so this
	// field and the three Spec* filters below have no effect.
	Speculative bool

	// SpecCheckElig filters speculative SA requests by VC
	// availability.
	SpecCheckElig bool

	// SpecCheckCred filters speculative SA requests by downstream
	// credit (not full).
	SpecCheckCred bool

	// SpecMaskByReqs discards a speculative grant on an output that
	// also has a non-speculative request, regardless of allocator
	// outcome.
	SpecMaskByReqs bool

	// VCAllocator, SWAllocator, SpecSWAllocator name allocator kinds
	// for VA, SA, and speculative SA respectively. Nothing reads them:
	// every Router builds the same Allocator (allocator.go) for all three.
	VCAllocator     AllocatorKind
	SWAllocator     AllocatorKind
	SpecSWAllocator AllocatorKind

	// InputSpeedup, OutputSpeedup, InternalSpeedup are crossbar radix
	// multipliers; 1 means no speedup. Not wired: the crossbar
	// allocator (allocator.go) always resolves one grant per input and
	// per output per cycle. Modeling speedup correctly needs a
	// multi-slot crossbar allocator, not a one-line change, so it is
	// disclosed here rather than implemented; see DESIGN.md.
	InputSpeedup    int
	OutputSpeedup   int
	InternalSpeedup int

	// RoutingDelay, VCAllocDelay, SWAllocDelay, STPrepareDelay,
	// STFinalDelay, CreditDelay are per-stage pipeline delays in
	// cycles. Only STFinalDelay (the flit-traversal channel delay) and
	// CreditDelay are actually wired, into the flit/credit channels
	// network.go constructs between routers. RoutingDelay, VCAllocDelay,
	// SWAllocDelay and STPrepareDelay are read nowhere: the pipeline
	// (pipeline.go) runs RC, VA, SA and ST back to back within one
	// cycle, with no per-stage latency, so these four have no effect. Disclosed rather than silently dropped; see
	// DESIGN.md.
	RoutingDelay   int
	VCAllocDelay   int
	SWAllocDelay   int
	STPrepareDelay int
	STFinalDelay   int
	CreditDelay    int

	// PowergateType selects the bypass policy (spec.md §4.6, §6).
	PowergateType PowerGateType

	// IdleThreshold, DrainThreshold, BETThreshold, WakeupThreshold
	// are the power-state timers (spec.md §4.5).
	IdleThreshold   int64
	DrainThreshold  int64
	BETThreshold    int64
	WakeupThreshold int64

	// HighWatermark, LowWatermark, ZeroLoadLatency, FLOVMonitorEpoch
	// drive the adaptive power-gating policy vote (spec.md §4.7 item
	// 6).
	HighWatermark    float64
	LowWatermark     float64
	ZeroLoadLatency  float64
	FLOVMonitorEpoch int64

	// VCAllocWatchdogCycles is the 300-cycle VA/SA watchdog, made
	// configurable per spec.md §9's Open Question (the original
	// hard-codes 300).
	VCAllocWatchdogCycles int64

	// NodeRouterMap maps a node identifier to the router identifier
	// it is attached to. If nil, [NewNetwork] assumes one node per
	// router with matching indices.
	NodeRouterMap map[int]RouterID

	// Logger is the logger used by the network and all of its
	// routers; defaults to a no-op logger if nil.
	Logger Logger

	// Watcher, if set, receives a [WatchEvent] for every power
	// transition any router makes (spec.md §6 "watch/trace output").
	// Injection/ejection tracing is attached separately via
	// [TrafficManager.AttachWatcher].
	Watcher Watcher
}

// NewNetworkConfig returns a NetworkConfig with the same defaults
// booksim-style simulators ship for a small single-VC-class mesh: a
// 4x4 2-D mesh, 2 VCs of 4 flits each, dimension-order XY routing, no
// speculation, no power gating.
func NewNetworkConfig() *NetworkConfig {
	return &NetworkConfig{
		K:                     4,
		N:                     2,
		NumVCs:                2,
		VCBufSize:             4,
		PacketSize:            1,
		RoutingFunction:       "dor_xy",
		WaitForTailCredit:     false,
		HoldSwitchForPacket:   false,
		Speculative:           false,
		SpecCheckElig:         true,
		SpecCheckCred:         true,
		SpecMaskByReqs:        false,
		VCAllocator:           AllocatorSeparable,
		SWAllocator:           AllocatorSeparable,
		SpecSWAllocator:       AllocatorSeparable,
		InputSpeedup:          1,
		OutputSpeedup:         1,
		InternalSpeedup:       1,
		RoutingDelay:          1,
		VCAllocDelay:          1,
		SWAllocDelay:          1,
		STPrepareDelay:        1,
		STFinalDelay:          1,
		CreditDelay:           1,
		PowergateType:         PowerGateNone,
		IdleThreshold:         1000,
		DrainThreshold:        100,
		BETThreshold:          100,
		WakeupThreshold:       50,
		HighWatermark:         0.8,
		LowWatermark:          0.2,
		ZeroLoadLatency:       10,
		FLOVMonitorEpoch:      1000,
		VCAllocWatchdogCycles: 300,
	}
}

// validate checks configuration for the contradictions [NewNetwork]
// must reject at construction time (spec.md §7 "Configuration
// error").
func (c *NetworkConfig) validate() error {
	if c.K <= 0 {
		return &ConfigError{Option: "k", Reason: "must be positive"}
	}
	if c.N != 2 {
		return &ConfigError{Option: "n", Reason: "only 2-D meshes are supported"}
	}
	if c.NumVCs <= 0 {
		return &ConfigError{Option: "num_vcs", Reason: "must be positive"}
	}
	if c.VCBufSize <= 0 {
		return &ConfigError{Option: "vc_buf_size", Reason: "must be positive"}
	}
	if c.PacketSize <= 0 {
		return &ConfigError{Option: "packet_size", Reason: "must be positive"}
	}
	if c.PowergateType != PowerGateNone && c.K < 2 {
		return &ConfigError{Option: "powergate_type", Reason: "power gating requires at least a 2x2 mesh so some router can be an anchor"}
	}
	if _, err := LookupRoutingFunc(c.RoutingFunction); err != nil {
		return err
	}
	return nil
}
