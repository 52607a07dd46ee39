package meshgate

//
// Traffic manager: generates and retires flits at each node's
// injection port (spec.md §4.7). Grounded on the teacher's NIC/
// FrameReader split (model.go): a [WorkloadSource] is the pluggable
// "where do packets come from" collaborator, analogous to the
// teacher's FrameReader, while TrafficManager itself plays the role
// the teacher's Router/topology glue plays in driving delivery.
//

// WorkloadSource supplies packets to inject and receives packets that
// have been ejected, decoupling packet generation (synthetic
// patterns, file-replay, a Redis queue) from TrafficManager's
// bookkeeping (spec.md §6 "workload-source interface").
type WorkloadSource interface {
	// IsReady reports whether a packet is available to inject for the
	// given node, without consuming it.
	IsReady(node int, now int64) bool

	// PeekMsg returns the next packet's destination node, flit count
	// and payload for the given node, without dequeuing it.
	PeekMsg(node int) (dst int, size int, payload any, ok bool)

	// Dequeue removes the packet PeekMsg most recently returned for
	// node.
	Dequeue(node int)

	// Enqueue accepts a packet that has just been ejected at node.
	Enqueue(node int, payload any, genTime, injTime, ejectTime int64, hops, flovHops int)
}

// PowerGatingPolicy decides, from periodic watermark sampling, whether
// the network as a whole should become more aggressive or more
// conservative about powering routers down (spec.md §4.7 item 6). The
// zero-value-friendly default is [ThresholdPolicy].
type PowerGatingPolicy interface {
	// Vote inspects the sampled injection rate (0..1, fraction of
	// cycles with injection demand since the last sample) and the
	// current zero-load latency estimate, returning a multiplicative
	// adjustment to apply to every router's IdleThreshold: >1 lengthens
	// it, so routers power off later; <1 shortens it, so they power off
	// sooner.
	Vote(cfg *NetworkConfig, injectionRate float64, observedLatency float64) float64
}

// ThresholdPolicy is the trivial default [PowerGatingPolicy]: it
// pushes routers towards gating off when the sampled injection rate
// is below NetworkConfig.LowWatermark, and towards staying on when it
// is above NetworkConfig.HighWatermark or observed latency has grown
// past a small multiple of ZeroLoadLatency.
type ThresholdPolicy struct{}

// Vote implements PowerGatingPolicy.
func (ThresholdPolicy) Vote(cfg *NetworkConfig, injectionRate float64, observedLatency float64) float64 {
	if observedLatency > 2*cfg.ZeroLoadLatency {
		return 1.5 // regress: make it harder to gate off
	}
	if injectionRate < cfg.LowWatermark {
		return 0.5 // aggress: make it easier to gate off
	}
	if injectionRate > cfg.HighWatermark {
		return 1.5
	}
	return 1.0
}

// TrafficManager injects and retires flits on behalf of every node in
// a Network (spec.md §4.7). Construction does not start anything; the
// caller drives it one cycle at a time alongside Network.Step.
type TrafficManager struct {
	net    *Network
	cfg    *NetworkConfig
	source WorkloadSource
	policy PowerGatingPolicy

	ids     idSequence // packet IDs
	flitIDs idSequence // flit IDs, independent of packet IDs once packets span >1 flit

	// partial holds, per node, the flits of the packet currently being
	// fed onto the network one flit per cycle: the production
	// injection path for multi-flit packets (spec.md §4.7 item 3
	// "generates size flits"), mirroring the original traffic
	// manager's per-node partial-packet queue.
	partial map[int][]*Flit

	watcher Watcher

	samplesWithDemand int64
	samplesTotal      int64
	latencySum        int64
	latencyCount      int64

	ejected []ejectedRecord
}

// PowerAwareSource is an optional capability a [WorkloadSource] can
// implement to learn which destinations are currently reachable, so it
// can reject a candidate destination whose router is powered off and
// retry with a fresh one rather than stalling against a sleeping node
// (spec.md §4.7 item 3 "rejecting any destination whose compute core
// is off by retrying with a fresh destination"). [NewTrafficManager]
// wires this automatically when source implements it.
type PowerAwareSource interface {
	SetDestinationFilter(func(node int) bool)
}

type ejectedRecord struct {
	PacketID  int64
	Src, Dst  int
	GenTime   int64
	InjTime   int64
	EjectTime int64
	Hops      int
	FLOVHops  int
}

// NewTrafficManager creates a TrafficManager bound to net, pulling
// packets from source and voting on power-gating aggressiveness with
// policy (nil defaults to [ThresholdPolicy]).
func NewTrafficManager(net *Network, cfg *NetworkConfig, source WorkloadSource, policy PowerGatingPolicy) *TrafficManager {
	if policy == nil {
		policy = ThresholdPolicy{}
	}
	tm := &TrafficManager{net: net, cfg: cfg, source: source, policy: policy, partial: make(map[int][]*Flit)}
	net.AttachTrafficManager(tm)
	if pa, ok := source.(PowerAwareSource); ok {
		pa.SetDestinationFilter(tm.destinationOn)
	}
	return tm
}

// destinationOn reports whether the router attached to node is
// powered on and can accept injected traffic.
func (tm *TrafficManager) destinationOn(node int) bool {
	id, ok := tm.net.RouterForNode(node)
	if !ok {
		return true
	}
	r, ok := tm.net.Router(id)
	if !ok {
		return true
	}
	return r.Power() == PowerOn
}

// AttachWatcher arranges for every future injection and ejection to be
// reported to w (spec.md §6 "watch/trace output"). Passing nil detaches
// tracing.
func (tm *TrafficManager) AttachWatcher(w Watcher) { tm.watcher = w }

// Step injects at most one flit per node per cycle: a node with an
// in-flight packet continues draining its partial-packet queue one
// flit at a time, while a node with an empty queue and a free
// injection buffer may start a fresh packet (spec.md §4.7 item 3). It
// also samples the watermark policy every FLOVMonitorEpoch cycles.
func (tm *TrafficManager) Step(now int64) {
	for node, id := range tm.net.nodeRouter {
		r, ok := tm.net.Router(id)
		if !ok {
			continue
		}
		if len(tm.partial[node]) == 0 && !r.InjectionBufferFull() {
			tm.generatePacket(node, now)
		}
		queue := tm.partial[node]
		if len(queue) == 0 {
			continue
		}
		f := queue[0]
		f.InjTime = now
		if err := r.Inject(f, now); err == nil {
			tm.partial[node] = queue[1:]
			TraceInjection(tm.watcher, now, id, f)
		}
	}

	tm.samplesTotal++
	if tm.hasAnyDemand(now) {
		tm.samplesWithDemand++
	}
	if tm.cfg.FLOVMonitorEpoch > 0 && tm.samplesTotal%tm.cfg.FLOVMonitorEpoch == 0 {
		tm.sampleWatermark(now)
	}
}

// generatePacket pulls the next packet descriptor staged for node (if
// any) and expands it into size flits queued in tm.partial, ready to
// be fed onto the network one flit per cycle by Step (spec.md §4.7
// item 3). The source is consumed (Dequeue) as soon as the whole
// packet has been carved into flits; from that point the flits live
// only in tm.partial, same split as the original traffic manager's
// "generate the whole packet, then drip it out" discipline.
func (tm *TrafficManager) generatePacket(node int, now int64) {
	if !tm.source.IsReady(node, now) {
		return
	}
	dst, size, payload, ok := tm.source.PeekMsg(node)
	if !ok {
		return
	}
	tm.source.Dequeue(node)
	if size <= 0 {
		size = 1
	}

	pid := tm.ids.take()
	flits := make([]*Flit, size)
	for i := 0; i < size; i++ {
		flits[i] = &Flit{
			ID:          tm.flitIDs.take(),
			PacketID:    pid,
			SeqInPacket: i,
			Head:        i == 0,
			Tail:        i == size-1,
			Src:         node,
			Dst:         dst,
			VC:          -1,
			GenTime:     now,
			InjTime:     now,
			Payload:     payload,
		}
	}
	tm.partial[node] = flits
}

func (tm *TrafficManager) hasAnyDemand(now int64) bool {
	for node := range tm.net.nodeRouter {
		if tm.source.IsReady(node, now) {
			return true
		}
	}
	return false
}

func (tm *TrafficManager) sampleWatermark(now int64) {
	rate := float64(tm.samplesWithDemand) / float64(tm.samplesTotal)
	latency := tm.cfg.ZeroLoadLatency
	if tm.latencyCount > 0 {
		latency = float64(tm.latencySum) / float64(tm.latencyCount)
	}
	adj := tm.policy.Vote(tm.cfg, rate, latency)
	scaled := int64(float64(tm.cfg.IdleThreshold) * adj)
	if scaled < 1 {
		scaled = 1
	}
	tm.cfg.IdleThreshold = scaled
	tm.samplesWithDemand = 0
	tm.samplesTotal = 0
}

// hasDemand reports whether the node attached to router id currently
// has an injectable packet waiting, consulted by the power controller
// before waking a router purely to serve local injection demand
// (spec.md §4.5).
func (tm *TrafficManager) hasDemand(id RouterID) bool {
	for node, rid := range tm.net.nodeRouter {
		if rid != id {
			continue
		}
		if len(tm.partial[node]) > 0 || tm.source.IsReady(node, tm.net.Cycle()) {
			return true
		}
	}
	return false
}

// ejectFlit retires a flit that just completed switch traversal into
// its destination's injection port, recording latency stats and
// handing the payload back to the workload source.
func (tm *TrafficManager) ejectFlit(f *Flit, now int64) {
	tm.latencySum += now - f.InjTime
	tm.latencyCount++
	tm.ejected = append(tm.ejected, ejectedRecord{
		PacketID:  f.PacketID,
		Src:       f.Src,
		Dst:       f.Dst,
		GenTime:   f.GenTime,
		InjTime:   f.InjTime,
		EjectTime: now,
		Hops:      f.Hops,
		FLOVHops:  f.FLOVHops,
	})
	tm.source.Enqueue(f.Dst, f.Payload, f.GenTime, f.InjTime, now, f.Hops, f.FLOVHops)
	if id, ok := tm.net.RouterForNode(f.Dst); ok {
		TraceEjection(tm.watcher, now, id, f)
	}
}

// Ejected returns one record per flit retired so far, for stats
// reporting; a multi-flit packet contributes one record per flit.
func (tm *TrafficManager) Ejected() []ejectedRecord {
	return tm.ejected
}
