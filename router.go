package meshgate

//
// Router: the input-queued virtual-channel pipeline (spec.md §4.4)
// together with the bookkeeping the power controller (power.go) and
// the FLOV engine (flov.go) need. One Router owns one Buffer and one
// BufferState per port, a VC allocator and a switch allocator (plus a
// speculative switch allocator that is built but never run), and drives its own
// power-state machine. Routers never hold pointers to neighbor
// routers or channels directly: they hold Ports and ask the owning
// Network to resolve them (spec.md §9 "cyclic graphs").
//

// heldSwitch records a switch-holding reservation: while set, a VC's
// remaining flits skip switch allocation and go straight to the held
// output (spec.md §4.4).
type heldSwitch struct {
	output Port
	active bool
}

// inboundHS stages a handshake read this cycle for evaluateHandshakes
// to process once every port's reads have completed.
type inboundHS struct {
	port Port
	hs   *Handshake
}

type pendingHandshake struct {
	port Port
	hs   Handshake
}

// Router implements the per-cycle evaluator for one mesh node's
// pipeline, power state, and FLOV bypass. The zero value is invalid;
// routers are created by [NewNetwork].
type Router struct {
	id      RouterID
	net     *Network
	cfg     *NetworkConfig
	log     Logger
	watcher Watcher

	// ports lists every port this router has, in a stable order:
	// mesh ports (per Direction present) followed by InjectionPort.
	ports []Port

	// neighbor maps a mesh port to the neighbor router on the other
	// end, when one exists (edge ports are absent from this map).
	neighbor map[Port]RouterID

	inBuf     map[Port]*Buffer
	outState  map[Port]*BufferState
	outQueue  map[Port][]*Flit   // landed after ST, waiting for the link channel
	outCredit map[Port][]*Credit // queued after a buffer slot frees, waiting for the link channel

	vcAlloc     *Allocator
	swAlloc     *Allocator
	specSWAlloc *Allocator

	holds map[int]heldSwitch // key: portVCKey(inputPort, vc)

	// power state (spec.md §4.5); see power.go for the behavior.
	power               PowerState
	neighborPowerState  map[Port]PowerState
	idleTimer           int64
	drainTimer          int64
	offTimer            int64
	wakeTimer           int64
	wakeSignaled        map[Port]bool
	isAnchor            bool
	hidCounter          int64
	pendingAnnounce     []pendingHandshake
	inboundHandshakes   []inboundHS
	lastTransitionCycle int64

	// FLOV / NoRD (spec.md §4.6); see flov.go for the behavior.
	ringIn, ringOut Port
	bypassLatch     *Buffer

	crossbarConflicts int64
	switches          int64
	reads             int64
	writes            int64
	powerOffCycles    int64
}

func newRouter(id RouterID, net *Network, cfg *NetworkConfig, log Logger, ports []Port, neighbor map[Port]RouterID, isAnchor bool) *Router {
	r := &Router{
		id:                 id,
		net:                net,
		cfg:                cfg,
		log:                log,
		watcher:            cfg.Watcher,
		ports:              ports,
		neighbor:           neighbor,
		inBuf:              make(map[Port]*Buffer),
		outState:           make(map[Port]*BufferState),
		outQueue:           make(map[Port][]*Flit),
		outCredit:          make(map[Port][]*Credit),
		holds:              make(map[int]heldSwitch),
		power:              PowerOn,
		neighborPowerState: make(map[Port]PowerState),
		wakeSignaled:       make(map[Port]bool),
		isAnchor:           isAnchor,
		ringIn:             InjectionPort,
		ringOut:            InjectionPort,
	}
	for _, p := range ports {
		r.inBuf[p] = NewBuffer(cfg.NumVCs, cfg.VCBufSize)
		if p == InjectionPort {
			// The local ejection sink is serviced every cycle by the
			// traffic manager (spec.md §4.7), so its mirror never needs
			// to backpressure switch allocation.
			r.outState[p] = NewBufferState(cfg.NumVCs, 1<<30)
		} else {
			r.outState[p] = NewBufferState(cfg.NumVCs, cfg.VCBufSize)
		}
		r.neighborPowerState[p] = PowerOn
	}
	r.vcAlloc = NewAllocator(len(ports)*cfg.NumVCs, len(ports), cfg.NumVCs)
	r.swAlloc = NewAllocator(len(ports)*cfg.NumVCs, len(ports), cfg.NumVCs)
	r.specSWAlloc = NewAllocator(len(ports)*cfg.NumVCs, len(ports), cfg.NumVCs)
	return r
}

// ID returns the router's stable identifier.
func (r *Router) ID() RouterID { return r.id }

// portVCKey packs (port, vc) into the integer label the allocators
// use as input index, stable for the router's lifetime.
func (r *Router) portVCKey(port Port, vc int) int {
	return int(port)*r.cfg.NumVCs + vc
}

// Evaluate performs the read, handshake-evaluation and pipeline steps
// of one cycle (spec.md §5: "channel reads precede handshake
// evaluation precedes pipeline evaluation"). It must be called, for
// every router in a Network, before any router's WriteOutputs.
func (r *Router) Evaluate(now int64) error {
	r.inboundHandshakes = nil
	if err := r.readInputs(now); err != nil {
		return err
	}
	r.evaluateHandshakes(now)
	if err := r.evaluatePowerState(now); err != nil {
		return err
	}
	if r.power == PowerOn || r.power == PowerDraining {
		if err := r.evaluatePipeline(now); err != nil {
			return err
		}
	} else {
		r.powerOffCycles++
	}
	return nil
}

// WriteOutputs performs the channel-write step of one cycle (spec.md
// §5). It must be called, for every router, after every router's
// Evaluate.
func (r *Router) WriteOutputs(now int64) error {
	for _, p := range r.ports {
		if p == InjectionPort {
			continue
		}
		ch := r.net.flitChannelOut(r.id, p)
		if ch == nil {
			continue
		}
		q := r.outQueue[p]
		if len(q) > 0 {
			if err := ch.Send(now, q[0]); err == nil {
				r.outQueue[p] = q[1:]
				r.writes++
			}
		}
	}
	for _, p := range r.ports {
		if p == InjectionPort {
			continue
		}
		cch := r.net.creditChannelOut(r.id, p)
		if cch == nil {
			continue
		}
		q := r.outCredit[p]
		if len(q) > 0 {
			if err := cch.Send(now, q[0]); err == nil {
				r.outCredit[p] = q[1:]
			}
		}
	}
	for _, hs := range r.pendingAnnounce {
		ch := r.net.handshakeChannelOut(r.id, hs.port)
		if ch != nil {
			v := hs.hs
			_ = ch.Send(now, &v)
		}
	}
	r.pendingAnnounce = nil
	return nil
}

// Inject hands a locally-generated flit to this router's injection
// port, as the traffic manager does on behalf of an attached node
// (spec.md §4.7). The flit enters the same RC/VA/SA/ST pipeline as any
// other arrival, through the injection port's Buffer.
func (r *Router) Inject(f *Flit, now int64) error {
	f.Hops++
	f.EnteredRouterTime = now
	return r.inBuf[InjectionPort].Add(0, f)
}

// InjectionBufferFull reports whether the local injection VC is busy
// with a packet in flight, which the traffic manager consults before
// generating a new one (spec.md §4.7 "each node whose partial-packet
// queue is empty").
func (r *Router) InjectionBufferFull() bool {
	return r.inBuf[InjectionPort].State(0) != VCIdle
}

// Reads returns the number of channel-read attempts this router has
// made across its lifetime, one of the per-router counters spec.md §6
// requires in the JSON stats report.
func (r *Router) Reads() int64 { return r.reads }

// Writes returns the number of flits this router has written to an
// outbound channel across its lifetime.
func (r *Router) Writes() int64 { return r.writes }

// Switches returns the number of times this router's crossbar has
// traversed a flit (Switch Traversal completions), including FLOV
// bypass hops.
func (r *Router) Switches() int64 { return r.switches }

// PowerOffCycles returns the number of cycles this router has spent
// powered off.
func (r *Router) PowerOffCycles() int64 { return r.powerOffCycles }

// CrossbarConflicts returns the number of switch-allocation requests
// this router has lost to a competing request.
func (r *Router) CrossbarConflicts() int64 { return r.crossbarConflicts }

// Power returns the router's current power state.
func (r *Router) Power() PowerState { return r.power }

// readInputs drains every inbound flit/credit/handshake channel once
// (at most one item per channel per spec.md §4.1) and dispatches each
// to the normal pipeline or to the FLOV bypass path depending on this
// router's current power state.
func (r *Router) readInputs(now int64) error {
	for _, p := range r.ports {
		if p == InjectionPort {
			continue
		}
		r.reads++

		if fch := r.net.flitChannelIn(r.id, p); fch != nil {
			if f, err := fch.Read(now); err == nil {
				if r.bypassActive() {
					r.flovForwardFlit(p, f, now)
				} else {
					if r.power == PowerOff || r.power == PowerWaking {
						// PowerGateNoFLOV: bypass is disabled by
						// policy, so a flit dimension-order-routed
						// into this off/waking router has nowhere to
						// go but its own input queue. Latch a wake
						// signal against ourselves so the router
						// still comes back on to drain it, instead of
						// stalling here forever (spec.md §4.6
						// "routing must avoid the off router
						// entirely" is best-effort under noflov; see
						// DESIGN.md).
						r.signalWake(p)
					}
					f.Hops++
					f.EnteredRouterTime = now
					if err := r.inBuf[p].Add(f.VC, f); err != nil {
						return err
					}
				}
			}
		}

		if cch := r.net.creditChannelIn(r.id, p); cch != nil {
			if c, err := cch.Read(now); err == nil {
				if r.bypassActive() {
					r.flovForwardCredit(p, c, now)
				} else {
					r.outState[p].ProcessCredit(c)
				}
			}
		}

		if hch := r.net.handshakeChannelIn(r.id, p); hch != nil {
			if hs, err := hch.Read(now); err == nil {
				r.inboundHandshakes = append(r.inboundHandshakes, inboundHS{port: p, hs: hs})
			}
		}
	}
	return nil
}

// bypassActive reports whether this router should service arriving
// flits/credits via the FLOV path rather than its normal pipeline
// (spec.md §4.6: "While off or waking").
func (r *Router) bypassActive() bool {
	if r.cfg.PowergateType == PowerGateNone || r.cfg.PowergateType == PowerGateNoFLOV {
		return false
	}
	return r.power == PowerOff || r.power == PowerWaking
}
