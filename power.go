package meshgate

//
// Power state machine and the drain/wake handshake protocol (spec.md
// §4.5). Every router runs this independently each cycle; the only
// cross-router coordination is the Handshake messages carried over
// the same per-port channels flits and credits use.
//

// PowerState is one of the four states a router's power controller
// can be in (spec.md §4.5).
type PowerState int

const (
	PowerOn PowerState = iota
	PowerDraining
	PowerOff
	PowerWaking
)

func (s PowerState) String() string {
	switch s {
	case PowerOn:
		return "on"
	case PowerDraining:
		return "draining"
	case PowerOff:
		return "off"
	case PowerWaking:
		return "waking"
	default:
		return "unknown"
	}
}

// evaluateHandshakes processes every handshake read this cycle
// (staged by readInputs into r.inboundHandshakes), updating the
// neighbor power-state mirror the state machine below and the routing
// recovery path (pipeline.go's checkWatchdog) consult.
func (r *Router) evaluateHandshakes(now int64) {
	for _, in := range r.inboundHandshakes {
		hs := in.hs
		prev := r.neighborPowerState[in.port]
		r.neighborPowerState[in.port] = hs.NewState

		switch hs.NewState {
		case PowerDraining:
			// Neighbor announced draining: only the mirror above
			// changes. checkWatchdog reads it; route compute does not.
		case PowerOff:
			// Neighbor is dark: no credits will arrive on this port
			// until it wakes. Treat its mirror as fully unavailable so
			// VA never blocks waiting on a link that cannot produce
			// credits (spec.md §4.5 "neighbor-serialization").
			r.outState[in.port].ClearCredits()
		case PowerOn:
			if hs.DrainDone || prev == PowerWaking {
				r.outState[in.port].FullCredits(r.cfg.VCBufSize)
			}
		}
	}
	r.inboundHandshakes = nil
}

// announceTransition queues an outbound handshake to every mesh
// neighbor reporting the router's new state, stamped with a fresh
// handshake ID (spec.md §4.5: "Each transition is announced to every
// neighbor").
func (r *Router) announceTransition(now int64, newState PowerState, drainDone bool) {
	r.hidCounter++
	for _, p := range r.ports {
		if p == InjectionPort {
			continue
		}
		if _, ok := r.neighbor[p]; !ok {
			continue
		}
		r.pendingAnnounce = append(r.pendingAnnounce, pendingHandshake{
			port: p,
			hs: Handshake{
				Src:       r.id,
				SrcState:  r.power,
				NewState:  newState,
				DrainDone: drainDone,
				HID:       r.hidCounter,
			},
		})
	}
	r.lastTransitionCycle = now
}

// allQuiescent reports whether every input buffer and output queue at
// this router is empty, the precondition for leaving draining for off
// (spec.md §4.5 "drain-done").
func (r *Router) allQuiescent() bool {
	for _, p := range r.ports {
		buf, ok := r.inBuf[p]
		if !ok {
			continue
		}
		for vc := 0; vc < buf.NumVCs(); vc++ {
			if !buf.Empty(vc) {
				return false
			}
		}
		if len(r.outQueue[p]) > 0 {
			return false
		}
	}
	return true
}

// neighborsAcceptDraining reports whether this router is still clear
// to finish powering off: the neighbor-serialization invariant that
// forbids two directly-connected routers from being off at the same
// time, since a dark link on both ends would leave neither side able
// to offer a FLOV bypass target (spec.md §4.5). A neighbor that is
// itself draining, or an always-on anchor, never blocks this check;
// only an already-dark neighbor does.
func (r *Router) neighborsAcceptDraining() bool {
	for p := range r.neighbor {
		if r.neighborPowerState[p] == PowerOff {
			return false
		}
	}
	return true
}

// evaluatePowerState advances the per-router power state machine by
// one cycle (spec.md §4.5 state diagram): on -> draining on sustained
// idleness, draining -> off once quiescent and neighbors concur,
// off -> waking on injection demand or a neighbor's wake signal,
// waking -> on once the wakeup threshold elapses. Every router in the
// bottom row of the mesh is an anchor (isAnchor) and never leaves on
// (spec.md §4.5).
func (r *Router) evaluatePowerState(now int64) error {
	if r.cfg.PowergateType == PowerGateNone || r.isAnchor {
		r.power = PowerOn
		return nil
	}

	switch r.power {
	case PowerOn:
		if r.routerIdle() {
			r.idleTimer++
		} else {
			r.idleTimer = 0
		}
		if r.idleTimer >= r.cfg.IdleThreshold {
			TracePowerTransition(r.watcher, now, r.id, r.power, PowerDraining)
			r.power = PowerDraining
			r.idleTimer = 0
			r.drainTimer = 0
			r.announceTransition(now, PowerDraining, false)
		}

	case PowerDraining:
		r.drainTimer++
		if r.allQuiescent() && r.neighborsAcceptDraining() {
			if r.drainTimer >= r.cfg.DrainThreshold {
				TracePowerTransition(r.watcher, now, r.id, r.power, PowerOff)
				r.power = PowerOff
				r.offTimer = 0
				r.announceTransition(now, PowerOff, true)
			}
		}
		if r.drainTimer >= r.cfg.DrainThreshold && !r.allQuiescent() {
			// Drain threshold exceeded without reaching quiescence:
			// abandon the drain and return on (spec.md §4.5 "a
			// router that cannot drain in time returns to on").
			TracePowerTransition(r.watcher, now, r.id, r.power, PowerOn)
			r.power = PowerOn
			r.drainTimer = 0
			r.announceTransition(now, PowerOn, false)
		}

	case PowerOff:
		r.offTimer++
		// A latched wake signal only takes effect once this router
		// has stayed off at least BETThreshold cycles: waking sooner
		// would spend more energy re-powering than the off period
		// saved (spec.md §4.5 "off -> waking after off_timer >=
		// break-even threshold").
		if r.offTimer >= r.cfg.BETThreshold && r.wantsWake() {
			TracePowerTransition(r.watcher, now, r.id, r.power, PowerWaking)
			r.power = PowerWaking
			r.wakeTimer = 0
			r.announceTransition(now, PowerWaking, false)
		}

	case PowerWaking:
		r.wakeTimer++
		if r.wakeTimer >= r.cfg.WakeupThreshold {
			TracePowerTransition(r.watcher, now, r.id, r.power, PowerOn)
			r.power = PowerOn
			for p := range r.wakeSignaled {
				delete(r.wakeSignaled, p)
			}
			r.announceTransition(now, PowerOn, false)
		}
	}
	return nil
}

// routerIdle reports whether this router has no flits in flight
// anywhere in its pipeline and no pending injection demand, the
// per-cycle condition the idle timer accumulates against (spec.md
// §4.5).
func (r *Router) routerIdle() bool {
	return r.allQuiescent() && !r.net.injectionPending(r.id)
}

// wantsWake reports whether an off router should begin waking: either
// a neighbor has latched a wake signal against it (spec.md §4.5
// "a neighbor with a flit destined through an off router signals it
// to wake"), or the traffic manager has injection demand at this
// node.
func (r *Router) wantsWake() bool {
	for _, signaled := range r.wakeSignaled {
		if signaled {
			return true
		}
	}
	return r.net.injectionPending(r.id)
}

// signalWake lets a neighbor (or the FLOV engine) request that this
// router begin waking, latched until consumed by the next
// evaluatePowerState (spec.md §4.6 item 4: "the bypassing router
// signals the gated router to wake").
func (r *Router) signalWake(fromPort Port) {
	if r.wakeSignaled == nil {
		r.wakeSignaled = make(map[Port]bool)
	}
	r.wakeSignaled[fromPort] = true
}
