package meshgate

//
// FLOV (Fly-Over) bypass (spec.md §4.6): while a router is off or
// waking, it does not run route/VC/switch allocation at all. Instead
// every flit arriving on a mesh port is forwarded straight through to
// the opposite port with no buffering decision, and credits are
// mirrored back unconditionally. The NoRD variant instead latches one
// flit onto a one-slot ring overlay when no straight-through output
// exists.
//

// flovOppositePort returns the port a bypassed flit continues out of:
// the one physically opposite the port it arrived on. Gated routers
// only ever bypass along one dimension at a time (spec.md §4.6 item 2
// "fly-over preserves dimension-order: a flit entering east-bound
// leaves west-bound"), so a lookup by Direction.Opposite suffices.
func (r *Router) flovOppositePort(in Port) (Port, bool) {
	inDir, ok := r.directionOf(in)
	if !ok {
		return InjectionPort, false
	}
	return r.net.NeighborPort(r.id, inDir.Opposite())
}

// directionOf recovers the Direction a mesh port faces by asking the
// owning Network, which is the only place the router-to-coordinate
// mapping lives (spec.md §9 "cyclic graphs": routers hold ports, not
// direction labels).
func (r *Router) directionOf(p Port) (Direction, bool) {
	return r.net.PortDirection(r.id, p)
}

// flovForwardFlit implements the bypass path for an arriving flit
// (spec.md §4.6 items 1-3). The flit's VC is reserved on the outgoing
// BufferState with the flovSentinelTakenBy marker rather than a real
// (input,vc) pair, because no VC allocation decision was made; the
// reservation exists purely so SendingFlit/ProcessCredit bookkeeping
// on the far side still balances.
func (r *Router) flovForwardFlit(in Port, f *Flit, now int64) {
	f.Hops++
	f.FLOVHops++
	out, ok := r.flovOppositePort(in)
	if !ok {
		if r.cfg.PowergateType == PowerGateNoRD {
			r.nordLatch(in, f, now)
			return
		}
		// No opposite port (router sits on a mesh edge): drop onto the
		// bypass-less path by queueing locally is not legal for an off
		// router, so signal the neighbor supplying this flit to wake
		// us and hold nothing -- the upstream router retains the flit
		// because no credit will be produced until we wake.
		r.signalWake(in)
		return
	}
	st := r.outState[out]
	vc := f.VC
	if st.TakenBy(vc) == notTaken {
		st.TakeBuffer(vc, flovSentinelTakenBy)
	}
	st.SendingFlit(vc, f)
	r.outQueue[out] = append(r.outQueue[out], f)
	r.switches++

	if f.Tail {
		// The packet's tail has passed through: latch a wake request
		// on this router from the arrival port, so it starts waking
		// once its break-even threshold allows.
		r.signalWake(in)
	}
}

// flovForwardCredit implements the bypass path for an arriving credit
// (spec.md §4.6 item 3: "credits are mirrored through unconditionally
// while bypassing"). The credit is first applied to this router's own
// mirror of the port it arrived on, releasing what flovForwardFlit
// reserved there, then relayed to the port opposite the one it arrived
// on so the real upstream/downstream BufferStates stay balanced across
// the gated router.
func (r *Router) flovForwardCredit(in Port, c *Credit, now int64) {
	r.outState[in].ProcessCredit(c)
	out, ok := r.flovOppositePort(in)
	if !ok {
		return
	}
	ch := r.net.creditChannelOut(r.id, out)
	if ch == nil {
		return
	}
	_ = ch.Send(now, c)
}

// nordLatch implements the NoRD one-slot ring-overlay bypass: when no
// straight-through opposite port exists (the bypass must turn a
// corner), the flit is parked in the router's single bypassLatch
// buffer and re-emitted on the ring overlay's designated ringOut port
// the following cycle instead of being dropped or stalling the
// upstream router (spec.md §4.6 "NoRD variant").
func (r *Router) nordLatch(in Port, f *Flit, now int64) {
	if r.bypassLatch == nil {
		r.bypassLatch = NewBuffer(1, 1)
	}
	if !r.bypassLatch.Empty(0) {
		// Latch occupied: signal the upstream neighbor to wake rather
		// than silently drop the flit.
		r.signalWake(in)
		return
	}
	_ = r.bypassLatch.Add(0, f)
	if r.ringOut == InjectionPort {
		r.signalWake(in)
		return
	}
	if fl, ok := r.bypassLatch.Remove(0); ok {
		r.outQueue[r.ringOut] = append(r.outQueue[r.ringOut], fl)
	}
}
