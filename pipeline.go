package meshgate

//
// The input-queued pipeline: Route Compute, VC Allocation, Switch
// Allocation, Switch Traversal (spec.md §4.2-§4.4). Every stage only
// ever inspects state local to this router plus the downstream
// BufferState mirrors it owns; cross-router effects happen purely
// through Channel sends queued for WriteOutputs.
//

// evaluatePipeline runs route compute and the watchdog for every input
// VC, then one round of VC allocation and one round of switch
// allocation with switch traversal. These run back to back within one
// call, so a head flit in routing can pass route compute, VC
// allocation, switch allocation and switch traversal in the same
// cycle; no stage adds a cycle of latency of its own.
func (r *Router) evaluatePipeline(now int64) error {
	for _, p := range r.ports {
		buf := r.inBuf[p]
		for vc := 0; vc < buf.NumVCs(); vc++ {
			if err := r.stepRouteCompute(p, vc, now); err != nil {
				return err
			}
			if err := r.checkWatchdog(p, vc, now); err != nil {
				return err
			}
		}
	}

	r.vcAlloc.Reset()
	for _, p := range r.ports {
		buf := r.inBuf[p]
		for vc := 0; vc < buf.NumVCs(); vc++ {
			r.requestVCAlloc(p, vc, now)
		}
	}
	r.vcAlloc.Allocate()
	for _, p := range r.ports {
		buf := r.inBuf[p]
		for vc := 0; vc < buf.NumVCs(); vc++ {
			r.grantVCAlloc(p, vc, now)
		}
	}

	r.swAlloc.Reset()
	for _, p := range r.ports {
		buf := r.inBuf[p]
		for vc := 0; vc < buf.NumVCs(); vc++ {
			r.requestSwitch(p, vc, now)
		}
	}
	r.swAlloc.Allocate()
	r.crossbarConflicts += int64(len(r.swAlloc.LosingRequests()))
	for _, p := range r.ports {
		buf := r.inBuf[p]
		for vc := 0; vc < buf.NumVCs(); vc++ {
			r.grantSwitch(p, vc, now)
		}
	}
	return nil
}

// stepRouteCompute computes (once) the candidate output set for a VC
// whose head flit just arrived, then transitions it to vc-alloc
// (spec.md §4.4 state diagram: routing -> vc-alloc).
func (r *Router) stepRouteCompute(p Port, vc int, now int64) error {
	buf := r.inBuf[p]
	if buf.State(vc) != VCRouting {
		return nil
	}
	f, ok := buf.Front(vc)
	if !ok {
		return nil
	}
	rs, err := r.net.RouteCompute(r.id, f, p, false)
	if err != nil {
		return err
	}
	if rs.Empty() {
		return newInvariantError(r.id, p, vc, now, "route compute produced an empty output set")
	}
	buf.SetRouteSet(vc, rs)
	return buf.SetState(vc, VCAlloc, now)
}

// checkWatchdog reverts a VC stuck in vc-alloc for longer than
// NetworkConfig.VCAllocWatchdogCycles back to routing (spec.md §4.4
// "recovery path"). It first drops from the stored route set the first
// candidate port whose neighbor is draining or off; route compute then
// runs again and replaces the stored set with a fresh one from the
// routing function, so the recomputed route is not steered away from
// that neighbor.
func (r *Router) checkWatchdog(p Port, vc int, now int64) error {
	buf := r.inBuf[p]
	if buf.State(vc) != VCAlloc {
		return nil
	}
	if buf.CycleInStage(vc, now) < r.cfg.VCAllocWatchdogCycles {
		return nil
	}
	rs := buf.RouteSet(vc)
	for _, portInt := range rs.Ports() {
		port := Port(portInt)
		if r.neighborPowerState[port] == PowerDraining || r.neighborPowerState[port] == PowerOff {
			buf.SetRouteSet(vc, rs.ExcludePort(port))
			break
		}
	}
	return buf.SetState(vc, VCRouting, now)
}

// requestVCAlloc issues, for a VC currently waiting in vc-alloc, one
// request per (candidate output port, available downstream VC) pair
// in its route set (spec.md §4.4).
func (r *Router) requestVCAlloc(p Port, vc int, now int64) {
	buf := r.inBuf[p]
	if buf.State(vc) != VCAlloc {
		return
	}
	rs := buf.RouteSet(vc)
	if rs.Empty() {
		return
	}
	input := r.portVCKey(p, vc)
	for _, cand := range rs.Candidates {
		st := r.outState[cand.Port]
		for outVC := cand.VCStart; outVC <= cand.VCEnd; outVC++ {
			if outVC < 0 || outVC >= r.cfg.NumVCs {
				continue
			}
			if !st.IsAvailableFor(outVC) {
				continue
			}
			output := r.portVCKey(cand.Port, outVC)
			r.vcAlloc.AddRequest(input, output, vc, 0, cand.Priority)
		}
	}
}

// grantVCAlloc applies a VC-allocation grant: the winning VC's route
// is fixed for the remainder of its packet, the downstream VC is
// reserved, and the VC transitions to active (spec.md §4.4).
func (r *Router) grantVCAlloc(p Port, vc int, now int64) {
	buf := r.inBuf[p]
	if buf.State(vc) != VCAlloc {
		return
	}
	input := r.portVCKey(p, vc)
	output, ok := r.vcAlloc.OutputAssigned(input)
	if !ok {
		return
	}
	outPort := Port(output / r.cfg.NumVCs)
	outVC := output % r.cfg.NumVCs

	r.outState[outPort].TakeBuffer(outVC, input)
	buf.SetOutput(vc, outPort, outVC)
	_ = buf.SetState(vc, VCActive, now)
}

// requestSwitch issues a switch-allocation request for the flit at
// the head of an active VC that is eligible to traverse the crossbar
// this cycle: either the VC already holds the switch from a prior
// flit in the same packet (spec.md §4.4 "switch holding"), or the
// downstream VC it was granted is not full (spec.md §4.2 "switch
// allocation is gated by !isFullFor").
func (r *Router) requestSwitch(p Port, vc int, now int64) {
	buf := r.inBuf[p]
	if buf.State(vc) != VCActive || buf.Empty(vc) {
		return
	}
	outPort := buf.GetOutputPort(vc)
	outVC := buf.GetOutputVC(vc)

	key := r.portVCKey(p, vc)
	if h, ok := r.holds[key]; ok && h.active {
		// Already holding the switch: no arbitration needed, handled
		// directly in grantSwitch.
		return
	}
	if r.outState[outPort].IsFullFor(outVC) {
		return
	}
	r.swAlloc.AddRequest(key, int(outPort), vc, 0, 0)
}

// grantSwitch performs Switch Traversal for a VC that either won this
// cycle's switch allocation or already holds the switch: the flit is
// dequeued, the downstream BufferState records the new occupancy, a
// credit is queued back upstream, and (for a held switch) the hold is
// released once the tail passes.
func (r *Router) grantSwitch(p Port, vc int, now int64) {
	buf := r.inBuf[p]
	if buf.State(vc) != VCActive || buf.Empty(vc) {
		return
	}
	key := r.portVCKey(p, vc)

	held, holding := r.holds[key]
	if !holding || !held.active {
		in, ok := r.swAlloc.InputAssigned(int(buf.GetOutputPort(vc)))
		if !ok || in != key {
			return
		}
	}

	realOutPort := buf.GetOutputPort(vc)
	outVC := buf.GetOutputVC(vc)

	f, ok := buf.Remove(vc)
	if !ok {
		return
	}

	r.outState[realOutPort].SendingFlit(outVC, f)
	if realOutPort == InjectionPort {
		f.EjectTime = now
		r.net.eject(f, now)
	} else {
		// The downstream router files this flit under the VC index of
		// the link it arrives on, which is outVC on this hop (spec.md
		// §3: a flit's VC field is the lane shared between this
		// router's output mirror and the next router's input queue).
		f.VC = outVC
		r.outQueue[realOutPort] = append(r.outQueue[realOutPort], f)
	}
	r.switches++

	if p != InjectionPort {
		r.outCredit[p] = append(r.outCredit[p], newCredit(vc))
	}

	if f.Tail {
		delete(r.holds, key)
		if realOutPort == InjectionPort || !r.cfg.WaitForTailCredit {
			// The ejection sink never produces a credit, so its
			// reservation always returns eagerly regardless of
			// WaitForTailCredit.
			r.outState[realOutPort].ReturnBuffer(outVC)
		}
	} else if r.cfg.HoldSwitchForPacket {
		r.holds[key] = heldSwitch{output: realOutPort, active: true}
	}
}
