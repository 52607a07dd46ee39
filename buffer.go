package meshgate

//
// Buffer: per-input-port virtual-channel buffers on the receiver side
// (spec.md §3, §4.2).
//

// VCState is the state of one virtual channel's state machine
// (spec.md §3, §4.4).
type VCState int

const (
	VCIdle VCState = iota
	VCRouting
	VCAlloc
	VCActive
)

func (s VCState) String() string {
	switch s {
	case VCIdle:
		return "idle"
	case VCRouting:
		return "routing"
	case VCAlloc:
		return "vc-alloc"
	case VCActive:
		return "active"
	default:
		return "unknown"
	}
}

// vcQueue is the per-VC bookkeeping held by a Buffer.
type vcQueue struct {
	state VCState
	flits []*Flit

	outPort Port
	outVC   int

	routeSet *OutputSet

	// enteredStageAt is the cycle this VC last entered VCAlloc; used
	// to drive the 300-cycle watchdog (spec.md §4.4, §5).
	enteredStageAt int64

	capacity int
}

// Buffer holds the per-VC FIFOs for one input port of one router. The
// zero value is invalid; use [NewBuffer].
type Buffer struct {
	vcs []vcQueue

	// rrOffset is the round-robin tie-break offset, advanced by one
	// (modulo numVCs) by AdvanceRR (spec.md §4.2). The router pipeline
	// never calls AdvanceRR, so during a simulation it stays at 0.
	rrOffset int
}

// NewBuffer creates a Buffer with numVCs virtual channels, each with
// capacity vcBufSize flits.
func NewBuffer(numVCs, vcBufSize int) *Buffer {
	b := &Buffer{vcs: make([]vcQueue, numVCs)}
	for i := range b.vcs {
		b.vcs[i] = vcQueue{state: VCIdle, capacity: vcBufSize}
	}
	return b
}

// NumVCs returns the number of virtual channels this buffer holds.
func (b *Buffer) NumVCs() int { return len(b.vcs) }

// Add enqueues a flit on the given VC. Adding a head flit to an idle
// VC transitions it to routing (spec.md §4.4 state diagram); adding a
// non-head flit to an idle VC is an invariant violation (spec.md §8).
func (b *Buffer) Add(vc int, f *Flit) error {
	q := &b.vcs[vc]
	if q.state == VCIdle {
		if !f.Head {
			return newInvariantError(-1, -1, vc, f.EnteredRouterTime,
				"body flit arrived at idle VC")
		}
		q.state = VCRouting
		q.enteredStageAt = f.EnteredRouterTime
	}
	q.flits = append(q.flits, f)
	return nil
}

// Front returns the flit at the head of the VC's FIFO, if any.
func (b *Buffer) Front(vc int) (*Flit, bool) {
	q := &b.vcs[vc]
	if len(q.flits) == 0 {
		return nil, false
	}
	return q.flits[0], true
}

// Remove dequeues the front flit of the VC. If the removed flit is
// the packet's tail and the FIFO is now empty, the VC returns to idle
// (spec.md §4.4 state diagram).
func (b *Buffer) Remove(vc int) (*Flit, bool) {
	q := &b.vcs[vc]
	if len(q.flits) == 0 {
		return nil, false
	}
	f := q.flits[0]
	q.flits = q.flits[1:]
	if len(q.flits) == 0 && f.Tail {
		q.state = VCIdle
		q.outPort = 0
		q.outVC = -1
		q.routeSet = nil
	}
	return f, true
}

// Empty reports whether the VC's FIFO is empty.
func (b *Buffer) Empty(vc int) bool {
	return len(b.vcs[vc].flits) == 0
}

// Len reports the number of flits currently queued on the VC.
func (b *Buffer) Len(vc int) int {
	return len(b.vcs[vc].flits)
}

// State returns the VC's current state.
func (b *Buffer) State(vc int) VCState {
	return b.vcs[vc].state
}

// SetState forces the VC's state, used by the recovery path (spec.md
// §4.4: a 300-cycle watchdog or an unroutable-all-neighbors-draining
// condition returns a VC from vc-alloc to routing) and by power
// transition recovery. SetState rejects (idle -> active) and
// (idle -> vc-alloc), which can never legally happen.
func (b *Buffer) SetState(vc int, s VCState, now int64) error {
	q := &b.vcs[vc]
	if q.state == VCIdle && (s == VCAlloc || s == VCActive) {
		return newInvariantError(-1, -1, vc, now, "illegal transition from idle")
	}
	if s == VCAlloc {
		q.enteredStageAt = now
	}
	q.state = s
	return nil
}

// CycleInStage returns how many cycles the VC has spent in its
// current vc-alloc attempt, used by the 300-cycle watchdog.
func (b *Buffer) CycleInStage(vc int, now int64) int64 {
	return now - b.vcs[vc].enteredStageAt
}

// SetRouteSet records the candidate (output, vc, priority) triples
// computed by route compute for this VC's head flit.
func (b *Buffer) SetRouteSet(vc int, rs *OutputSet) {
	b.vcs[vc].routeSet = rs
}

// RouteSet returns the previously computed route set, if any.
func (b *Buffer) RouteSet(vc int) *OutputSet {
	return b.vcs[vc].routeSet
}

// SetOutput records the (output port, output VC) a VC has been
// granted; all subsequent flits of the packet must use this
// assignment until the tail frees the VC (spec.md §3 invariant).
func (b *Buffer) SetOutput(vc int, port Port, outVC int) {
	q := &b.vcs[vc]
	q.outPort = port
	q.outVC = outVC
}

// GetOutputPort returns the output port assigned to an active VC.
func (b *Buffer) GetOutputPort(vc int) Port {
	return b.vcs[vc].outPort
}

// GetOutputVC returns the output VC assigned to an active VC.
func (b *Buffer) GetOutputVC(vc int) int {
	return b.vcs[vc].outVC
}

// SetVCBufferSize overrides a VC's capacity; used when repurposing a
// VC as a one-slot NoRD bypass latch (spec.md §4.6).
func (b *Buffer) SetVCBufferSize(vc int, n int) {
	b.vcs[vc].capacity = n
}

// Capacity returns the VC's configured buffer size.
func (b *Buffer) Capacity(vc int) int {
	return b.vcs[vc].capacity
}

// RROffset returns the round-robin tie-break offset.
func (b *Buffer) RROffset() int {
	return b.rrOffset
}

// AdvanceRR advances the round-robin offset by one, modulo numVCs,
// after a grant is made against a tied request set (spec.md §4.2).
func (b *Buffer) AdvanceRR() {
	if n := len(b.vcs); n > 0 {
		b.rrOffset = (b.rrOffset + 1) % n
	}
}
