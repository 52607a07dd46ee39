package meshgate

//
// BufferState: a per-output-port mirror of the downstream router's VC
// occupancy, used to drive credit-based flow control (spec.md §3,
// §4.2, §5). This is the only resource shared between the input side
// (which reserves on VA/SA grant) and the credit-processing side
// (which releases on credit receipt); all reservations are keyed by
// (input*V + vc) or a FLOV sentinel so a credit can only release the
// slot matching its booking (spec.md §5).
//

// flovSentinelTakenBy is the "taken-by" value recorded when a
// power-gated router bypasses a head flit: no real input/VC pair owns
// the reservation, only the fact that a bypass is in flight (spec.md
// §4.6 item 1).
const flovSentinelTakenBy = -2

// notTaken is the taken-by value of an available VC.
const notTaken = -1

type bufferStateVC struct {
	available bool
	occupancy int
	capacity  int
	takenBy   int
	tailSent  bool
}

// BufferState mirrors, for one output port, the downstream router's
// per-VC occupancy and availability. The zero value is invalid; use
// [NewBufferState].
type BufferState struct {
	vcs []bufferStateVC
}

// NewBufferState creates a BufferState for numVCs virtual channels,
// each with downstream capacity vcBufSize, all initially available.
func NewBufferState(numVCs, vcBufSize int) *BufferState {
	bs := &BufferState{vcs: make([]bufferStateVC, numVCs)}
	for i := range bs.vcs {
		bs.vcs[i] = bufferStateVC{available: true, capacity: vcBufSize, takenBy: notTaken}
	}
	return bs
}

// IsAvailableFor reports whether vc is unclaimed by any input.
func (bs *BufferState) IsAvailableFor(vc int) bool {
	return bs.vcs[vc].available
}

// IsFullFor reports whether vc's downstream occupancy has reached
// capacity (spec.md §4.2: switch allocation is gated by !isFullFor).
func (bs *BufferState) IsFullFor(vc int) bool {
	v := &bs.vcs[vc]
	return v.occupancy >= v.capacity
}

// Occupancy returns the current outstanding-flit count for vc.
func (bs *BufferState) Occupancy(vc int) int {
	return bs.vcs[vc].occupancy
}

// TakenBy returns who currently owns vc's reservation, or notTaken.
func (bs *BufferState) TakenBy(vc int) int {
	return bs.vcs[vc].takenBy
}

// TakeBuffer reserves vc for a granted (input, localVC) pair, encoded
// by the caller as input*V+localVC (or flovSentinelTakenBy for a FLOV
// bypass), per spec.md §4.4: "takeBuffer(granted-vc, input*V+vc) is
// invoked on the downstream mirror" on a VA grant.
func (bs *BufferState) TakeBuffer(vc int, by int) {
	v := &bs.vcs[vc]
	v.available = false
	v.takenBy = by
}

// ReturnBuffer cancels a take without requiring a credit, used by the
// mis-speculation / power-transition recovery path when a VC returns
// from vc-alloc to routing (spec.md §4.4) before ever sending a flit.
func (bs *BufferState) ReturnBuffer(vc int) {
	v := &bs.vcs[vc]
	v.available = true
	v.takenBy = notTaken
	v.tailSent = false
}

// SendingFlit reserves one occupancy slot at the downstream buffer for
// the flit about to traverse the crossbar (spec.md §4.2: "Switch
// Traversal" lands the flit and a credit is queued; the mirror's
// occupancy is what the sender uses to know a slot is taken until the
// credit returns). If f is a tail flit, the reservation is marked so
// that, once credited, the VC becomes available again (spec.md §3:
// "a VC becomes available again only after the tail's credit
// returns").
func (bs *BufferState) SendingFlit(vc int, f *Flit) {
	v := &bs.vcs[vc]
	v.occupancy++
	if f.Tail {
		v.tailSent = true
	}
}

// ProcessCredit frees the slots named by a [Credit], decrementing
// occupancy for each VC it names. When occupancy returns to zero on a
// VC whose tail has already traversed the crossbar, the VC becomes
// available again for a new packet.
func (bs *BufferState) ProcessCredit(c *Credit) {
	for _, vc := range c.VCs {
		v := &bs.vcs[vc]
		if v.occupancy > 0 {
			v.occupancy--
		}
		if v.occupancy == 0 && v.tailSent {
			v.available = true
			v.takenBy = notTaken
			v.tailSent = false
		}
	}
}

// ClearCredits marks every VC on this output as unavailable with zero
// occupancy, used when the neighbor on this port announces it has
// entered the off state: no VC is available across a dark link
// (spec.md §4.5).
func (bs *BufferState) ClearCredits() {
	for i := range bs.vcs {
		v := &bs.vcs[i]
		v.available = false
		v.occupancy = 0
		v.takenBy = notTaken
		v.tailSent = false
	}
}

// FullCredits restores every VC on this output to fully available with
// its configured capacity, used when the neighbor on this port
// announces it has returned to on from waking (spec.md §4.5).
func (bs *BufferState) FullCredits(vcBufSize int) {
	for i := range bs.vcs {
		bs.vcs[i] = bufferStateVC{available: true, capacity: vcBufSize, takenBy: notTaken}
	}
}

// SetVCBufferSize overrides a VC's downstream capacity; used in
// concert with Buffer.SetVCBufferSize when a VC is repurposed as a
// one-slot NoRD bypass latch (spec.md §4.6).
func (bs *BufferState) SetVCBufferSize(vc int, n int) {
	bs.vcs[vc].capacity = n
}
