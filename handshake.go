package meshgate

//
// Handshake: the datagram carrying power-state information between
// neighboring routers (spec.md §3, §4.5).
//

// Handshake is exchanged only between directly-connected neighbor
// routers to announce and acknowledge power-state transitions.
type Handshake struct {
	// Src is the announcing router.
	Src RouterID

	// SrcState is the announcing router's current power state.
	SrcState PowerState

	// NewState is the state Src is moving into, valid only when this
	// handshake announces a transition (as opposed to acknowledging
	// one).
	NewState PowerState

	// DrainDone acknowledges that the sender has no in-flight,
	// crossbar, or output-buffered flits targeting the transitioning
	// neighbor's input port (spec.md §4.5).
	DrainDone bool

	// HID correlates a drain-done acknowledgment with the transition
	// announcement it answers.
	HID int64
}
