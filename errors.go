package meshgate

import "fmt"

//
// Error taxonomy (spec.md §7, §9)
//
// Configuration errors are surfaced at construction time and are
// fatal: NewNetwork returns them rather than panicking. Illegal VC
// state transitions and a body flit arriving at an idle VC are
// reported as a dedicated InvariantError so an embedding simulator can
// catch, log and dump state instead of crashing the host process. A
// second Send on a Channel in one tick returns the plain sentinel
// errChannelBusy, and a credit against zero occupancy is ignored
// rather than reported. This follows the
// teacher's Must0/Must1/Must2 pattern in rtx.go generalized into a
// returned error rather than a panic. Everything else (routing
// deadlock recovery, drain timeout, the deadlock watchdog) is
// recoverable and handled locally without an error value at all.
//

// ConfigError indicates that [NewNetwork] was given contradictory or
// unknown configuration. It is always fatal to construction.
type ConfigError struct {
	// Option is the configuration option at fault.
	Option string

	// Reason explains why the option value is invalid.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("meshgate: config error: %s: %s", e.Option, e.Reason)
}

// InvariantError indicates a precondition violation detected by the
// core: a VC state transition attempted from an illegal predecessor,
// or a body flit arriving at an idle VC. A double Send on a Channel
// and a credit returned against zero occupancy are not reported this
// way (see the package comment above). The core never panics on
// these; it returns an InvariantError identifying where and
// when the violation was observed so the caller can log and abort.
type InvariantError struct {
	// Router is the router at which the violation was detected, or -1
	// if the violation is not attributable to a single router.
	Router RouterID

	// Port is the port involved, or InjectionPort if not applicable.
	Port Port

	// VC is the virtual channel involved, or -1 if not applicable.
	VC int

	// Cycle is the cycle on which the violation was detected.
	Cycle int64

	// Message describes the violated invariant.
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf(
		"meshgate: invariant violation at router=%d port=%d vc=%d cycle=%d: %s",
		e.Router, e.Port, e.VC, e.Cycle, e.Message,
	)
}

func newInvariantError(router RouterID, port Port, vc int, cycle int64, message string) *InvariantError {
	return &InvariantError{Router: router, Port: port, VC: vc, Cycle: cycle, Message: message}
}

// Sentinel errors for ordinary, non-fatal, non-blocking control flow —
// the equivalent of the teacher's ErrNoPacket/ErrStackClosed/
// ErrPacketDropped trio, renamed to this domain.
var (
	// errChannelEmpty indicates a Channel.Read found nothing whose
	// delay has elapsed yet. Callers should treat this as "try again
	// next cycle", not as a failure.
	errChannelEmpty = fmt.Errorf("meshgate: channel: nothing ready to read")

	// errChannelBusy indicates a second Send was attempted on a
	// Channel within the same tick (spec.md §4.1 failure mode).
	errChannelBusy = fmt.Errorf("meshgate: channel: one send per tick already used")

	// errNoRoute indicates a routing function produced an empty
	// OutputSet for a non-injection flit.
	errNoRoute = fmt.Errorf("meshgate: routing: no candidate output")

	// errVCUnavailable indicates a VC allocation request targeted a
	// downstream VC that is not currently available.
	errVCUnavailable = fmt.Errorf("meshgate: vc: requested VC not available downstream")
)
