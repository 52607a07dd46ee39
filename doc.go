// Package meshgate is a cycle-accurate simulator of a two-dimensional
// k-ary mesh on-chip network in which individual routers may be power
// gated while traffic keeps flowing through the routers that stay awake
// and through fly-over (FLOV) bypass paths offered by the gated ones.
//
// The simulator is built around three tightly coupled subsystems:
//
//   - the input-queued virtual-channel router pipeline ([Router]), which
//     advances flits through route compute, VC allocation, switch
//     allocation and switch traversal (see router.go, allocator.go,
//     buffer.go, bufferstate.go);
//
//   - the per-router power-state machine and the inter-router handshake
//     protocol that keeps flow control and routing correct across power
//     transitions (see power.go);
//
//   - the FLOV bypass engine that lets a powered-off router forward
//     flits along a fixed dimension without waking its pipeline (see
//     flov.go).
//
// [Network] composes [Router]s and [Channel] delay lines into a mesh and
// exposes injection/ejection ports to a [TrafficManager]. A driver loop
// calls [TrafficManager.Step] to inject or retire flits for the current
// cycle and then [Network.Step] to advance the fabric by one cycle;
// ejection and latency accumulation happen automatically as flits land
// on injection ports, via the callback [Network.AttachTrafficManager]
// wires up.
//
// Everything in this package runs on a single goroutine: one simulated
// cycle is one pass of reads, handshake evaluation, pipeline evaluation
// and writes across every component, with a hard barrier between the
// evaluate and write phases (see [Network.Step]). There is no internal
// concurrency and no locking; callers that want to run several
// simulations in parallel should run one [Network] per goroutine.
package meshgate
