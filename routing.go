package meshgate

import (
	"fmt"

	"github.com/onchipmesh/meshgate/internal/xslices"
)

//
// Route compute: routing functions and the OutputSet contract
// (spec.md §4.4, §6).
//

// OutputCandidate is one (output-port, vc-range, priority) triple a
// flit may select from after route compute (spec.md §4.4 "Route
// set"). VCStart/VCEnd are inclusive.
type OutputCandidate struct {
	Port     Port
	VCStart  int
	VCEnd    int
	Priority int
}

// Contains reports whether vc falls within this candidate's range.
func (c OutputCandidate) Contains(vc int) bool {
	return vc >= c.VCStart && vc <= c.VCEnd
}

// OutputSet is the set of candidates produced by a [RoutingFunc] for
// one flit (spec.md §4.4, §6).
type OutputSet struct {
	Candidates []OutputCandidate
}

// Add appends one candidate to the set.
func (s *OutputSet) Add(port Port, vcStart, vcEnd, priority int) {
	s.Candidates = append(s.Candidates, OutputCandidate{Port: port, VCStart: vcStart, VCEnd: vcEnd, Priority: priority})
}

// Empty reports whether the set carries no candidates.
func (s *OutputSet) Empty() bool {
	return s == nil || len(s.Candidates) == 0
}

// Ports returns the distinct candidate output ports in the set, used
// by the watchdog recovery path to decide which neighbor to exclude
// without scanning Candidates more than once per port.
func (s *OutputSet) Ports() []int {
	var ports []int
	for _, c := range s.Candidates {
		ports = append(ports, int(c.Port))
	}
	return xslices.DedupInt(ports)
}

// ExcludePort returns a copy of the set with candidates on the given
// port removed; used by the VA-stall recovery path to re-evaluate a
// route set that excludes a neighbor that just announced draining
// (spec.md §4.4 state diagram, scenario 5).
func (s *OutputSet) ExcludePort(port Port) *OutputSet {
	out := &OutputSet{}
	for _, c := range s.Candidates {
		if c.Port != port {
			out.Candidates = append(out.Candidates, c)
		}
	}
	return out
}

// RoutingFunc computes the candidate outputs for one flit (spec.md
// §6). When router == -1 and inPort == InjectionPort, this is an
// injection-side call and the function MUST return exactly one
// candidate whose Port is InjectionPort, carrying the VC range for
// the local injection port. Otherwise it returns one or more
// (output-port, vc-range, priority) triples for a flit currently
// sitting at router, arriving on inPort.
type RoutingFunc func(net *Network, router RouterID, f *Flit, inPort Port, injection bool) (*OutputSet, error)

var routingFuncRegistry = map[string]RoutingFunc{
	"dor_xy": DimensionOrderXY,
}

// RegisterRoutingFunc makes a [RoutingFunc] available by name to
// [NetworkConfig.RoutingFunction]. Registering under an already-used
// name replaces the previous function.
func RegisterRoutingFunc(name string, fn RoutingFunc) {
	routingFuncRegistry[name] = fn
}

// LookupRoutingFunc resolves a routing function by name, as used by
// [NewNetwork] to turn NetworkConfig.RoutingFunction into a callable.
func LookupRoutingFunc(name string) (RoutingFunc, error) {
	fn, ok := routingFuncRegistry[name]
	if !ok {
		return nil, &ConfigError{Option: "routing_function", Reason: fmt.Sprintf("unknown routing function %q", name)}
	}
	return fn, nil
}

// DimensionOrderXY is dimension-order (X then Y) routing with a
// deterministic escape VC (VC 0 is always a legal candidate VC on
// every hop, guaranteeing deadlock freedom in the presence of FLOV
// bypass rerouting, per spec.md §6). Non-escape VCs (1..numVCs-1, when
// present) are offered at the same priority for throughput; routers
// are free to prefer the escape VC when every other candidate leads to
// a draining/waking neighbor (spec.md §4.4 recovery path).
func DimensionOrderXY(net *Network, router RouterID, f *Flit, inPort Port, injection bool) (*OutputSet, error) {
	out := &OutputSet{}
	numVCs := net.cfg.NumVCs

	if injection {
		out.Add(InjectionPort, 0, numVCs-1, 1)
		return out, nil
	}

	destRouter, ok := net.RouterForNode(f.Dst)
	if !ok {
		return nil, &ConfigError{Option: "node_router_map", Reason: "destination node has no attached router"}
	}
	if destRouter == router {
		out.Add(InjectionPort, 0, numVCs-1, 1)
		return out, nil
	}

	sx, sy := net.Coords(router)
	dx, dy := net.Coords(destRouter)

	var dir Direction
	switch {
	case sx < dx:
		dir = DirEast
	case sx > dx:
		dir = DirWest
	case sy < dy:
		dir = DirSouth
	case sy > dy:
		dir = DirNorth
	default:
		// unreachable: destRouter != router but same coords
		return nil, errNoRoute
	}

	port, ok := net.NeighborPort(router, dir)
	if !ok {
		return nil, errNoRoute
	}
	out.Add(port, 0, numVCs-1, 1)
	return out, nil
}
